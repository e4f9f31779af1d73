// Package sqlxrepos implements the domain repositories with sqlx.
// Queries use `?` placeholders, rebound for the driver in use, and stay portable between postgres and sqlite.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
)

type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo repository) get(ctx context.Context, exe core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, exe, dest, exe.Rebind(query), args...)
}

func (repo repository) selectAll(ctx context.Context, exe core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, exe, dest, exe.Rebind(query), args...)
}

// selectIn expands the slice arguments of query before running it.
func (repo repository) selectIn(ctx context.Context, exe core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	q, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return repo.selectAll(ctx, exe, dest, q, inArgs...)
}

func (repo repository) execute(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) (int, error) {
	res, err := exe.ExecContext(ctx, exe.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (repo repository) executeIn(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) (int, error) {
	q, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}
	return repo.execute(ctx, exe, q, inArgs...)
}

// trapNoRowsErr maps sql "no rows" errors to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// validID tells whether id can be a primary key, sparing a round trip for garbage ids.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string { return uuid.New().String() }

func utc(t time.Time) time.Time { return t.UTC() }

func utcNull(t null.Time) null.Time {
	if t.Valid {
		t.Time = t.Time.UTC()
	}
	return t
}

// where accumulates AND-ed conditions and their arguments.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// addSearch matches `term` anywhere in any of the given columns, case-insensitively.
// LIKE wildcards in `term` are matched literally.
func (w *where) addSearch(term string, columns ...string) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	conds := make([]string, len(columns))
	for i, col := range columns {
		conds[i] = "LOWER(" + col + `) LIKE ? ESCAPE '\'`
		w.args = append(w.args, pattern)
	}
	w.conds = append(w.conds, "("+strings.Join(conds, " OR ")+")")
}
