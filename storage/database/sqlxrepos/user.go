package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/user"
)

const userColumns = `id, first_name, last_name, email, phone, address, photo_url, role, status, password_hash,
	created_at, updated_at, last_login`

type userRow struct {
	ID           string    `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	Address      string    `db:"address"`
	PhotoURL     string    `db:"photo_url"`
	Role         string    `db:"role"`
	Status       string    `db:"status"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		Email:        usr.Email,
		Phone:        usr.Phone,
		Address:      usr.Address,
		PhotoURL:     usr.PhotoURL,
		Role:         usr.Role,
		Status:       usr.Status,
		PasswordHash: string(usr.PasswordHash),
		CreatedAt:    utc(usr.CreatedAt),
		UpdatedAt:    utc(usr.UpdatedAt),
		LastLogin:    utcNull(usr.LastLogin),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Phone:        r.Phone,
		Address:      r.Address,
		PhotoURL:     r.PhotoURL,
		Role:         r.Role,
		Status:       r.Status,
		PasswordHash: []byte(r.PasswordHash),
		CreatedAt:    utc(r.CreatedAt),
		UpdatedAt:    utc(r.UpdatedAt),
		LastLogin:    utcNull(r.LastLogin),
	}
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	var w where
	w.add("email = ?", strings.ToLower(email))
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		w.add("id NOT IN (?)", ids)
	}

	var ids []string
	if err := repo.selectIn(ctx, repo.getExec(exec), &ids, "SELECT id FROM users"+w.String()+" LIMIT 1", w.args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if len(ids) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = newID()
	r := toUserRow(usr)
	_, err := repo.execute(ctx, repo.getExec(exec),
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.FirstName, r.LastName, r.Email, r.Phone, r.Address, r.PhotoURL, r.Role, r.Status, r.PasswordHash,
		r.CreatedAt, r.UpdatedAt, r.LastLogin)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return r.user(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var w where
	if filter != nil {
		// users with first name, last name or email matching the search keyword
		if filter.Search != "" {
			w.addSearch(filter.Search, "first_name", "last_name", "email")
		}
		if len(filter.Roles) > 0 {
			w.add("role IN (?)", filter.Roles)
		}
		if len(filter.Statuses) > 0 {
			w.add("status IN (?)", filter.Statuses)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	q := "SELECT " + userColumns + " FROM users" + w.String()
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		q += " ORDER BY created_at DESC"
	}

	var rows []userRow
	if err := repo.selectIn(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		cond string
		arg  string
	)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		cond, arg = "id = ?", filter.ID
	case filter.Email != "":
		cond, arg = "email = ?", strings.ToLower(filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var r userRow
	if err := repo.get(ctx, repo.getExec(exec), &r, "SELECT "+userColumns+" FROM users WHERE "+cond, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return r.user(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	r := toUserRow(usr)
	n, err := repo.execute(ctx, repo.getExec(exec),
		`UPDATE users SET first_name = ?, last_name = ?, email = ?, phone = ?, address = ?, photo_url = ?, role = ?,
			status = ?, password_hash = ?, updated_at = ?, last_login = ?
		WHERE id = ?`,
		r.FirstName, r.LastName, r.Email, r.Phone, r.Address, r.PhotoURL, r.Role, r.Status, r.PasswordHash,
		r.UpdatedAt, r.LastLogin, r.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return r.user(), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := repo.executeIn(ctx, repo.getExec(exec), "DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return n, nil
}
