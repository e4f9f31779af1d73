package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the comma separated `ordering` query param ("-" prefix for descending).
// Only the keys of allowed are accepted, mapped to their column.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]string) error {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return nil
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		column, ok := allowed[field]
		if !ok {
			return core.NewValidationError(nil, core.FieldError{Field: orderingParam, Error: "cannot order by " + strconv.Quote(field)})
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: column, Ascending: !descending})
	}
	return nil
}

func bindPage(ctx echo.Context) core.Page {
	var page core.Page
	page.Page, _ = strconv.Atoi(ctx.QueryParam("page"))
	page.Limit, _ = strconv.Atoi(ctx.QueryParam("limit"))
	page.Clean()
	return page
}

// queryTime parses an RFC 3339 query param. A missing param is the zero time.
func queryTime(ctx echo.Context, name string) (time.Time, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be an RFC 3339 date-time"})
	}
	return t, nil
}

// queryBool parses a boolean query param. A missing param is nil.
func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a boolean"})
	}
	return &b, nil
}

func queryFloat(ctx echo.Context, name string, dflt float64) (float64, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return dflt, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a number"})
	}
	return f, nil
}

// bind decodes the request into data, reporting malformed bodies as bad requests.
func bind(ctx echo.Context, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok {
			return herr
		}
		return errors.Wrap(err, "binding request")
	}
	return nil
}
