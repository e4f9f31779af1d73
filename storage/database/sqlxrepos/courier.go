package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/courier"
)

const courierSelect = `SELECT c.id, c.user_id, c.restaurant_id, c.available, c.rating, c.completed_deliveries, c.created_at,
	u.id AS "u.id", u.first_name AS "u.first_name", u.last_name AS "u.last_name", u.email AS "u.email",
	u.phone AS "u.phone", u.address AS "u.address", u.photo_url AS "u.photo_url", u.role AS "u.role",
	u.status AS "u.status", u.password_hash AS "u.password_hash", u.created_at AS "u.created_at",
	u.updated_at AS "u.updated_at", u.last_login AS "u.last_login"
FROM couriers c
JOIN users u ON u.id = c.user_id`

type courierRow struct {
	ID                  string    `db:"id"`
	UserID              string    `db:"user_id"`
	RestaurantID        string    `db:"restaurant_id"`
	Available           bool      `db:"available"`
	Rating              float64   `db:"rating"`
	CompletedDeliveries int       `db:"completed_deliveries"`
	CreatedAt           time.Time `db:"created_at"`
	User                userRow   `db:"u"`
}

func (r courierRow) courier() courier.Courier {
	c := courier.Courier{
		ID:                  r.ID,
		UserID:              r.UserID,
		RestaurantID:        r.RestaurantID,
		Available:           r.Available,
		Rating:              core.Round2(r.Rating),
		CompletedDeliveries: r.CompletedDeliveries,
		CreatedAt:           utc(r.CreatedAt),
	}
	if r.User.ID != "" {
		usr := r.User.user()
		c.User = &usr
	}
	return c
}

type courierRepository struct {
	repository
}

var _ courier.Repository = (*courierRepository)(nil)

func NewCourierRepository(exec core.DBExecutor) *courierRepository {
	return &courierRepository{repository{exec: exec}}
}

func (repo courierRepository) CreateCourier(ctx context.Context, c courier.Courier, exec ...core.DBExecutor) (courier.Courier, error) {
	c.ID = newID()
	c.CreatedAt = utc(c.CreatedAt)
	_, err := repo.execute(ctx, repo.getExec(exec),
		`INSERT INTO couriers (id, user_id, restaurant_id, available, rating, completed_deliveries, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.RestaurantID, c.Available, c.Rating, c.CompletedDeliveries, c.CreatedAt)
	if err != nil {
		return courier.Courier{}, errors.Wrap(err, "inserting courier")
	}
	return c, nil
}

func (repo courierRepository) GetCourier(ctx context.Context, filter courier.GetFilter, exec ...core.DBExecutor) (courier.Courier, error) {
	var (
		cond string
		arg  string
	)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return courier.Courier{}, courier.ErrNotFound
		}
		cond, arg = "c.id = ?", filter.ID
	case filter.UserID != "":
		cond, arg = "c.user_id = ?", filter.UserID
	default:
		return courier.Courier{}, courier.ErrNotFound
	}

	var r courierRow
	if err := repo.get(ctx, repo.getExec(exec), &r, courierSelect+" WHERE "+cond, arg); err != nil {
		return courier.Courier{}, trapNoRowsErr(err, courier.ErrNotFound, "finding courier")
	}
	return r.courier(), nil
}

func (repo courierRepository) QueryCouriers(ctx context.Context, restID string, exec ...core.DBExecutor) ([]courier.Courier, error) {
	var rows []courierRow
	err := repo.selectAll(ctx, repo.getExec(exec), &rows,
		courierSelect+" WHERE c.restaurant_id = ? ORDER BY u.first_name ASC, u.last_name ASC", restID)
	if err != nil {
		return nil, errors.Wrap(err, "querying couriers")
	}
	couriers := make([]courier.Courier, 0, len(rows))
	for _, r := range rows {
		couriers = append(couriers, r.courier())
	}
	return couriers, nil
}

func (repo courierRepository) UpdateCourier(ctx context.Context, c courier.Courier, exec ...core.DBExecutor) (courier.Courier, error) {
	n, err := repo.execute(ctx, repo.getExec(exec),
		"UPDATE couriers SET available = ?, rating = ?, completed_deliveries = ? WHERE id = ?",
		c.Available, c.Rating, c.CompletedDeliveries, c.ID)
	if err != nil {
		return courier.Courier{}, errors.Wrap(err, "updating courier")
	}
	if n == 0 {
		return courier.Courier{}, courier.ErrNotFound
	}
	return c, nil
}

func (repo courierRepository) RefreshRating(ctx context.Context, id string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	var avg null.Float64
	err := repo.get(ctx, exe, &avg, "SELECT AVG(rating) FROM reviews WHERE courier_id = ? AND type = 'courier'", id)
	if err != nil {
		return errors.Wrap(err, "averaging courier reviews")
	}
	if _, err = repo.execute(ctx, exe, "UPDATE couriers SET rating = ? WHERE id = ?", core.Round2(avg.Float64), id); err != nil {
		return errors.Wrap(err, "updating courier rating")
	}
	return nil
}

func (repo courierRepository) IncrementCompleted(ctx context.Context, id string, exec ...core.DBExecutor) error {
	_, err := repo.execute(ctx, repo.getExec(exec),
		"UPDATE couriers SET completed_deliveries = completed_deliveries + 1 WHERE id = ?", id)
	return errors.Wrap(err, "counting completed delivery")
}
