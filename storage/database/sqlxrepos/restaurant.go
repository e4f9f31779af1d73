package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/restaurant"
)

const restaurantSelect = `SELECT r.id, r.owner_id, r.name, r.address, r.phone, r.description, r.opens_at, r.closes_at,
	r.images, r.created_at, r.updated_at,
	COALESCE((SELECT AVG(rv.rating) FROM reviews rv WHERE rv.restaurant_id = r.id AND rv.type = 'restaurant'), 0) AS average_rating
FROM restaurants r`

type restaurantRow struct {
	ID            string          `db:"id"`
	OwnerID       string          `db:"owner_id"`
	Name          string          `db:"name"`
	Address       string          `db:"address"`
	Phone         string          `db:"phone"`
	Description   string          `db:"description"`
	OpensAt       string          `db:"opens_at"`
	ClosesAt      string          `db:"closes_at"`
	Images        core.StringList `db:"images"`
	AverageRating float64         `db:"average_rating"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r restaurantRow) restaurant() restaurant.Restaurant {
	return restaurant.Restaurant{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Name:          r.Name,
		Address:       r.Address,
		Phone:         r.Phone,
		Description:   r.Description,
		OpensAt:       r.OpensAt,
		ClosesAt:      r.ClosesAt,
		Images:        r.Images,
		AverageRating: core.Round2(r.AverageRating),
		CreatedAt:     utc(r.CreatedAt),
		UpdatedAt:     utc(r.UpdatedAt),
	}
}

type categoryRow struct {
	ID           string    `db:"id"`
	RestaurantID string    `db:"restaurant_id"`
	Name         string    `db:"name"`
	Description  string    `db:"description"`
	ImageURL     string    `db:"image_url"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r categoryRow) category() restaurant.Category {
	return restaurant.Category{
		ID:           r.ID,
		RestaurantID: r.RestaurantID,
		Name:         r.Name,
		Description:  r.Description,
		ImageURL:     r.ImageURL,
		CreatedAt:    utc(r.CreatedAt),
	}
}

type restaurantRepository struct {
	repository
}

var _ restaurant.Repository = (*restaurantRepository)(nil)

func NewRestaurantRepository(exec core.DBExecutor) *restaurantRepository {
	return &restaurantRepository{repository{exec: exec}}
}

func (repo restaurantRepository) CreateRestaurant(ctx context.Context, rest restaurant.Restaurant, exec ...core.DBExecutor) (restaurant.Restaurant, error) {
	rest.ID = newID()
	if rest.Images == nil {
		rest.Images = core.StringList{}
	}
	rest.CreatedAt, rest.UpdatedAt = utc(rest.CreatedAt), utc(rest.UpdatedAt)
	_, err := repo.execute(ctx, repo.getExec(exec),
		`INSERT INTO restaurants (id, owner_id, name, address, phone, description, opens_at, closes_at, images, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rest.ID, rest.OwnerID, rest.Name, rest.Address, rest.Phone, rest.Description, rest.OpensAt, rest.ClosesAt,
		rest.Images, rest.CreatedAt, rest.UpdatedAt)
	if err != nil {
		return restaurant.Restaurant{}, errors.Wrap(err, "inserting restaurant")
	}
	return rest, nil
}

func (repo restaurantRepository) GetRestaurant(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) (restaurant.Restaurant, error) {
	var (
		cond string
		arg  string
	)
	switch {
	case id != "":
		if !validID(id) {
			return restaurant.Restaurant{}, restaurant.ErrNotFound
		}
		cond, arg = "r.id = ?", id
	case ownerID != "":
		cond, arg = "r.owner_id = ?", ownerID
	default:
		return restaurant.Restaurant{}, restaurant.ErrNotFound
	}

	var r restaurantRow
	if err := repo.get(ctx, repo.getExec(exec), &r, restaurantSelect+" WHERE "+cond, arg); err != nil {
		return restaurant.Restaurant{}, trapNoRowsErr(err, restaurant.ErrNotFound, "finding restaurant")
	}
	return r.restaurant(), nil
}

func (repo restaurantRepository) QueryRestaurants(ctx context.Context, filter *restaurant.QueryFilter, exec ...core.DBExecutor) ([]restaurant.Restaurant, error) {
	var w where
	if filter != nil && filter.Search != "" {
		w.addSearch(filter.Search, "r.name", "r.address", "r.description")
	}

	var rows []restaurantRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, restaurantSelect+w.String()+" ORDER BY r.name ASC", w.args...); err != nil {
		return nil, errors.Wrap(err, "querying restaurants")
	}
	rests := make([]restaurant.Restaurant, 0, len(rows))
	for _, r := range rows {
		rests = append(rests, r.restaurant())
	}
	return rests, nil
}

func (repo restaurantRepository) UpdateRestaurant(ctx context.Context, rest restaurant.Restaurant, exec ...core.DBExecutor) (restaurant.Restaurant, error) {
	if rest.Images == nil {
		rest.Images = core.StringList{}
	}
	rest.UpdatedAt = utc(rest.UpdatedAt)
	n, err := repo.execute(ctx, repo.getExec(exec),
		`UPDATE restaurants SET name = ?, address = ?, phone = ?, description = ?, opens_at = ?, closes_at = ?, images = ?,
			updated_at = ?
		WHERE id = ?`,
		rest.Name, rest.Address, rest.Phone, rest.Description, rest.OpensAt, rest.ClosesAt, rest.Images,
		rest.UpdatedAt, rest.ID)
	if err != nil {
		return restaurant.Restaurant{}, errors.Wrap(err, "updating restaurant")
	}
	if n == 0 {
		return restaurant.Restaurant{}, restaurant.ErrNotFound
	}
	return rest, nil
}

func (repo restaurantRepository) CreateCategory(ctx context.Context, cat restaurant.Category, exec ...core.DBExecutor) (restaurant.Category, error) {
	cat.ID = newID()
	cat.CreatedAt = utc(cat.CreatedAt)
	_, err := repo.execute(ctx, repo.getExec(exec),
		`INSERT INTO categories (id, restaurant_id, name, description, image_url, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		cat.ID, cat.RestaurantID, cat.Name, cat.Description, cat.ImageURL, cat.CreatedAt)
	if err != nil {
		return restaurant.Category{}, errors.Wrap(err, "inserting category")
	}
	return cat, nil
}

func (repo restaurantRepository) GetCategory(ctx context.Context, id string, exec ...core.DBExecutor) (restaurant.Category, error) {
	if !validID(id) {
		return restaurant.Category{}, restaurant.ErrCategoryNotFound
	}
	var r categoryRow
	err := repo.get(ctx, repo.getExec(exec), &r,
		`SELECT id, restaurant_id, name, description, image_url, created_at FROM categories WHERE id = ?`, id)
	if err != nil {
		return restaurant.Category{}, trapNoRowsErr(err, restaurant.ErrCategoryNotFound, "finding category")
	}
	return r.category(), nil
}

func (repo restaurantRepository) QueryCategories(ctx context.Context, restID string, exec ...core.DBExecutor) ([]restaurant.Category, error) {
	var w where
	if restID != "" {
		w.add("restaurant_id = ?", restID)
	}
	var rows []categoryRow
	err := repo.selectAll(ctx, repo.getExec(exec), &rows,
		"SELECT id, restaurant_id, name, description, image_url, created_at FROM categories"+w.String()+" ORDER BY name ASC",
		w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	cats := make([]restaurant.Category, 0, len(rows))
	for _, r := range rows {
		cats = append(cats, r.category())
	}
	return cats, nil
}

func (repo restaurantRepository) UpdateCategory(ctx context.Context, cat restaurant.Category, exec ...core.DBExecutor) (restaurant.Category, error) {
	n, err := repo.execute(ctx, repo.getExec(exec),
		`UPDATE categories SET name = ?, description = ?, image_url = ? WHERE id = ?`,
		cat.Name, cat.Description, cat.ImageURL, cat.ID)
	if err != nil {
		return restaurant.Category{}, errors.Wrap(err, "updating category")
	}
	if n == 0 {
		return restaurant.Category{}, restaurant.ErrCategoryNotFound
	}
	return cat, nil
}

// DeleteCategory deletes the category along with its dishes.
func (repo restaurantRepository) DeleteCategory(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := repo.execute(ctx, repo.getExec(exec), "DELETE FROM categories WHERE id = ?", id); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return nil
}
