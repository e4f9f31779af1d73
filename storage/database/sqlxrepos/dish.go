package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/dish"
)

// dishSelect takes the id of the viewing user as first argument.
const dishSelect = `SELECT d.id, d.restaurant_id, d.category_id, d.name, d.description, d.price, d.available,
	d.tags, d.ingredients, d.images, d.videos, d.created_at, d.updated_at,
	(SELECT COUNT(*) FROM dish_likes l WHERE l.dish_id = d.id) AS likes_count,
	(SELECT COUNT(*) FROM dish_comments c WHERE c.dish_id = d.id) AS comments_count,
	EXISTS (SELECT 1 FROM dish_likes l WHERE l.dish_id = d.id AND l.user_id = ?) AS liked,
	p.dish_id AS promo_dish_id, p.percentage AS promo_percentage, p.discounted_price AS promo_discounted_price,
	p.starts_at AS promo_starts_at, p.ends_at AS promo_ends_at, p.enabled AS promo_enabled, p.message AS promo_message,
	p.created_at AS promo_created_at, p.updated_at AS promo_updated_at
FROM dishes d
LEFT JOIN promotions p ON p.dish_id = d.id`

type dishRow struct {
	ID            string          `db:"id"`
	RestaurantID  string          `db:"restaurant_id"`
	CategoryID    string          `db:"category_id"`
	Name          string          `db:"name"`
	Description   string          `db:"description"`
	Price         int64           `db:"price"`
	Available     bool            `db:"available"`
	Tags          core.StringList `db:"tags"`
	Ingredients   core.StringList `db:"ingredients"`
	Images        core.StringList `db:"images"`
	Videos        core.StringList `db:"videos"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	LikesCount    int             `db:"likes_count"`
	CommentsCount int             `db:"comments_count"`
	Liked         bool            `db:"liked"`

	PromoDishID          null.String `db:"promo_dish_id"`
	PromoPercentage      null.Int    `db:"promo_percentage"`
	PromoDiscountedPrice null.Int64  `db:"promo_discounted_price"`
	PromoStartsAt        null.Time   `db:"promo_starts_at"`
	PromoEndsAt          null.Time   `db:"promo_ends_at"`
	PromoEnabled         null.Bool   `db:"promo_enabled"`
	PromoMessage         null.String `db:"promo_message"`
	PromoCreatedAt       null.Time   `db:"promo_created_at"`
	PromoUpdatedAt       null.Time   `db:"promo_updated_at"`
}

func (r dishRow) dish() dish.Dish {
	d := dish.Dish{
		ID:            r.ID,
		RestaurantID:  r.RestaurantID,
		CategoryID:    r.CategoryID,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		Available:     r.Available,
		Tags:          r.Tags,
		Ingredients:   r.Ingredients,
		Images:        r.Images,
		Videos:        r.Videos,
		LikesCount:    r.LikesCount,
		Liked:         r.Liked,
		CommentsCount: r.CommentsCount,
		CreatedAt:     utc(r.CreatedAt),
		UpdatedAt:     utc(r.UpdatedAt),
	}
	if r.PromoDishID.Valid {
		d.Promotion = &dish.Promotion{
			DishID:          r.PromoDishID.String,
			Percentage:      r.PromoPercentage.Int,
			DiscountedPrice: r.PromoDiscountedPrice.Int64,
			StartsAt:        utc(r.PromoStartsAt.Time),
			EndsAt:          utc(r.PromoEndsAt.Time),
			Enabled:         r.PromoEnabled.Bool,
			Message:         r.PromoMessage,
			CreatedAt:       utc(r.PromoCreatedAt.Time),
			UpdatedAt:       utc(r.PromoUpdatedAt.Time),
		}
	}
	return d
}

func dishesFromRows(rows []dishRow) []dish.Dish {
	dishes := make([]dish.Dish, 0, len(rows))
	for _, r := range rows {
		dishes = append(dishes, r.dish())
	}
	return dishes
}

func nonNil(l core.StringList) core.StringList {
	if l == nil {
		return core.StringList{}
	}
	return l
}

type commentRow struct {
	ID         string    `db:"id"`
	DishID     string    `db:"dish_id"`
	UserID     string    `db:"user_id"`
	AuthorName string    `db:"author_name"`
	Text       string    `db:"text"`
	CreatedAt  time.Time `db:"created_at"`
}

type dishRepository struct {
	repository
}

var _ dish.Repository = (*dishRepository)(nil)

func NewDishRepository(exec core.DBExecutor) *dishRepository {
	return &dishRepository{repository{exec: exec}}
}

func (repo dishRepository) CreateDish(ctx context.Context, d dish.Dish, exec ...core.DBExecutor) (dish.Dish, error) {
	d.ID = newID()
	d.Tags, d.Ingredients, d.Images, d.Videos = nonNil(d.Tags), nonNil(d.Ingredients), nonNil(d.Images), nonNil(d.Videos)
	d.CreatedAt, d.UpdatedAt = utc(d.CreatedAt), utc(d.UpdatedAt)
	_, err := repo.execute(ctx, repo.getExec(exec),
		`INSERT INTO dishes (id, restaurant_id, category_id, name, description, price, available, tags, ingredients, images,
			videos, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RestaurantID, d.CategoryID, d.Name, d.Description, d.Price, d.Available, d.Tags, d.Ingredients, d.Images,
		d.Videos, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return dish.Dish{}, errors.Wrap(err, "inserting dish")
	}
	return d, nil
}

func (repo dishRepository) GetDish(ctx context.Context, id, viewerID string, exec ...core.DBExecutor) (dish.Dish, error) {
	if !validID(id) {
		return dish.Dish{}, dish.ErrNotFound
	}
	var r dishRow
	if err := repo.get(ctx, repo.getExec(exec), &r, dishSelect+" WHERE d.id = ?", viewerID, id); err != nil {
		return dish.Dish{}, trapNoRowsErr(err, dish.ErrNotFound, "finding dish")
	}
	return r.dish(), nil
}

func (repo dishRepository) QueryDishes(ctx context.Context, filter *dish.QueryFilter, viewerID string, exec ...core.DBExecutor) ([]dish.Dish, error) {
	var w where
	if filter != nil {
		if filter.RestaurantID != "" {
			w.add("d.restaurant_id = ?", filter.RestaurantID)
		}
		if filter.CategoryID != "" {
			w.add("d.category_id = ?", filter.CategoryID)
		}
		if filter.Search != "" {
			w.addSearch(filter.Search, "d.name", "d.description", "d.tags")
		}
		if !filter.IncludeUnavailable {
			w.add("d.available = ?", true)
		}
	}

	args := append([]interface{}{viewerID}, w.args...)
	var rows []dishRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, dishSelect+w.String()+" ORDER BY d.name ASC", args...); err != nil {
		return nil, errors.Wrap(err, "querying dishes")
	}
	return dishesFromRows(rows), nil
}

func (repo dishRepository) QueryPromotedDishes(ctx context.Context, restID string, exec ...core.DBExecutor) ([]dish.Dish, error) {
	var w where
	w.add("p.dish_id IS NOT NULL")
	if restID != "" {
		w.add("d.restaurant_id = ?", restID)
	}

	args := append([]interface{}{""}, w.args...)
	var rows []dishRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, dishSelect+w.String()+" ORDER BY p.ends_at ASC, d.name ASC", args...); err != nil {
		return nil, errors.Wrap(err, "querying promoted dishes")
	}
	return dishesFromRows(rows), nil
}

func (repo dishRepository) UpdateDish(ctx context.Context, d dish.Dish, exec ...core.DBExecutor) (dish.Dish, error) {
	d.Tags, d.Ingredients, d.Images, d.Videos = nonNil(d.Tags), nonNil(d.Ingredients), nonNil(d.Images), nonNil(d.Videos)
	d.UpdatedAt = utc(d.UpdatedAt)
	n, err := repo.execute(ctx, repo.getExec(exec),
		`UPDATE dishes SET category_id = ?, name = ?, description = ?, price = ?, available = ?, tags = ?, ingredients = ?,
			images = ?, videos = ?, updated_at = ?
		WHERE id = ?`,
		d.CategoryID, d.Name, d.Description, d.Price, d.Available, d.Tags, d.Ingredients, d.Images, d.Videos, d.UpdatedAt, d.ID)
	if err != nil {
		return dish.Dish{}, errors.Wrap(err, "updating dish")
	}
	if n == 0 {
		return dish.Dish{}, dish.ErrNotFound
	}
	return d, nil
}

func (repo dishRepository) DeleteDish(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := repo.execute(ctx, repo.getExec(exec), "DELETE FROM dishes WHERE id = ?", id); err != nil {
		return errors.Wrap(err, "deleting dish")
	}
	return nil
}

func (repo dishRepository) CategoryBelongsTo(ctx context.Context, catID, restID string, exec ...core.DBExecutor) (bool, error) {
	if !validID(catID) {
		return false, nil
	}
	var n int
	err := repo.get(ctx, repo.getExec(exec), &n,
		"SELECT COUNT(*) FROM categories WHERE id = ? AND restaurant_id = ?", catID, restID)
	if err != nil {
		return false, errors.Wrap(err, "checking category")
	}
	return n > 0, nil
}

func (repo dishRepository) HasLiked(ctx context.Context, dishID, userID string, exec ...core.DBExecutor) (bool, error) {
	var n int
	err := repo.get(ctx, repo.getExec(exec), &n,
		"SELECT COUNT(*) FROM dish_likes WHERE dish_id = ? AND user_id = ?", dishID, userID)
	if err != nil {
		return false, errors.Wrap(err, "checking like")
	}
	return n > 0, nil
}

func (repo dishRepository) SetLike(ctx context.Context, dishID, userID string, liked bool, exec ...core.DBExecutor) error {
	var err error
	if liked {
		_, err = repo.execute(ctx, repo.getExec(exec),
			"INSERT INTO dish_likes (dish_id, user_id) VALUES (?, ?) ON CONFLICT (dish_id, user_id) DO NOTHING", dishID, userID)
	} else {
		_, err = repo.execute(ctx, repo.getExec(exec), "DELETE FROM dish_likes WHERE dish_id = ? AND user_id = ?", dishID, userID)
	}
	return errors.Wrap(err, "setting like")
}

func (repo dishRepository) CreateComment(ctx context.Context, c dish.Comment, exec ...core.DBExecutor) (dish.Comment, error) {
	c.ID = newID()
	c.CreatedAt = utc(c.CreatedAt)
	_, err := repo.execute(ctx, repo.getExec(exec),
		"INSERT INTO dish_comments (id, dish_id, user_id, text, created_at) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.DishID, c.UserID, c.Text, c.CreatedAt)
	if err != nil {
		return dish.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return c, nil
}

func (repo dishRepository) QueryComments(ctx context.Context, dishID string, exec ...core.DBExecutor) ([]dish.Comment, error) {
	var rows []commentRow
	err := repo.selectAll(ctx, repo.getExec(exec), &rows,
		`SELECT c.id, c.dish_id, c.user_id, c.text, c.created_at, u.first_name || ' ' || u.last_name AS author_name
		FROM dish_comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.dish_id = ?
		ORDER BY c.created_at DESC`, dishID)
	if err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	comments := make([]dish.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, dish.Comment{
			ID:         r.ID,
			DishID:     r.DishID,
			UserID:     r.UserID,
			AuthorName: strings.TrimSpace(r.AuthorName),
			Text:       r.Text,
			CreatedAt:  utc(r.CreatedAt),
		})
	}
	return comments, nil
}

func (repo dishRepository) UpsertPromotion(ctx context.Context, p dish.Promotion, exec ...core.DBExecutor) (dish.Promotion, error) {
	p.StartsAt, p.EndsAt = utc(p.StartsAt), utc(p.EndsAt)
	p.CreatedAt, p.UpdatedAt = utc(p.CreatedAt), utc(p.UpdatedAt)
	_, err := repo.execute(ctx, repo.getExec(exec),
		`INSERT INTO promotions (dish_id, percentage, discounted_price, starts_at, ends_at, enabled, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dish_id) DO UPDATE SET percentage = excluded.percentage, discounted_price = excluded.discounted_price,
			starts_at = excluded.starts_at, ends_at = excluded.ends_at, enabled = excluded.enabled, message = excluded.message,
			updated_at = excluded.updated_at`,
		p.DishID, p.Percentage, p.DiscountedPrice, p.StartsAt, p.EndsAt, p.Enabled, p.Message, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return dish.Promotion{}, errors.Wrap(err, "saving promotion")
	}
	return p, nil
}

func (repo dishRepository) DeletePromotion(ctx context.Context, dishID string, exec ...core.DBExecutor) error {
	n, err := repo.execute(ctx, repo.getExec(exec), "DELETE FROM promotions WHERE dish_id = ?", dishID)
	if err != nil {
		return errors.Wrap(err, "deleting promotion")
	}
	if n == 0 {
		return dish.ErrPromotionNotFound
	}
	return nil
}
