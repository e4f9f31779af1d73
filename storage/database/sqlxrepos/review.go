package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/review"
)

const reviewSelect = `SELECT rv.id, rv.client_id, rv.type, rv.restaurant_id, rv.courier_id, rv.order_id, rv.rating, rv.comment,
	rv.created_at, rv.updated_at, u.first_name || ' ' || u.last_name AS author_name
FROM reviews rv
JOIN users u ON u.id = rv.client_id`

type reviewRow struct {
	ID           string      `db:"id"`
	ClientID     string      `db:"client_id"`
	AuthorName   string      `db:"author_name"`
	Type         string      `db:"type"`
	RestaurantID null.String `db:"restaurant_id"`
	CourierID    null.String `db:"courier_id"`
	OrderID      null.String `db:"order_id"`
	Rating       int         `db:"rating"`
	Comment      string      `db:"comment"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r reviewRow) review() review.Review {
	return review.Review{
		ID:           r.ID,
		ClientID:     r.ClientID,
		AuthorName:   strings.TrimSpace(r.AuthorName),
		Type:         r.Type,
		RestaurantID: r.RestaurantID,
		CourierID:    r.CourierID,
		OrderID:      r.OrderID,
		Rating:       r.Rating,
		Comment:      r.Comment,
		CreatedAt:    utc(r.CreatedAt),
		UpdatedAt:    utc(r.UpdatedAt),
	}
}

type reviewRepository struct {
	repository
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(exec core.DBExecutor) *reviewRepository {
	return &reviewRepository{repository{exec: exec}}
}

func (repo reviewRepository) CreateReview(ctx context.Context, rev review.Review, exec ...core.DBExecutor) (review.Review, error) {
	rev.ID = newID()
	rev.CreatedAt, rev.UpdatedAt = utc(rev.CreatedAt), utc(rev.UpdatedAt)
	_, err := repo.execute(ctx, repo.getExec(exec),
		`INSERT INTO reviews (id, client_id, type, restaurant_id, courier_id, order_id, rating, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.ClientID, rev.Type, rev.RestaurantID, rev.CourierID, rev.OrderID, rev.Rating, rev.Comment,
		rev.CreatedAt, rev.UpdatedAt)
	if err != nil {
		return review.Review{}, errors.Wrap(err, "inserting review")
	}
	return rev, nil
}

func (repo reviewRepository) GetReview(ctx context.Context, id string, exec ...core.DBExecutor) (review.Review, error) {
	if !validID(id) {
		return review.Review{}, review.ErrNotFound
	}
	var r reviewRow
	if err := repo.get(ctx, repo.getExec(exec), &r, reviewSelect+" WHERE rv.id = ?", id); err != nil {
		return review.Review{}, trapNoRowsErr(err, review.ErrNotFound, "finding review")
	}
	return r.review(), nil
}

func (repo reviewRepository) UpdateReview(ctx context.Context, rev review.Review, exec ...core.DBExecutor) (review.Review, error) {
	rev.UpdatedAt = utc(rev.UpdatedAt)
	n, err := repo.execute(ctx, repo.getExec(exec),
		"UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?",
		rev.Rating, rev.Comment, rev.UpdatedAt, rev.ID)
	if err != nil {
		return review.Review{}, errors.Wrap(err, "updating review")
	}
	if n == 0 {
		return review.Review{}, review.ErrNotFound
	}
	return rev, nil
}

func (repo reviewRepository) DeleteReview(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := repo.execute(ctx, repo.getExec(exec), "DELETE FROM reviews WHERE id = ?", id); err != nil {
		return errors.Wrap(err, "deleting review")
	}
	return nil
}

// QueryReviews pages through the reviews matching filter. A zero page.Limit returns them all.
func (repo reviewRepository) QueryReviews(ctx context.Context, filter review.QueryFilter, page core.Page, exec ...core.DBExecutor) ([]review.Review, int, error) {
	var w where
	if filter.RestaurantID != "" {
		w.add("rv.type = ?", review.TypeRestaurant)
		w.add("rv.restaurant_id = ?", filter.RestaurantID)
	}
	if filter.CourierID != "" {
		w.add("rv.type = ?", review.TypeCourier)
		w.add("rv.courier_id = ?", filter.CourierID)
	}
	exe := repo.getExec(exec)

	var total int
	if err := repo.get(ctx, exe, &total, "SELECT COUNT(*) FROM reviews rv"+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting reviews")
	}

	q := reviewSelect + w.String() + " ORDER BY rv.created_at DESC"
	args := w.args
	if page.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, page.Limit, page.Offset())
	}
	var rows []reviewRow
	if err := repo.selectAll(ctx, exe, &rows, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying reviews")
	}
	revs := make([]review.Review, 0, len(rows))
	for _, r := range rows {
		revs = append(revs, r.review())
	}
	return revs, total, nil
}
