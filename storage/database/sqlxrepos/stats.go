package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/recommend"
	"github.com/trezcool/chakula/core/stats"
)

type statsRepository struct {
	repository
}

var _ stats.Repository = (*statsRepository)(nil)

func NewStatsRepository(exec core.DBExecutor) *statsRepository {
	return &statsRepository{repository{exec: exec}}
}

func orderWhere(f stats.OrderFilter) where {
	var w where
	if f.ClientID != "" {
		w.add("o.client_id = ?", f.ClientID)
	}
	if f.RestaurantID != "" {
		w.add("o.restaurant_id = ?", f.RestaurantID)
	}
	if f.CourierID != "" {
		w.add("o.courier_id = ?", f.CourierID)
	}
	if f.Status != "" {
		w.add("o.status = ?", f.Status)
	}
	if f.Paid.Valid {
		w.add("o.paid = ?", f.Paid.Bool)
	}
	if !f.CreatedFrom.IsZero() {
		w.add("o.created_at >= ?", f.CreatedFrom.UTC())
	}
	if !f.DeliveredFrom.IsZero() {
		w.add("o.delivered_at >= ?", f.DeliveredFrom.UTC())
	}
	return w
}

func (repo statsRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	err := repo.get(ctx, repo.exec, &n, query, args...)
	return n, err
}

func (repo statsRepository) CountUsers(ctx context.Context) (int, error) {
	return repo.count(ctx, "SELECT COUNT(*) FROM users")
}

func (repo statsRepository) CountRestaurants(ctx context.Context) (int, error) {
	return repo.count(ctx, "SELECT COUNT(*) FROM restaurants")
}

func (repo statsRepository) CountCouriers(ctx context.Context, restID string) (int, error) {
	if restID == "" {
		return repo.count(ctx, "SELECT COUNT(*) FROM couriers")
	}
	return repo.count(ctx, "SELECT COUNT(*) FROM couriers WHERE restaurant_id = ?", restID)
}

func (repo statsRepository) SumOrders(ctx context.Context, filter stats.OrderFilter) (stats.Totals, error) {
	w := orderWhere(filter)
	var t stats.Totals
	err := repo.get(ctx, repo.exec, &t,
		`SELECT COUNT(*) AS count, COALESCE(SUM(o.total), 0) AS revenue, COALESCE(SUM(o.service_fee), 0) AS service_fees
		FROM orders o`+w.String(), w.args...)
	return t, errors.Wrap(err, "summing orders")
}

func (repo statsRepository) CountOrdersByStatus(ctx context.Context, filter stats.OrderFilter) (map[string]int, error) {
	w := orderWhere(filter)
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	err := repo.selectAll(ctx, repo.exec, &rows,
		"SELECT o.status, COUNT(*) AS count FROM orders o"+w.String()+" GROUP BY o.status", w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "counting orders by status")
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (repo statsRepository) RecentOrders(ctx context.Context, filter stats.OrderFilter, limit int) ([]stats.OrderSummary, error) {
	w := orderWhere(filter)
	summaries := make([]stats.OrderSummary, 0, limit)
	err := repo.selectAll(ctx, repo.exec, &summaries,
		`SELECT o.id, o.client_id, o.restaurant_id, o.status, o.paid, o.total, o.created_at
		FROM orders o`+w.String()+` ORDER BY o.created_at DESC LIMIT ?`, append(w.args, limit)...)
	if err != nil {
		return nil, errors.Wrap(err, "listing recent orders")
	}
	for i := range summaries {
		summaries[i].CreatedAt = utc(summaries[i].CreatedAt)
	}
	return summaries, nil
}

func (repo statsRepository) TopDishes(ctx context.Context, filter stats.OrderFilter, limit int) ([]stats.DishCount, error) {
	w := orderWhere(filter)
	top := make([]stats.DishCount, 0, limit)
	err := repo.selectAll(ctx, repo.exec, &top,
		`SELECT oi.dish_id, MAX(oi.name) AS name, SUM(oi.quantity) AS quantity
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id`+w.String()+`
		GROUP BY oi.dish_id
		ORDER BY quantity DESC, name ASC
		LIMIT ?`, append(w.args, limit)...)
	if err != nil {
		return nil, errors.Wrap(err, "ranking dishes")
	}
	return top, nil
}

type recommendRepository struct {
	repository
}

var _ recommend.Repository = (*recommendRepository)(nil)

func NewRecommendRepository(exec core.DBExecutor) *recommendRepository {
	return &recommendRepository{repository{exec: exec}}
}

func (repo recommendRepository) OrderedQuantities(ctx context.Context) (recommend.Quantities, error) {
	var rows []struct {
		ClientID string  `db:"client_id"`
		DishID   string  `db:"dish_id"`
		Quantity float64 `db:"quantity"`
	}
	err := repo.selectAll(ctx, repo.exec, &rows,
		`SELECT o.client_id, oi.dish_id, SUM(oi.quantity) AS quantity
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		GROUP BY o.client_id, oi.dish_id`)
	if err != nil {
		return nil, errors.Wrap(err, "summing ordered quantities")
	}
	qties := make(recommend.Quantities)
	for _, r := range rows {
		if qties[r.ClientID] == nil {
			qties[r.ClientID] = make(map[string]float64)
		}
		qties[r.ClientID][r.DishID] = r.Quantity
	}
	return qties, nil
}

func (repo recommendRepository) RestaurantRatings(ctx context.Context) (map[string]float64, error) {
	var rows []struct {
		RestaurantID string  `db:"restaurant_id"`
		Rating       float64 `db:"rating"`
	}
	err := repo.selectAll(ctx, repo.exec, &rows,
		`SELECT restaurant_id, AVG(rating) AS rating
		FROM reviews
		WHERE type = 'restaurant' AND restaurant_id IS NOT NULL
		GROUP BY restaurant_id`)
	if err != nil {
		return nil, errors.Wrap(err, "averaging restaurant ratings")
	}
	ratings := make(map[string]float64, len(rows))
	for _, r := range rows {
		ratings[r.RestaurantID] = r.Rating
	}
	return ratings, nil
}
