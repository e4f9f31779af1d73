package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/order"
)

const orderColumns = `id, client_id, restaurant_id, courier_id, address, latitude, longitude, note, status,
	estimated_minutes, paid, subtotal, service_fee, total, prepared_at, arrived_at, delivered_at, created_at, updated_at`

type orderRow struct {
	ID               string       `db:"id"`
	ClientID         string       `db:"client_id"`
	RestaurantID     string       `db:"restaurant_id"`
	CourierID        null.String  `db:"courier_id"`
	Address          string       `db:"address"`
	Latitude         null.Float64 `db:"latitude"`
	Longitude        null.Float64 `db:"longitude"`
	Note             string       `db:"note"`
	Status           string       `db:"status"`
	EstimatedMinutes null.Int     `db:"estimated_minutes"`
	Paid             bool         `db:"paid"`
	Subtotal         int64        `db:"subtotal"`
	ServiceFee       int64        `db:"service_fee"`
	Total            int64        `db:"total"`
	PreparedAt       null.Time    `db:"prepared_at"`
	ArrivedAt        null.Time    `db:"arrived_at"`
	DeliveredAt      null.Time    `db:"delivered_at"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

func toOrderRow(o order.Order) orderRow {
	return orderRow{
		ID:               o.ID,
		ClientID:         o.ClientID,
		RestaurantID:     o.RestaurantID,
		CourierID:        o.CourierID,
		Address:          o.Address,
		Latitude:         o.Latitude,
		Longitude:        o.Longitude,
		Note:             o.Note,
		Status:           o.Status,
		EstimatedMinutes: o.EstimatedMinutes,
		Paid:             o.Paid,
		Subtotal:         o.Subtotal,
		ServiceFee:       o.ServiceFee,
		Total:            o.Total,
		PreparedAt:       utcNull(o.PreparedAt),
		ArrivedAt:        utcNull(o.ArrivedAt),
		DeliveredAt:      utcNull(o.DeliveredAt),
		CreatedAt:        utc(o.CreatedAt),
		UpdatedAt:        utc(o.UpdatedAt),
	}
}

func (r orderRow) order(items []order.Item) order.Order {
	if items == nil {
		items = []order.Item{}
	}
	return order.Order{
		ID:               r.ID,
		ClientID:         r.ClientID,
		RestaurantID:     r.RestaurantID,
		CourierID:        r.CourierID,
		Items:            items,
		Address:          r.Address,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		Note:             r.Note,
		Status:           r.Status,
		EstimatedMinutes: r.EstimatedMinutes,
		Paid:             r.Paid,
		Subtotal:         r.Subtotal,
		ServiceFee:       r.ServiceFee,
		Total:            r.Total,
		PreparedAt:       utcNull(r.PreparedAt),
		ArrivedAt:        utcNull(r.ArrivedAt),
		DeliveredAt:      utcNull(r.DeliveredAt),
		CreatedAt:        utc(r.CreatedAt),
		UpdatedAt:        utc(r.UpdatedAt),
	}
}

type orderItemRow struct {
	OrderID string `db:"order_id"`
	order.Item
}

type orderRepository struct {
	repository
}

var _ order.Repository = (*orderRepository)(nil)

func NewOrderRepository(exec core.DBExecutor) *orderRepository {
	return &orderRepository{repository{exec: exec}}
}

func (repo orderRepository) CreateOrder(ctx context.Context, o order.Order, exec ...core.DBExecutor) (order.Order, error) {
	o.ID = newID()
	r := toOrderRow(o)
	exe := repo.getExec(exec)
	_, err := repo.execute(ctx, exe,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ClientID, r.RestaurantID, r.CourierID, r.Address, r.Latitude, r.Longitude, r.Note, r.Status,
		r.EstimatedMinutes, r.Paid, r.Subtotal, r.ServiceFee, r.Total, r.PreparedAt, r.ArrivedAt, r.DeliveredAt,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "inserting order")
	}

	for i, it := range o.Items {
		_, err = repo.execute(ctx, exe,
			`INSERT INTO order_items (order_id, position, dish_id, name, unit_price, quantity, image) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ID, i, it.DishID, it.Name, it.UnitPrice, it.Quantity, it.Image)
		if err != nil {
			return order.Order{}, errors.Wrap(err, "inserting order item")
		}
	}
	return r.order(o.Items), nil
}

// withItems loads the items of every order in rows.
func (repo orderRepository) withItems(ctx context.Context, exe core.DBExecutor, rows []orderRow) ([]order.Order, error) {
	orders := make([]order.Order, 0, len(rows))
	if len(rows) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var itemRows []orderItemRow
	err := repo.selectIn(ctx, exe, &itemRows,
		`SELECT order_id, dish_id, name, unit_price, quantity, image FROM order_items
		WHERE order_id IN (?)
		ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "loading order items")
	}
	items := make(map[string][]order.Item, len(rows))
	for _, ir := range itemRows {
		items[ir.OrderID] = append(items[ir.OrderID], ir.Item)
	}

	for _, r := range rows {
		orders = append(orders, r.order(items[r.ID]))
	}
	return orders, nil
}

func (repo orderRepository) GetOrder(ctx context.Context, id string, exec ...core.DBExecutor) (order.Order, error) {
	if !validID(id) {
		return order.Order{}, order.ErrNotFound
	}
	exe := repo.getExec(exec)
	var r orderRow
	if err := repo.get(ctx, exe, &r, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id); err != nil {
		return order.Order{}, trapNoRowsErr(err, order.ErrNotFound, "finding order")
	}
	orders, err := repo.withItems(ctx, exe, []orderRow{r})
	if err != nil {
		return order.Order{}, err
	}
	return orders[0], nil
}

func (repo orderRepository) QueryOrders(ctx context.Context, filter *order.QueryFilter, exec ...core.DBExecutor) ([]order.Order, error) {
	var w where
	if filter != nil {
		if filter.ClientID != "" {
			w.add("client_id = ?", filter.ClientID)
		}
		if filter.RestaurantID != "" {
			w.add("restaurant_id = ?", filter.RestaurantID)
		}
		if filter.CourierID != "" {
			w.add("courier_id = ?", filter.CourierID)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		if filter.Paid != nil {
			w.add("paid = ?", *filter.Paid)
		}
	}

	exe := repo.getExec(exec)
	var rows []orderRow
	if err := repo.selectAll(ctx, exe, &rows, "SELECT "+orderColumns+" FROM orders"+w.String()+" ORDER BY created_at DESC", w.args...); err != nil {
		return nil, errors.Wrap(err, "querying orders")
	}
	return repo.withItems(ctx, exe, rows)
}

func (repo orderRepository) UpdateOrder(ctx context.Context, o order.Order, exec ...core.DBExecutor) (order.Order, error) {
	r := toOrderRow(o)
	n, err := repo.execute(ctx, repo.getExec(exec),
		`UPDATE orders SET courier_id = ?, address = ?, latitude = ?, longitude = ?, note = ?, status = ?,
			estimated_minutes = ?, paid = ?, subtotal = ?, service_fee = ?, total = ?, prepared_at = ?, arrived_at = ?,
			delivered_at = ?, updated_at = ?
		WHERE id = ?`,
		r.CourierID, r.Address, r.Latitude, r.Longitude, r.Note, r.Status, r.EstimatedMinutes, r.Paid, r.Subtotal,
		r.ServiceFee, r.Total, r.PreparedAt, r.ArrivedAt, r.DeliveredAt, r.UpdatedAt, r.ID)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "updating order")
	}
	if n == 0 {
		return order.Order{}, order.ErrNotFound
	}
	return r.order(o.Items), nil
}

func (repo orderRepository) DeleteOrder(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := repo.execute(ctx, repo.getExec(exec), "DELETE FROM orders WHERE id = ?", id); err != nil {
		return errors.Wrap(err, "deleting order")
	}
	return nil
}
