// Package stats builds the dashboards of each role.
package stats

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/courier"
	"github.com/trezcool/chakula/core/order"
	"github.com/trezcool/chakula/core/restaurant"
)

const recentLimit = 5

type (
	// OrderSummary is the light view of an order shown on dashboards.
	OrderSummary struct {
		ID           string    `json:"id" db:"id"`
		ClientID     string    `json:"client_id" db:"client_id"`
		RestaurantID string    `json:"restaurant_id" db:"restaurant_id"`
		Status       string    `json:"status" db:"status"`
		Paid         bool      `json:"paid" db:"paid"`
		Total        int64     `json:"total" db:"total"`
		CreatedAt    time.Time `json:"created_at" db:"created_at"`
	}

	DishCount struct {
		DishID   string `json:"dish_id" db:"dish_id"`
		Name     string `json:"name" db:"name"`
		Quantity int    `json:"quantity" db:"quantity"`
	}

	// OrderFilter selects the orders aggregated by a Repository. Zero fields match everything.
	OrderFilter struct {
		ClientID      string
		RestaurantID  string
		CourierID     string
		Status        string
		Paid          null.Bool
		CreatedFrom   time.Time
		DeliveredFrom time.Time
	}

	Totals struct {
		Count       int   `db:"count"`
		Revenue     int64 `db:"revenue"`
		ServiceFees int64 `db:"service_fees"`
	}

	Admin struct {
		Restaurants    int            `json:"restaurants"`
		Users          int            `json:"users"`
		Orders         int            `json:"orders"`
		Couriers       int            `json:"couriers"`
		Revenue        int64          `json:"revenue"`
		RecentOrders   []OrderSummary `json:"recent_orders"`
		OrdersByStatus map[string]int `json:"orders_by_status"`
	}

	Restaurant struct {
		Revenue      int64          `json:"revenue"`
		Orders       int            `json:"orders"`
		Couriers     int            `json:"couriers"`
		RecentOrders []OrderSummary `json:"recent_orders"`
		TopDishes    []DishCount    `json:"top_dishes"`
	}

	Client struct {
		TotalSpent     int64          `json:"total_spent"`
		SpentThisMonth int64          `json:"spent_this_month"`
		FavoriteDish   *DishCount     `json:"favorite_dish"`
		RecentOrders   []OrderSummary `json:"recent_orders"`
	}

	Courier struct {
		Delivered         int   `json:"delivered"`
		OnTheWay          int   `json:"on_the_way"`
		Assigned          int   `json:"assigned"`
		EarningsToday     int64 `json:"earnings_today"`
		EarningsThisMonth int64 `json:"earnings_this_month"`
	}
)

type (
	Repository interface {
		CountUsers(ctx context.Context) (int, error)
		CountRestaurants(ctx context.Context) (int, error)
		// CountCouriers counts the couriers of restID, or all couriers when restID is empty.
		CountCouriers(ctx context.Context, restID string) (int, error)
		SumOrders(ctx context.Context, filter OrderFilter) (Totals, error)
		CountOrdersByStatus(ctx context.Context, filter OrderFilter) (map[string]int, error)
		RecentOrders(ctx context.Context, filter OrderFilter, limit int) ([]OrderSummary, error)
		// TopDishes ranks dishes by quantity ordered.
		TopDishes(ctx context.Context, filter OrderFilter, limit int) ([]DishCount, error)
	}

	Service interface {
		Admin(ctx context.Context) (Admin, error)
		Restaurant(ctx context.Context, ownerID string) (Restaurant, error)
		Client(ctx context.Context, clientID string) (Client, error)
		Courier(ctx context.Context, courierUserID string) (Courier, error)
	}

	service struct {
		repo       Repository
		restSvc    restaurant.Service
		courierSvc courier.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, restSvc restaurant.Service, courierSvc courier.Service) Service {
	return &service{repo: repo, restSvc: restSvc, courierSvc: courierSvc}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.In(restaurant.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, restaurant.Location).UTC()
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.In(restaurant.Location).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, restaurant.Location).UTC()
}

func (svc *service) Admin(ctx context.Context) (Admin, error) {
	var (
		st  Admin
		err error
	)
	if st.Restaurants, err = svc.repo.CountRestaurants(ctx); err != nil {
		return Admin{}, errors.Wrap(err, "counting restaurants")
	}
	if st.Users, err = svc.repo.CountUsers(ctx); err != nil {
		return Admin{}, errors.Wrap(err, "counting users")
	}
	if st.Couriers, err = svc.repo.CountCouriers(ctx, ""); err != nil {
		return Admin{}, errors.Wrap(err, "counting couriers")
	}

	all, err := svc.repo.SumOrders(ctx, OrderFilter{})
	if err != nil {
		return Admin{}, errors.Wrap(err, "summing orders")
	}
	paid, err := svc.repo.SumOrders(ctx, OrderFilter{Paid: null.BoolFrom(true)})
	if err != nil {
		return Admin{}, errors.Wrap(err, "summing paid orders")
	}
	st.Orders, st.Revenue = all.Count, paid.Revenue

	if st.RecentOrders, err = svc.repo.RecentOrders(ctx, OrderFilter{}, recentLimit); err != nil {
		return Admin{}, errors.Wrap(err, "listing recent orders")
	}

	counts, err := svc.repo.CountOrdersByStatus(ctx, OrderFilter{})
	if err != nil {
		return Admin{}, errors.Wrap(err, "counting orders by status")
	}
	st.OrdersByStatus = make(map[string]int, len(order.AllStatuses))
	for _, s := range order.AllStatuses {
		st.OrdersByStatus[s] = counts[s]
	}
	return st, nil
}

func (svc *service) Restaurant(ctx context.Context, ownerID string) (Restaurant, error) {
	rest, err := svc.restSvc.GetByOwner(ctx, ownerID)
	if err != nil {
		return Restaurant{}, err
	}

	var st Restaurant
	filter := OrderFilter{RestaurantID: rest.ID}
	all, err := svc.repo.SumOrders(ctx, filter)
	if err != nil {
		return Restaurant{}, errors.Wrap(err, "summing orders")
	}
	filter.Paid = null.BoolFrom(true)
	paid, err := svc.repo.SumOrders(ctx, filter)
	if err != nil {
		return Restaurant{}, errors.Wrap(err, "summing paid orders")
	}
	st.Orders, st.Revenue = all.Count, paid.Revenue

	if st.Couriers, err = svc.repo.CountCouriers(ctx, rest.ID); err != nil {
		return Restaurant{}, errors.Wrap(err, "counting couriers")
	}
	if st.RecentOrders, err = svc.repo.RecentOrders(ctx, OrderFilter{RestaurantID: rest.ID}, recentLimit); err != nil {
		return Restaurant{}, errors.Wrap(err, "listing recent orders")
	}
	if st.TopDishes, err = svc.repo.TopDishes(ctx, OrderFilter{RestaurantID: rest.ID}, recentLimit); err != nil {
		return Restaurant{}, errors.Wrap(err, "ranking dishes")
	}
	return st, nil
}

func (svc *service) Client(ctx context.Context, clientID string) (Client, error) {
	var st Client
	filter := OrderFilter{ClientID: clientID, Paid: null.BoolFrom(true)}
	total, err := svc.repo.SumOrders(ctx, filter)
	if err != nil {
		return Client{}, errors.Wrap(err, "summing paid orders")
	}
	filter.CreatedFrom = startOfMonth(core.Now())
	month, err := svc.repo.SumOrders(ctx, filter)
	if err != nil {
		return Client{}, errors.Wrap(err, "summing this month's orders")
	}
	st.TotalSpent, st.SpentThisMonth = total.Revenue, month.Revenue

	top, err := svc.repo.TopDishes(ctx, OrderFilter{ClientID: clientID}, 1)
	if err != nil {
		return Client{}, errors.Wrap(err, "finding favorite dish")
	}
	if len(top) > 0 {
		st.FavoriteDish = &top[0]
	}

	if st.RecentOrders, err = svc.repo.RecentOrders(ctx, OrderFilter{ClientID: clientID}, recentLimit); err != nil {
		return Client{}, errors.Wrap(err, "listing recent orders")
	}
	return st, nil
}

func (svc *service) Courier(ctx context.Context, courierUserID string) (Courier, error) {
	c, err := svc.courierSvc.Profile(ctx, courierUserID)
	if err != nil {
		return Courier{}, err
	}

	var st Courier
	counts, err := svc.repo.CountOrdersByStatus(ctx, OrderFilter{CourierID: c.ID})
	if err != nil {
		return Courier{}, errors.Wrap(err, "counting orders by status")
	}
	st.Delivered = counts[order.StatusDelivered]
	st.OnTheWay = counts[order.StatusOnTheWay]
	st.Assigned = counts[order.StatusAssigned]

	now := core.Now()
	filter := OrderFilter{CourierID: c.ID, Status: order.StatusDelivered, Paid: null.BoolFrom(true)}
	filter.DeliveredFrom = startOfDay(now)
	today, err := svc.repo.SumOrders(ctx, filter)
	if err != nil {
		return Courier{}, errors.Wrap(err, "summing today's earnings")
	}
	filter.DeliveredFrom = startOfMonth(now)
	month, err := svc.repo.SumOrders(ctx, filter)
	if err != nil {
		return Courier{}, errors.Wrap(err, "summing this month's earnings")
	}
	st.EarningsToday, st.EarningsThisMonth = today.ServiceFees, month.ServiceFees
	return st, nil
}
