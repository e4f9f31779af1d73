package order

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
)

// Statuses, in lifecycle order.
const (
	StatusPending   = "pending"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusAssigned  = "assigned"
	StatusOnTheWay  = "on_the_way"
	StatusArrived   = "arrived"
	StatusDelivered = "delivered"
)

var (
	AllStatuses = []string{
		StatusPending, StatusPreparing, StatusReady, StatusAssigned, StatusOnTheWay, StatusArrived, StatusDelivered,
	}

	statusRanks = func() map[string]int {
		ranks := make(map[string]int, len(AllStatuses))
		for i, s := range AllStatuses {
			ranks[s] = i
		}
		return ranks
	}()
)

// canMoveTo tells whether an order may go from status `from` to status `to`.
// Orders only move forward and reach StatusAssigned through an assignment.
func canMoveTo(from, to string) bool {
	fromRank, ok1 := statusRanks[from]
	toRank, ok2 := statusRanks[to]
	return ok1 && ok2 && to != StatusAssigned && toRank > fromRank
}

type Item struct {
	DishID    string `json:"dish_id" db:"dish_id"`
	Name      string `json:"name" db:"name"`
	UnitPrice int64  `json:"unit_price" db:"unit_price"`
	Quantity  int    `json:"quantity" db:"quantity"`
	Image     string `json:"image" db:"image"`
}

type Order struct {
	ID               string       `json:"id"`
	ClientID         string       `json:"client_id"`
	RestaurantID     string       `json:"restaurant_id"`
	CourierID        null.String  `json:"courier_id"`
	Items            []Item       `json:"items"`
	Address          string       `json:"address"`
	Latitude         null.Float64 `json:"latitude"`
	Longitude        null.Float64 `json:"longitude"`
	Note             string       `json:"note"`
	Status           string       `json:"status"`
	EstimatedMinutes null.Int     `json:"estimated_minutes"`
	Paid             bool         `json:"paid"`
	Subtotal         int64        `json:"subtotal"`
	ServiceFee       int64        `json:"service_fee"`
	Total            int64        `json:"total"`
	PreparedAt       null.Time    `json:"prepared_at"`
	ArrivedAt        null.Time    `json:"arrived_at"`
	DeliveredAt      null.Time    `json:"delivered_at"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// setStatus moves the order to status and stamps the matching milestone.
func (o *Order) setStatus(status string, now time.Time) {
	o.Status = status
	o.UpdatedAt = now
	switch status {
	case StatusPreparing:
		o.PreparedAt = null.TimeFrom(now)
	case StatusArrived:
		o.ArrivedAt = null.TimeFrom(now)
	case StatusDelivered:
		o.DeliveredAt = null.TimeFrom(now)
	}
}

type NewItem struct {
	DishID   string `json:"dish_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=100"`
}

// NewOrder is what a client sends to place an order. Prices and totals are computed server-side.
type NewOrder struct {
	RestaurantID string    `json:"restaurant_id" validate:"required"`
	Items        []NewItem `json:"items" validate:"required,min=1,dive"`
	Address      string    `json:"address" validate:"required,max=255"`
	Latitude     *float64  `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64  `json:"longitude" validate:"omitempty,longitude"`
	Note         string    `json:"note" validate:"max=500"`
}

func (no *NewOrder) Validate(validate *validator.Validate) error {
	no.RestaurantID = core.CleanString(no.RestaurantID)
	no.Address = core.CleanString(no.Address)
	no.Note = core.CleanString(no.Note)
	return validate.Struct(no)
}

// quantities merges the quantities of items ordered more than once, keeping the order of first appearance.
func (no NewOrder) quantities() ([]string, map[string]int) {
	ids := make([]string, 0, len(no.Items))
	qties := make(map[string]int, len(no.Items))
	for _, it := range no.Items {
		if _, ok := qties[it.DishID]; !ok {
			ids = append(ids, it.DishID)
		}
		qties[it.DishID] += it.Quantity
	}
	return ids, qties
}

type ChangeStatus struct {
	Status string `json:"status" validate:"required,oneof=pending preparing ready assigned on_the_way arrived delivered"`
}

func (cs *ChangeStatus) Validate(validate *validator.Validate) error {
	cs.Status = core.CleanString(cs.Status, true /* lower */)
	return validate.Struct(cs)
}

type Estimate struct {
	Minutes int `json:"minutes" validate:"required,min=1,max=1440"`
}

func (e Estimate) Validate(validate *validator.Validate) error { return validate.Struct(e) }

type Assign struct {
	CourierID string `json:"courier_id" validate:"required"`
}

func (a *Assign) Validate(validate *validator.Validate) error {
	a.CourierID = core.CleanString(a.CourierID)
	return validate.Struct(a)
}

type QueryFilter struct {
	ClientID     string `query:"-"`
	RestaurantID string `query:"-"`
	CourierID    string `query:"-"`
	Status       string `query:"status"`
	Paid         *bool  `query:"-"`
}
