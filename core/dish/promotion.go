package dish

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
)

// Promotion is a percentage discount on a dish, valid between StartsAt and EndsAt (inclusive).
type Promotion struct {
	DishID          string      `json:"dish_id"`
	Percentage      int         `json:"percentage"`
	DiscountedPrice int64       `json:"discounted_price"`
	StartsAt        time.Time   `json:"starts_at"`
	EndsAt          time.Time   `json:"ends_at"`
	Enabled         bool        `json:"enabled"`
	Message         null.String `json:"message"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// DiscountedPrice applies pct percent off price, rounding half up to the minor unit.
func DiscountedPrice(price int64, pct int) int64 {
	if pct <= 0 {
		return price
	}
	if pct >= 100 {
		return 0
	}
	return (price*int64(100-pct) + 50) / 100
}

func (p Promotion) IsActive(now time.Time) bool {
	return p.Enabled && !now.Before(p.StartsAt) && !now.After(p.EndsAt)
}

// DaysLeft is the number of started days until the promotion ends.
func (p Promotion) DaysLeft(now time.Time) int {
	return int(math.Ceil(p.EndsAt.Sub(now).Hours() / 24))
}

func RemainingLabel(daysLeft int) string {
	switch {
	case daysLeft <= 0:
		return "ended"
	case daysLeft == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", daysLeft)
	}
}

// PromotionView is a promotion as presented to restaurant owners and clients.
type PromotionView struct {
	Promotion
	DishName         string `json:"dish_name"`
	RestaurantID     string `json:"restaurant_id"`
	Price            int64  `json:"price"`
	IsActive         bool   `json:"is_active"`
	ManuallyDisabled bool   `json:"manually_disabled"`
	DatesExpired     bool   `json:"dates_expired"`
	Remaining        string `json:"remaining"`
}

func NewPromotionView(d Dish, now time.Time) PromotionView {
	p := *d.Promotion
	return PromotionView{
		Promotion:        p,
		DishName:         d.Name,
		RestaurantID:     d.RestaurantID,
		Price:            d.Price,
		IsActive:         p.IsActive(now),
		ManuallyDisabled: !p.Enabled,
		DatesExpired:     now.After(p.EndsAt),
		Remaining:        RemainingLabel(p.DaysLeft(now)),
	}
}

type ApplyPromotion struct {
	Percentage int       `json:"percentage" validate:"required,min=1,max=100"`
	StartsAt   time.Time `json:"starts_at" validate:"required"`
	EndsAt     time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Enabled    *bool     `json:"enabled"`
	Message    string    `json:"message" validate:"max=255"`
}

func (ap *ApplyPromotion) Validate(validate *validator.Validate) error {
	ap.Message = core.CleanString(ap.Message)
	ap.StartsAt = ap.StartsAt.UTC()
	ap.EndsAt = ap.EndsAt.UTC()
	return validate.Struct(ap)
}

type SetPromotionStatus struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (sp SetPromotionStatus) Validate(validate *validator.Validate) error { return validate.Struct(sp) }
