package dish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiscountedPrice(t *testing.T) {
	tests := []struct {
		price int64
		pct   int
		want  int64
	}{
		{price: 1000, pct: 10, want: 900},
		{price: 999, pct: 15, want: 849}, // 849.15
		{price: 1250, pct: 50, want: 625},
		{price: 5, pct: 50, want: 3}, // 2.5 rounds half up
		{price: 1000, pct: 100, want: 0},
		{price: 1000, pct: 0, want: 1000},
		{price: 0, pct: 30, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DiscountedPrice(tt.price, tt.pct), "DiscountedPrice(%d, %d)", tt.price, tt.pct)
	}
}

func TestPromotion_IsActive(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	promo := Promotion{Enabled: true, StartsAt: start, EndsAt: end}
	disabled := promo
	disabled.Enabled = false

	tests := []struct {
		name  string
		promo Promotion
		now   time.Time
		want  bool
	}{
		{name: "before start", promo: promo, now: start.Add(-time.Second)},
		{name: "at start", promo: promo, now: start, want: true},
		{name: "inside", promo: promo, now: start.Add(72 * time.Hour), want: true},
		{name: "at end", promo: promo, now: end, want: true},
		{name: "after end", promo: promo, now: end.Add(time.Second)},
		{name: "disabled", promo: disabled, now: start.Add(72 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.promo.IsActive(tt.now))
		})
	}
}

func TestPromotion_Remaining(t *testing.T) {
	end := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	promo := Promotion{Enabled: true, StartsAt: end.Add(-30 * 24 * time.Hour), EndsAt: end}

	tests := []struct {
		name     string
		now      time.Time
		wantDays int
		want     string
	}{
		{name: "ended", now: end.Add(time.Hour), wantDays: 0, want: "ended"},
		{name: "ends now", now: end, wantDays: 0, want: "ended"},
		{name: "an hour left", now: end.Add(-time.Hour), wantDays: 1, want: "1 day left"},
		{name: "exactly a day left", now: end.Add(-24 * time.Hour), wantDays: 1, want: "1 day left"},
		{name: "a day and a bit", now: end.Add(-25 * time.Hour), wantDays: 2, want: "2 days left"},
		{name: "ten days", now: end.Add(-10 * 24 * time.Hour), wantDays: 10, want: "10 days left"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := promo.DaysLeft(tt.now)
			assert.Equal(t, tt.wantDays, days)
			assert.Equal(t, tt.want, RemainingLabel(days))
		})
	}
}

func TestDish_PriceAt(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	d := Dish{Name: "Ugali", Price: 1500}
	assert.Equal(t, int64(1500), d.PriceAt(start), "no promotion")

	d.Promotion = &Promotion{Percentage: 20, DiscountedPrice: 1200, Enabled: true, StartsAt: start, EndsAt: end}
	assert.Equal(t, int64(1200), d.PriceAt(start.Add(time.Hour)), "active promotion")
	assert.Equal(t, int64(1500), d.PriceAt(end.Add(time.Hour)), "expired promotion")

	d.Promotion.Enabled = false
	assert.Equal(t, int64(1500), d.PriceAt(start.Add(time.Hour)), "disabled promotion")

	d.Promotion.Enabled = true
	view := NewPromotionView(d, end.Add(time.Hour))
	assert.False(t, view.IsActive)
	assert.False(t, view.ManuallyDisabled)
	assert.True(t, view.DatesExpired)
	assert.Equal(t, "ended", view.Remaining)
	assert.Equal(t, "Ugali", view.DishName)
}
