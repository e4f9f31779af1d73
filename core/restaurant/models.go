package restaurant

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chakula/core"
)

type Restaurant struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Name          string          `json:"name"`
	Address       string          `json:"address"`
	Phone         string          `json:"phone"`
	Description   string          `json:"description"`
	OpensAt       string          `json:"opens_at"`  // HH:MM
	ClosesAt      string          `json:"closes_at"` // HH:MM
	Images        core.StringList `json:"images"`
	AverageRating float64         `json:"average_rating"`
	IsOpen        bool            `json:"is_open"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// openAt tells whether the working hours include the time of day of t.
// A window closing before it opens spans midnight. Restaurants without working hours are always open.
func openAt(opensAt, closesAt string, t time.Time) bool {
	opens, ok1 := minutesOfDay(opensAt)
	closes, ok2 := minutesOfDay(closesAt)
	if !ok1 || !ok2 || opens == closes {
		return true
	}
	now := t.Hour()*60 + t.Minute()
	if opens < closes {
		return opens <= now && now < closes
	}
	return now >= opens || now < closes
}

func minutesOfDay(hhmm string) (int, bool) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

type Category struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurant_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewRestaurant struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Address     string   `json:"address" validate:"required,max=255"`
	Phone       string   `json:"phone" validate:"omitempty,max=30"`
	Description string   `json:"description" validate:"max=2000"`
	OpensAt     string   `json:"opens_at" validate:"omitempty,clock"`
	ClosesAt    string   `json:"closes_at" validate:"omitempty,clock"`
	Images      []string `json:"images" validate:"omitempty,dive,required"`
}

func (nr *NewRestaurant) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Address = core.CleanString(nr.Address)
	nr.Phone = core.CleanString(nr.Phone)
	nr.Description = core.CleanString(nr.Description)
	nr.OpensAt = core.CleanString(nr.OpensAt)
	nr.ClosesAt = core.CleanString(nr.ClosesAt)
	return validate.Struct(nr)
}

// UpdateRestaurant is a partial update: blank fields keep their value, a non-nil Images replaces the list.
type UpdateRestaurant struct {
	Name        string   `json:"name" validate:"max=100"`
	Address     string   `json:"address" validate:"max=255"`
	Phone       string   `json:"phone" validate:"max=30"`
	Description string   `json:"description" validate:"max=2000"`
	OpensAt     string   `json:"opens_at" validate:"omitempty,clock"`
	ClosesAt    string   `json:"closes_at" validate:"omitempty,clock"`
	Images      []string `json:"images" validate:"omitempty,dive,required"`
}

func (ur *UpdateRestaurant) Validate(orig Restaurant, validate *validator.Validate) error {
	ur.Name = core.FirstNonEmpty(ur.Name, orig.Name)
	ur.Address = core.FirstNonEmpty(ur.Address, orig.Address)
	ur.Phone = core.FirstNonEmpty(ur.Phone, orig.Phone)
	ur.Description = core.FirstNonEmpty(ur.Description, orig.Description)
	ur.OpensAt = core.FirstNonEmpty(ur.OpensAt, orig.OpensAt)
	ur.ClosesAt = core.FirstNonEmpty(ur.ClosesAt, orig.ClosesAt)
	if ur.Images == nil {
		ur.Images = orig.Images
	}
	return validate.Struct(ur)
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

type NewCategory struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

func (nc *NewCategory) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.ImageURL = core.CleanString(nc.ImageURL)
	return validate.Struct(nc)
}

type UpdateCategory struct {
	Name        string `json:"name" validate:"max=100"`
	Description string `json:"description" validate:"max=1000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

func (uc *UpdateCategory) Validate(orig Category, validate *validator.Validate) error {
	uc.Name = core.FirstNonEmpty(uc.Name, orig.Name)
	uc.Description = core.FirstNonEmpty(uc.Description, orig.Description)
	uc.ImageURL = core.FirstNonEmpty(uc.ImageURL, orig.ImageURL)
	return validate.Struct(uc)
}

// Completion tells a restaurant owner whether they have set up their restaurant yet.
type Completion struct {
	Completed  bool        `json:"completed"`
	Restaurant *Restaurant `json:"restaurant"`
}
