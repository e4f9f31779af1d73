package dish

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/chakula/core"
)

type Dish struct {
	ID            string          `json:"id"`
	RestaurantID  string          `json:"restaurant_id"`
	CategoryID    string          `json:"category_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         int64           `json:"price"` // minor units
	Available     bool            `json:"available"`
	Tags          core.StringList `json:"tags"`
	Ingredients   core.StringList `json:"ingredients"`
	Images        core.StringList `json:"images"`
	Videos        core.StringList `json:"videos"`
	LikesCount    int             `json:"likes_count"`
	Liked         bool            `json:"liked"` // by the requesting user
	CommentsCount int             `json:"comments_count"`
	Promotion     *Promotion      `json:"promotion"`
	CurrentPrice  int64           `json:"current_price"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PriceAt is the price a client pays at now: the discounted price while the promotion is active.
func (d Dish) PriceAt(now time.Time) int64 {
	if d.Promotion != nil && d.Promotion.IsActive(now) {
		return d.Promotion.DiscountedPrice
	}
	return d.Price
}

type Comment struct {
	ID         string    `json:"id"`
	DishID     string    `json:"dish_id"`
	UserID     string    `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

type NewDish struct {
	CategoryID  string   `json:"category_id" validate:"required"`
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=2000"`
	Price       int64    `json:"price" validate:"min=0"`
	Tags        []string `json:"tags" validate:"omitempty,dive,required,max=50"`
	Ingredients []string `json:"ingredients" validate:"omitempty,dive,required,max=100"`
	Images      []string `json:"images" validate:"omitempty,dive,required"`
	Videos      []string `json:"videos" validate:"omitempty,dive,required"`
}

func (nd *NewDish) Validate(validate *validator.Validate) error {
	nd.CategoryID = core.CleanString(nd.CategoryID)
	nd.Name = core.CleanString(nd.Name)
	nd.Description = core.CleanString(nd.Description)
	nd.Tags = cleanList(nd.Tags)
	nd.Ingredients = cleanList(nd.Ingredients)
	return validate.Struct(nd)
}

// UpdateDish is a partial update: blank fields keep their value and non-nil lists replace the current ones.
type UpdateDish struct {
	CategoryID  string   `json:"category_id"`
	Name        string   `json:"name" validate:"max=100"`
	Description string   `json:"description" validate:"max=2000"`
	Price       *int64   `json:"price" validate:"omitempty,min=0"`
	Tags        []string `json:"tags" validate:"omitempty,dive,required,max=50"`
	Ingredients []string `json:"ingredients" validate:"omitempty,dive,required,max=100"`
	Images      []string `json:"images" validate:"omitempty,dive,required"`
	Videos      []string `json:"videos" validate:"omitempty,dive,required"`
}

func (ud *UpdateDish) Validate(orig Dish, validate *validator.Validate) error {
	ud.CategoryID = core.FirstNonEmpty(ud.CategoryID, orig.CategoryID)
	ud.Name = core.FirstNonEmpty(ud.Name, orig.Name)
	ud.Description = core.FirstNonEmpty(ud.Description, orig.Description)
	if ud.Price == nil {
		price := orig.Price
		ud.Price = &price
	}
	if ud.Tags == nil {
		ud.Tags = orig.Tags
	} else {
		ud.Tags = cleanList(ud.Tags)
	}
	if ud.Ingredients == nil {
		ud.Ingredients = orig.Ingredients
	} else {
		ud.Ingredients = cleanList(ud.Ingredients)
	}
	if ud.Images == nil {
		ud.Images = orig.Images
	}
	if ud.Videos == nil {
		ud.Videos = orig.Videos
	}
	return validate.Struct(ud)
}

type NewComment struct {
	Text string `json:"text" validate:"required,max=1000"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Text = core.CleanString(nc.Text)
	return validate.Struct(nc)
}

type QueryFilter struct {
	RestaurantID string `query:"restaurant"`
	CategoryID   string `query:"category"`
	Search       string `query:"search"`

	IncludeUnavailable bool `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.RestaurantID = core.CleanString(qf.RestaurantID)
	qf.CategoryID = core.CleanString(qf.CategoryID)
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

func cleanList(vals []string) []string {
	if vals == nil {
		return nil
	}
	cleaned := make([]string, 0, len(vals))
	for _, v := range vals {
		cleaned = append(cleaned, core.CleanString(v, true /* lower */))
	}
	return cleaned
}
