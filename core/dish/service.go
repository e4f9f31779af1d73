package dish

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
)

var (
	ErrNotFound          = core.NewNotFoundError("dish not found")
	ErrPromotionNotFound = core.NewNotFoundError("promotion not found")
	ErrInvalidCategory   = errors.New("category not found")
)

type (
	Repository interface {
		CreateDish(ctx context.Context, d Dish, exec ...core.DBExecutor) (Dish, error)
		// GetDish loads a dish with its promotion, like and comment counts. Liked is computed for viewerID.
		GetDish(ctx context.Context, id, viewerID string, exec ...core.DBExecutor) (Dish, error)
		// QueryDishes lists dishes by name. Only available dishes unless filter.IncludeUnavailable.
		QueryDishes(ctx context.Context, filter *QueryFilter, viewerID string, exec ...core.DBExecutor) ([]Dish, error)
		// QueryPromotedDishes lists the dishes having a promotion, of restID or of all restaurants.
		QueryPromotedDishes(ctx context.Context, restID string, exec ...core.DBExecutor) ([]Dish, error)
		UpdateDish(ctx context.Context, d Dish, exec ...core.DBExecutor) (Dish, error)
		DeleteDish(ctx context.Context, id string, exec ...core.DBExecutor) error
		CategoryBelongsTo(ctx context.Context, catID, restID string, exec ...core.DBExecutor) (bool, error)

		HasLiked(ctx context.Context, dishID, userID string, exec ...core.DBExecutor) (bool, error)
		SetLike(ctx context.Context, dishID, userID string, liked bool, exec ...core.DBExecutor) error

		CreateComment(ctx context.Context, c Comment, exec ...core.DBExecutor) (Comment, error)
		// QueryComments lists the comments on a dish, newest first.
		QueryComments(ctx context.Context, dishID string, exec ...core.DBExecutor) ([]Comment, error)

		UpsertPromotion(ctx context.Context, p Promotion, exec ...core.DBExecutor) (Promotion, error)
		DeletePromotion(ctx context.Context, dishID string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, restID string, nd NewDish) (Dish, error)
		// Get returns any dish, available or not.
		Get(ctx context.Context, id, viewerID string) (Dish, error)
		// GetOwned returns ErrNotFound unless the dish belongs to restID.
		GetOwned(ctx context.Context, restID, id string) (Dish, error)
		GetMany(ctx context.Context, ids []string) (map[string]Dish, error)
		ListByRestaurant(ctx context.Context, restID string, includeUnavailable bool, viewerID string) ([]Dish, error)
		ListAvailable(ctx context.Context, filter *QueryFilter, viewerID string) ([]Dish, error)
		Update(ctx context.Context, d Dish, ud UpdateDish) (Dish, error)
		Delete(ctx context.Context, restID, id string) error
		ToggleAvailability(ctx context.Context, restID, id string) (Dish, error)

		ToggleLike(ctx context.Context, dishID, userID string) (Dish, error)
		AddComment(ctx context.Context, dishID string, author Author, nc NewComment) (Comment, error)
		ListComments(ctx context.Context, dishID string) ([]Comment, error)

		ApplyPromotion(ctx context.Context, restID, dishID string, ap ApplyPromotion) (PromotionView, error)
		SetPromotionStatus(ctx context.Context, restID, dishID string, enabled bool) (PromotionView, error)
		RemovePromotion(ctx context.Context, restID, dishID string) error
		GetPromotion(ctx context.Context, restID, dishID string) (PromotionView, error)
		ListPromotions(ctx context.Context, restID string) ([]PromotionView, error)
		ListActivePromotions(ctx context.Context) ([]PromotionView, error)
	}

	// Author identifies the user commenting on a dish.
	Author struct {
		ID   string
		Name string
	}

	service struct {
		db   core.DB
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository) Service {
	return &service{db: db, repo: repo}
}

func withCurrentPrice(d Dish) Dish {
	d.CurrentPrice = d.PriceAt(core.NowFunc())
	return d
}

func withCurrentPrices(dishes []Dish) []Dish {
	for i := range dishes {
		dishes[i] = withCurrentPrice(dishes[i])
	}
	return dishes
}

func (svc *service) checkCategory(ctx context.Context, catID, restID string) error {
	ok, err := svc.repo.CategoryBelongsTo(ctx, catID, restID)
	if err != nil {
		return errors.Wrap(err, "checking category")
	}
	if !ok {
		return core.NewValidationError(ErrInvalidCategory, core.FieldError{Field: "category_id", Error: ErrInvalidCategory.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, restID string, nd NewDish) (Dish, error) {
	if err := svc.checkCategory(ctx, nd.CategoryID, restID); err != nil {
		return Dish{}, err
	}
	now := core.Now()
	d, err := svc.repo.CreateDish(ctx, Dish{
		RestaurantID: restID,
		CategoryID:   nd.CategoryID,
		Name:         nd.Name,
		Description:  nd.Description,
		Price:        nd.Price,
		Available:    true,
		Tags:         nd.Tags,
		Ingredients:  nd.Ingredients,
		Images:       nd.Images,
		Videos:       nd.Videos,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Dish{}, errors.Wrap(err, "creating dish")
	}
	return withCurrentPrice(d), nil
}

func (svc *service) Get(ctx context.Context, id, viewerID string) (Dish, error) {
	d, err := svc.repo.GetDish(ctx, id, viewerID)
	if err != nil {
		return Dish{}, err
	}
	return withCurrentPrice(d), nil
}

func (svc *service) GetOwned(ctx context.Context, restID, id string) (Dish, error) {
	d, err := svc.Get(ctx, id, "")
	if err != nil {
		return Dish{}, err
	}
	if d.RestaurantID != restID {
		return Dish{}, ErrNotFound
	}
	return d, nil
}

func (svc *service) GetMany(ctx context.Context, ids []string) (map[string]Dish, error) {
	dishes := make(map[string]Dish, len(ids))
	for _, id := range ids {
		if _, ok := dishes[id]; ok {
			continue
		}
		d, err := svc.Get(ctx, id, "")
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				continue
			}
			return nil, err
		}
		dishes[id] = d
	}
	return dishes, nil
}

func (svc *service) ListByRestaurant(ctx context.Context, restID string, includeUnavailable bool, viewerID string) ([]Dish, error) {
	dishes, err := svc.repo.QueryDishes(ctx, &QueryFilter{RestaurantID: restID, IncludeUnavailable: includeUnavailable}, viewerID)
	if err != nil {
		return nil, err
	}
	return withCurrentPrices(dishes), nil
}

func (svc *service) ListAvailable(ctx context.Context, filter *QueryFilter, viewerID string) ([]Dish, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.IncludeUnavailable = false
	dishes, err := svc.repo.QueryDishes(ctx, filter, viewerID)
	if err != nil {
		return nil, err
	}
	return withCurrentPrices(dishes), nil
}

func (svc *service) Update(ctx context.Context, d Dish, ud UpdateDish) (Dish, error) {
	if ud.CategoryID != d.CategoryID {
		if err := svc.checkCategory(ctx, ud.CategoryID, d.RestaurantID); err != nil {
			return Dish{}, err
		}
	}

	priceChanged := *ud.Price != d.Price
	d.CategoryID = ud.CategoryID
	d.Name = ud.Name
	d.Description = ud.Description
	d.Price = *ud.Price
	d.Tags = ud.Tags
	d.Ingredients = ud.Ingredients
	d.Images = ud.Images
	d.Videos = ud.Videos
	d.UpdatedAt = core.Now()

	err := core.InTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.repo.UpdateDish(ctx, d, tx); err != nil {
			return errors.Wrap(err, "updating dish")
		}
		if priceChanged && d.Promotion != nil {
			promo := *d.Promotion
			promo.DiscountedPrice = DiscountedPrice(d.Price, promo.Percentage)
			promo.UpdatedAt = d.UpdatedAt
			if _, err := svc.repo.UpsertPromotion(ctx, promo, tx); err != nil {
				return errors.Wrap(err, "updating promotion price")
			}
		}
		return nil
	})
	if err != nil {
		return Dish{}, err
	}
	return svc.Get(ctx, d.ID, "")
}

func (svc *service) Delete(ctx context.Context, restID, id string) error {
	d, err := svc.GetOwned(ctx, restID, id)
	if err != nil {
		return err
	}
	return svc.repo.DeleteDish(ctx, d.ID)
}

func (svc *service) ToggleAvailability(ctx context.Context, restID, id string) (Dish, error) {
	d, err := svc.GetOwned(ctx, restID, id)
	if err != nil {
		return Dish{}, err
	}
	d.Available = !d.Available
	d.UpdatedAt = core.Now()
	if _, err = svc.repo.UpdateDish(ctx, d); err != nil {
		return Dish{}, errors.Wrap(err, "updating dish")
	}
	return d, nil
}

func (svc *service) ToggleLike(ctx context.Context, dishID, userID string) (Dish, error) {
	if _, err := svc.repo.GetDish(ctx, dishID, userID); err != nil {
		return Dish{}, err
	}
	err := core.InTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		liked, err := svc.repo.HasLiked(ctx, dishID, userID, tx)
		if err != nil {
			return errors.Wrap(err, "checking like")
		}
		return svc.repo.SetLike(ctx, dishID, userID, !liked, tx)
	})
	if err != nil {
		return Dish{}, err
	}
	return svc.Get(ctx, dishID, userID)
}

func (svc *service) AddComment(ctx context.Context, dishID string, author Author, nc NewComment) (Comment, error) {
	if _, err := svc.repo.GetDish(ctx, dishID, ""); err != nil {
		return Comment{}, err
	}
	c, err := svc.repo.CreateComment(ctx, Comment{
		DishID:    dishID,
		UserID:    author.ID,
		Text:      nc.Text,
		CreatedAt: core.Now(),
	})
	if err != nil {
		return Comment{}, errors.Wrap(err, "creating comment")
	}
	c.AuthorName = author.Name
	return c, nil
}

func (svc *service) ListComments(ctx context.Context, dishID string) ([]Comment, error) {
	if _, err := svc.repo.GetDish(ctx, dishID, ""); err != nil {
		return nil, err
	}
	return svc.repo.QueryComments(ctx, dishID)
}

func (svc *service) ApplyPromotion(ctx context.Context, restID, dishID string, ap ApplyPromotion) (PromotionView, error) {
	d, err := svc.GetOwned(ctx, restID, dishID)
	if err != nil {
		return PromotionView{}, err
	}

	now := core.Now()
	promo := Promotion{
		DishID:          d.ID,
		Percentage:      ap.Percentage,
		DiscountedPrice: DiscountedPrice(d.Price, ap.Percentage),
		StartsAt:        ap.StartsAt,
		EndsAt:          ap.EndsAt,
		Enabled:         ap.Enabled == nil || *ap.Enabled,
		Message:         null.NewString(ap.Message, ap.Message != ""),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if d.Promotion != nil {
		promo.CreatedAt = d.Promotion.CreatedAt
	}
	if promo, err = svc.repo.UpsertPromotion(ctx, promo); err != nil {
		return PromotionView{}, errors.Wrap(err, "saving promotion")
	}
	d.Promotion = &promo
	return NewPromotionView(d, core.NowFunc()), nil
}

func (svc *service) getPromoted(ctx context.Context, restID, dishID string) (Dish, error) {
	d, err := svc.GetOwned(ctx, restID, dishID)
	if err != nil {
		return Dish{}, err
	}
	if d.Promotion == nil {
		return Dish{}, ErrPromotionNotFound
	}
	return d, nil
}

func (svc *service) SetPromotionStatus(ctx context.Context, restID, dishID string, enabled bool) (PromotionView, error) {
	d, err := svc.getPromoted(ctx, restID, dishID)
	if err != nil {
		return PromotionView{}, err
	}
	promo := *d.Promotion
	promo.Enabled = enabled
	promo.UpdatedAt = core.Now()
	if promo, err = svc.repo.UpsertPromotion(ctx, promo); err != nil {
		return PromotionView{}, errors.Wrap(err, "saving promotion")
	}
	d.Promotion = &promo
	return NewPromotionView(d, core.NowFunc()), nil
}

func (svc *service) RemovePromotion(ctx context.Context, restID, dishID string) error {
	d, err := svc.getPromoted(ctx, restID, dishID)
	if err != nil {
		return err
	}
	return svc.repo.DeletePromotion(ctx, d.ID)
}

func (svc *service) GetPromotion(ctx context.Context, restID, dishID string) (PromotionView, error) {
	d, err := svc.getPromoted(ctx, restID, dishID)
	if err != nil {
		return PromotionView{}, err
	}
	return NewPromotionView(d, core.NowFunc()), nil
}

func (svc *service) ListPromotions(ctx context.Context, restID string) ([]PromotionView, error) {
	dishes, err := svc.repo.QueryPromotedDishes(ctx, restID)
	if err != nil {
		return nil, err
	}
	now := core.NowFunc()
	views := make([]PromotionView, 0, len(dishes))
	for _, d := range dishes {
		views = append(views, NewPromotionView(d, now))
	}
	return views, nil
}

func (svc *service) ListActivePromotions(ctx context.Context) ([]PromotionView, error) {
	dishes, err := svc.repo.QueryPromotedDishes(ctx, "")
	if err != nil {
		return nil, err
	}
	now := core.NowFunc()
	views := make([]PromotionView, 0, len(dishes))
	for _, d := range dishes {
		if d.Available && d.Promotion.IsActive(now) {
			views = append(views, NewPromotionView(d, now))
		}
	}
	return views, nil
}
