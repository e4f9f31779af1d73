package review

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/courier"
	"github.com/trezcool/chakula/core/restaurant"
	"github.com/trezcool/chakula/core/user"
)

const (
	TypeRestaurant = "restaurant"
	TypeCourier    = "courier"
)

var (
	ErrNotFound  = core.NewNotFoundError("review not found")
	ErrForbidden = core.NewForbiddenError("only the author may change this review")

	errTargetNotFound = errors.New("review target not found")
)

type Review struct {
	ID           string      `json:"id"`
	ClientID     string      `json:"client_id"`
	AuthorName   string      `json:"author_name"`
	Type         string      `json:"type"`
	RestaurantID null.String `json:"restaurant_id"`
	CourierID    null.String `json:"courier_id"`
	OrderID      null.String `json:"order_id"`
	Rating       int         `json:"rating"`
	Comment      string      `json:"comment"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type NewReview struct {
	Type         string `json:"type" validate:"required,oneof=restaurant courier"`
	RestaurantID string `json:"restaurant_id" validate:"required_if=Type restaurant"`
	CourierID    string `json:"courier_id" validate:"required_if=Type courier"`
	OrderID      string `json:"order_id"`
	Rating       int    `json:"rating" validate:"min=0,max=5"`
	Comment      string `json:"comment" validate:"max=1000"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Type = core.CleanString(nr.Type, true /* lower */)
	nr.RestaurantID = core.CleanString(nr.RestaurantID)
	nr.CourierID = core.CleanString(nr.CourierID)
	nr.OrderID = core.CleanString(nr.OrderID)
	nr.Comment = core.CleanString(nr.Comment)
	return validate.Struct(nr)
}

type UpdateReview struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

func (ur *UpdateReview) Validate(validate *validator.Validate) error {
	if ur.Comment != nil {
		c := core.CleanString(*ur.Comment)
		ur.Comment = &c
	}
	return validate.Struct(ur)
}

// QueryFilter narrows a listing to one review target. Empty fields match everything.
type QueryFilter struct {
	RestaurantID string
	CourierID    string
}

// Result is a page of reviews.
type Result struct {
	Items       []Review `json:"items"`
	TotalPages  int      `json:"total_pages"`
	CurrentPage int      `json:"current_page"`
}

type (
	Repository interface {
		CreateReview(ctx context.Context, rev Review, exec ...core.DBExecutor) (Review, error)
		GetReview(ctx context.Context, id string, exec ...core.DBExecutor) (Review, error)
		UpdateReview(ctx context.Context, rev Review, exec ...core.DBExecutor) (Review, error)
		DeleteReview(ctx context.Context, id string, exec ...core.DBExecutor) error
		// QueryReviews returns a page of reviews, newest first, along with the total count.
		QueryReviews(ctx context.Context, filter QueryFilter, page core.Page, exec ...core.DBExecutor) ([]Review, int, error)
	}

	Service interface {
		Create(ctx context.Context, author user.User, nr NewReview) (Review, error)
		Update(ctx context.Context, id string, author user.User, ur UpdateReview) (Review, error)
		Delete(ctx context.Context, id string, actor user.User) error
		List(ctx context.Context, page core.Page) (Result, error)
		ListForRestaurant(ctx context.Context, restID string) ([]Review, error)
		ListForCourier(ctx context.Context, courierID string, page core.Page) (Result, error)
	}

	service struct {
		db         core.DB
		repo       Repository
		restSvc    restaurant.Service
		courierSvc courier.Service
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, restSvc restaurant.Service, courierSvc courier.Service) Service {
	return &service{db: db, repo: repo, restSvc: restSvc, courierSvc: courierSvc}
}

func (svc *service) checkTarget(ctx context.Context, nr NewReview) error {
	var err error
	field := "restaurant_id"
	if nr.Type == TypeCourier {
		field = "courier_id"
		_, err = svc.courierSvc.Get(ctx, nr.CourierID)
	} else {
		_, err = svc.restSvc.Get(ctx, nr.RestaurantID)
	}
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(errTargetNotFound, core.FieldError{Field: field, Error: errTargetNotFound.Error()})
		}
		return errors.Wrap(err, "finding review target")
	}
	return nil
}

// refresh keeps the rating of the reviewed courier in line with their reviews.
func (svc *service) refresh(ctx context.Context, rev Review, exec core.DBExecutor) error {
	if rev.Type != TypeCourier || !rev.CourierID.Valid {
		return nil
	}
	return errors.Wrap(svc.courierSvc.RecomputeRating(ctx, rev.CourierID.String, exec), "recomputing courier rating")
}

func (svc *service) Create(ctx context.Context, author user.User, nr NewReview) (Review, error) {
	if err := svc.checkTarget(ctx, nr); err != nil {
		return Review{}, err
	}

	now := core.Now()
	rev := Review{
		ClientID:   author.ID,
		AuthorName: author.FullName(),
		Type:       nr.Type,
		OrderID:    null.NewString(nr.OrderID, nr.OrderID != ""),
		Rating:     nr.Rating,
		Comment:    nr.Comment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if nr.Type == TypeCourier {
		rev.CourierID = null.StringFrom(nr.CourierID)
	} else {
		rev.RestaurantID = null.StringFrom(nr.RestaurantID)
	}

	err := core.InTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if rev, err = svc.repo.CreateReview(ctx, rev, tx); err != nil {
			return errors.Wrap(err, "creating review")
		}
		return svc.refresh(ctx, rev, tx)
	})
	if err != nil {
		return Review{}, err
	}
	return rev, nil
}

func (svc *service) Update(ctx context.Context, id string, author user.User, ur UpdateReview) (Review, error) {
	rev, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return Review{}, err
	}
	if rev.ClientID != author.ID {
		return Review{}, ErrForbidden
	}

	if ur.Rating != nil {
		rev.Rating = *ur.Rating
	}
	if ur.Comment != nil {
		rev.Comment = *ur.Comment
	}
	rev.UpdatedAt = core.Now()

	err = core.InTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if rev, err = svc.repo.UpdateReview(ctx, rev, tx); err != nil {
			return errors.Wrap(err, "updating review")
		}
		return svc.refresh(ctx, rev, tx)
	})
	if err != nil {
		return Review{}, err
	}
	return rev, nil
}

func (svc *service) Delete(ctx context.Context, id string, actor user.User) error {
	rev, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if rev.ClientID != actor.ID && !actor.IsAdmin() {
		return ErrForbidden
	}
	return core.InTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.repo.DeleteReview(ctx, rev.ID, tx); err != nil {
			return errors.Wrap(err, "deleting review")
		}
		return svc.refresh(ctx, rev, tx)
	})
}

func (svc *service) page(ctx context.Context, filter QueryFilter, page core.Page) (Result, error) {
	page.Clean()
	revs, total, err := svc.repo.QueryReviews(ctx, filter, page)
	if err != nil {
		return Result{}, err
	}
	return Result{Items: revs, TotalPages: page.TotalPages(total), CurrentPage: page.Page}, nil
}

func (svc *service) List(ctx context.Context, page core.Page) (Result, error) {
	return svc.page(ctx, QueryFilter{}, page)
}

func (svc *service) ListForRestaurant(ctx context.Context, restID string) ([]Review, error) {
	if _, err := svc.restSvc.Get(ctx, restID); err != nil {
		return nil, err
	}
	revs, _, err := svc.repo.QueryReviews(ctx, QueryFilter{RestaurantID: restID}, core.Page{})
	return revs, err
}

func (svc *service) ListForCourier(ctx context.Context, courierID string, page core.Page) (Result, error) {
	if _, err := svc.courierSvc.Get(ctx, courierID); err != nil {
		return Result{}, err
	}
	return svc.page(ctx, QueryFilter{CourierID: courierID}, page)
}
