package courier

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/user"
)

var ErrNotFound = core.NewNotFoundError("courier not found")

// Courier is a delivery person working for one restaurant.
type Courier struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	RestaurantID        string     `json:"restaurant_id"`
	Available           bool       `json:"available"`
	Rating              float64    `json:"rating"`
	CompletedDeliveries int        `json:"completed_deliveries"`
	CreatedAt           time.Time  `json:"created_at"`
	User                *user.User `json:"user,omitempty"`
}

// GetFilter selects a single Courier. The first non-empty field is used.
type GetFilter struct {
	ID     string
	UserID string
}

type (
	Repository interface {
		CreateCourier(ctx context.Context, c Courier, exec ...core.DBExecutor) (Courier, error)
		// GetCourier loads a courier along with their user account.
		GetCourier(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Courier, error)
		QueryCouriers(ctx context.Context, restID string, exec ...core.DBExecutor) ([]Courier, error)
		UpdateCourier(ctx context.Context, c Courier, exec ...core.DBExecutor) (Courier, error)
		// RefreshRating sets the rating of a courier to the average of their reviews.
		RefreshRating(ctx context.Context, id string, exec ...core.DBExecutor) error
		IncrementCompleted(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, restID string, na user.NewAccount) (Courier, error)
		Get(ctx context.Context, id string) (Courier, error)
		// GetOwned returns ErrNotFound unless the courier works for restID.
		GetOwned(ctx context.Context, restID, id string) (Courier, error)
		ListByRestaurant(ctx context.Context, restID string) ([]Courier, error)
		SetAccountStatus(ctx context.Context, restID, id, status string) (Courier, error)
		Delete(ctx context.Context, restID, id string) error
		Profile(ctx context.Context, userID string) (Courier, error)
		ToggleAvailability(ctx context.Context, userID string) (Courier, error)
		RecomputeRating(ctx context.Context, id string, exec ...core.DBExecutor) error
		IncrementCompleted(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	service struct {
		db     core.DB
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, usrSvc user.Service) Service {
	return &service{db: db, repo: repo, usrSvc: usrSvc}
}

func (svc *service) Create(ctx context.Context, restID string, na user.NewAccount) (Courier, error) {
	var (
		c       Courier
		usr     user.User
		tempPwd string
	)
	err := core.InTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		usr, tempPwd, err = svc.usrSvc.CreateAccount(ctx, user.RoleCourier, na, tx)
		if err != nil {
			return errors.Wrap(err, "creating courier account")
		}
		c, err = svc.repo.CreateCourier(ctx, Courier{
			UserID:       usr.ID,
			RestaurantID: restID,
			Available:    true,
			CreatedAt:    core.Now(),
		}, tx)
		return errors.Wrap(err, "creating courier")
	})
	if err != nil {
		return Courier{}, err
	}

	svc.usrSvc.SendAccountCreatedMail(usr, tempPwd)
	c.User = &usr
	return c, nil
}

func (svc *service) Get(ctx context.Context, id string) (Courier, error) {
	if id == "" {
		return Courier{}, ErrNotFound
	}
	return svc.repo.GetCourier(ctx, GetFilter{ID: id})
}

func (svc *service) GetOwned(ctx context.Context, restID, id string) (Courier, error) {
	c, err := svc.Get(ctx, id)
	if err != nil {
		return Courier{}, err
	}
	if c.RestaurantID != restID {
		return Courier{}, ErrNotFound
	}
	return c, nil
}

func (svc *service) ListByRestaurant(ctx context.Context, restID string) ([]Courier, error) {
	return svc.repo.QueryCouriers(ctx, restID)
}

func (svc *service) SetAccountStatus(ctx context.Context, restID, id, status string) (Courier, error) {
	c, err := svc.GetOwned(ctx, restID, id)
	if err != nil {
		return Courier{}, err
	}
	usr, err := svc.usrSvc.SetStatus(ctx, c.UserID, status)
	if err != nil {
		return Courier{}, errors.Wrap(err, "setting courier account status")
	}
	c.User = &usr
	return c, nil
}

func (svc *service) Delete(ctx context.Context, restID, id string) error {
	c, err := svc.GetOwned(ctx, restID, id)
	if err != nil {
		return err
	}
	// the courier row goes with its user
	return svc.usrSvc.Delete(ctx, c.UserID)
}

func (svc *service) Profile(ctx context.Context, userID string) (Courier, error) {
	if userID == "" {
		return Courier{}, ErrNotFound
	}
	return svc.repo.GetCourier(ctx, GetFilter{UserID: userID})
}

func (svc *service) ToggleAvailability(ctx context.Context, userID string) (Courier, error) {
	c, err := svc.Profile(ctx, userID)
	if err != nil {
		return Courier{}, err
	}
	c.Available = !c.Available
	if _, err = svc.repo.UpdateCourier(ctx, c); err != nil {
		return Courier{}, errors.Wrap(err, "updating courier")
	}
	return c, nil
}

func (svc *service) RecomputeRating(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return svc.repo.RefreshRating(ctx, id, exec...)
}

func (svc *service) IncrementCompleted(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return svc.repo.IncrementCompleted(ctx, id, exec...)
}
