package restaurant

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core"
)

var (
	ErrNotFound         = core.NewNotFoundError("restaurant not found")
	ErrCategoryNotFound = core.NewNotFoundError("category not found")
	ErrAlreadyExists    = errors.New("restaurant already exists")

	// Location is the time zone working hours are expressed in.
	Location = time.Local
)

type (
	Repository interface {
		CreateRestaurant(ctx context.Context, rest Restaurant, exec ...core.DBExecutor) (Restaurant, error)
		// GetRestaurant finds a restaurant by ID, or by owner when ID is empty.
		// AverageRating is the mean of the restaurant's reviews.
		GetRestaurant(ctx context.Context, id, ownerID string, exec ...core.DBExecutor) (Restaurant, error)
		QueryRestaurants(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Restaurant, error)
		UpdateRestaurant(ctx context.Context, rest Restaurant, exec ...core.DBExecutor) (Restaurant, error)

		CreateCategory(ctx context.Context, cat Category, exec ...core.DBExecutor) (Category, error)
		GetCategory(ctx context.Context, id string, exec ...core.DBExecutor) (Category, error)
		// QueryCategories lists the categories of restID, or all of them when restID is empty.
		QueryCategories(ctx context.Context, restID string, exec ...core.DBExecutor) ([]Category, error)
		UpdateCategory(ctx context.Context, cat Category, exec ...core.DBExecutor) (Category, error)
		// DeleteCategory deletes the category along with its dishes.
		DeleteCategory(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, ownerID string, nr NewRestaurant) (Restaurant, error)
		Get(ctx context.Context, id string) (Restaurant, error)
		GetByOwner(ctx context.Context, ownerID string) (Restaurant, error)
		CheckCompleted(ctx context.Context, ownerID string) (Completion, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Restaurant, error)
		Update(ctx context.Context, rest Restaurant, ur UpdateRestaurant) (Restaurant, error)

		CreateCategory(ctx context.Context, restID string, nc NewCategory) (Category, error)
		// GetCategory returns ErrCategoryNotFound unless the category belongs to restID.
		GetCategory(ctx context.Context, restID, id string) (Category, error)
		GetAnyCategory(ctx context.Context, id string) (Category, error)
		ListCategories(ctx context.Context, restID string) ([]Category, error)
		ListAllCategories(ctx context.Context) ([]Category, error)
		UpdateCategory(ctx context.Context, cat Category, uc UpdateCategory) (Category, error)
		DeleteCategory(ctx context.Context, restID, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) withOpenState(rest Restaurant) Restaurant {
	rest.IsOpen = openAt(rest.OpensAt, rest.ClosesAt, core.NowFunc().In(Location))
	return rest
}

func (svc *service) Create(ctx context.Context, ownerID string, nr NewRestaurant) (Restaurant, error) {
	if _, err := svc.repo.GetRestaurant(ctx, "", ownerID); err == nil {
		return Restaurant{}, core.NewValidationError(ErrAlreadyExists)
	} else if errors.Cause(err) != ErrNotFound {
		return Restaurant{}, errors.Wrap(err, "finding restaurant by owner")
	}

	now := core.Now()
	rest, err := svc.repo.CreateRestaurant(ctx, Restaurant{
		OwnerID:     ownerID,
		Name:        nr.Name,
		Address:     nr.Address,
		Phone:       nr.Phone,
		Description: nr.Description,
		OpensAt:     nr.OpensAt,
		ClosesAt:    nr.ClosesAt,
		Images:      nr.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Restaurant{}, errors.Wrap(err, "creating restaurant")
	}
	return svc.withOpenState(rest), nil
}

func (svc *service) Get(ctx context.Context, id string) (Restaurant, error) {
	rest, err := svc.repo.GetRestaurant(ctx, id, "")
	if err != nil {
		return Restaurant{}, err
	}
	return svc.withOpenState(rest), nil
}

func (svc *service) GetByOwner(ctx context.Context, ownerID string) (Restaurant, error) {
	rest, err := svc.repo.GetRestaurant(ctx, "", ownerID)
	if err != nil {
		return Restaurant{}, err
	}
	return svc.withOpenState(rest), nil
}

func (svc *service) CheckCompleted(ctx context.Context, ownerID string) (Completion, error) {
	rest, err := svc.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Completion{}, nil
		}
		return Completion{}, err
	}
	return Completion{Completed: true, Restaurant: &rest}, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Restaurant, error) {
	rests, err := svc.repo.QueryRestaurants(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range rests {
		rests[i] = svc.withOpenState(rests[i])
	}
	return rests, nil
}

func (svc *service) Update(ctx context.Context, rest Restaurant, ur UpdateRestaurant) (Restaurant, error) {
	rest.Name = ur.Name
	rest.Address = ur.Address
	rest.Phone = ur.Phone
	rest.Description = ur.Description
	rest.OpensAt = ur.OpensAt
	rest.ClosesAt = ur.ClosesAt
	rest.Images = ur.Images
	rest.UpdatedAt = core.Now()

	rest, err := svc.repo.UpdateRestaurant(ctx, rest)
	if err != nil {
		return Restaurant{}, errors.Wrap(err, "updating restaurant")
	}
	return svc.withOpenState(rest), nil
}

func (svc *service) CreateCategory(ctx context.Context, restID string, nc NewCategory) (Category, error) {
	return svc.repo.CreateCategory(ctx, Category{
		RestaurantID: restID,
		Name:         nc.Name,
		Description:  nc.Description,
		ImageURL:     nc.ImageURL,
		CreatedAt:    core.Now(),
	})
}

func (svc *service) GetCategory(ctx context.Context, restID, id string) (Category, error) {
	cat, err := svc.repo.GetCategory(ctx, id)
	if err != nil {
		return Category{}, err
	}
	if cat.RestaurantID != restID {
		return Category{}, ErrCategoryNotFound
	}
	return cat, nil
}

func (svc *service) GetAnyCategory(ctx context.Context, id string) (Category, error) {
	return svc.repo.GetCategory(ctx, id)
}

func (svc *service) ListCategories(ctx context.Context, restID string) ([]Category, error) {
	return svc.repo.QueryCategories(ctx, restID)
}

func (svc *service) ListAllCategories(ctx context.Context) ([]Category, error) {
	return svc.repo.QueryCategories(ctx, "")
}

func (svc *service) UpdateCategory(ctx context.Context, cat Category, uc UpdateCategory) (Category, error) {
	cat.Name = uc.Name
	cat.Description = uc.Description
	cat.ImageURL = uc.ImageURL
	return svc.repo.UpdateCategory(ctx, cat)
}

func (svc *service) DeleteCategory(ctx context.Context, restID, id string) error {
	cat, err := svc.GetCategory(ctx, restID, id)
	if err != nil {
		return err
	}
	return svc.repo.DeleteCategory(ctx, cat.ID)
}
