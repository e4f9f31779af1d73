package order

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/courier"
	"github.com/trezcool/chakula/core/dish"
	"github.com/trezcool/chakula/core/restaurant"
	"github.com/trezcool/chakula/core/user"
)

var (
	ErrNotFound          = core.NewNotFoundError("order not found")
	ErrForbidden         = core.NewForbiddenError("permission denied")
	ErrInvalidTransition = core.NewConflictError("invalid status transition")
	ErrAlreadyPaid       = core.NewConflictError("order already paid")
	ErrNotPending        = core.NewConflictError("only pending orders can be cancelled")
	ErrTooLateToAssign   = core.NewConflictError("order can no longer be assigned")

	errRestaurantNotFound = errors.New("restaurant not found")
	errCourierNotFound    = errors.New("courier not found")
	errCourierInactive    = errors.New("courier account is not active")
)

type (
	Repository interface {
		// CreateOrder inserts the order with its items.
		CreateOrder(ctx context.Context, ord Order, exec ...core.DBExecutor) (Order, error)
		GetOrder(ctx context.Context, id string, exec ...core.DBExecutor) (Order, error)
		// QueryOrders lists orders with their items, newest first.
		QueryOrders(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Order, error)
		// UpdateOrder saves everything but the items.
		UpdateOrder(ctx context.Context, ord Order, exec ...core.DBExecutor) (Order, error)
		DeleteOrder(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Place(ctx context.Context, client user.User, no NewOrder) (Order, error)
		// Get returns ErrNotFound to anyone but the order's participants and admins.
		Get(ctx context.Context, id string, actor user.User) (Order, error)
		ChangeStatus(ctx context.Context, id, status string, actor user.User) (Order, error)
		Estimate(ctx context.Context, id string, minutes int, actor user.User) (Order, error)
		Assign(ctx context.Context, id, courierID string, actor user.User) (Order, error)
		ConfirmPaid(ctx context.Context, id string, actor user.User) (Order, error)
		Delete(ctx context.Context, id string, actor user.User) error
		ListForClient(ctx context.Context, clientID string) ([]Order, error)
		ListForRestaurant(ctx context.Context, restID string) ([]Order, error)
		ListForCourier(ctx context.Context, courierUserID string) ([]Order, error)
		ListAll(ctx context.Context, filter *QueryFilter) ([]Order, error)
	}

	service struct {
		db         core.DB
		repo       Repository
		dishSvc    dish.Service
		restSvc    restaurant.Service
		courierSvc courier.Service
		usrSvc     user.Service
		mailSvc    core.EmailService
		notifier   core.Notifier
		logger     core.Logger
		conf       *core.Config
	}

	// Deps are the collaborators of the order Service.
	Deps struct {
		DB         core.DB
		Repo       Repository
		DishSvc    dish.Service
		RestSvc    restaurant.Service
		CourierSvc courier.Service
		UserSvc    user.Service
		MailSvc    core.EmailService
		Notifier   core.Notifier
		Logger     core.Logger
		Conf       *core.Config
	}

	// participation describes how an actor takes part in an order.
	participation struct {
		client, owner, courier, admin bool
		rest                          restaurant.Restaurant
	}
)

var _ Service = (*service)(nil)

func NewService(deps Deps) Service {
	return &service{
		db:         deps.DB,
		repo:       deps.Repo,
		dishSvc:    deps.DishSvc,
		restSvc:    deps.RestSvc,
		courierSvc: deps.CourierSvc,
		usrSvc:     deps.UserSvc,
		mailSvc:    deps.MailSvc,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		conf:       deps.Conf,
	}
}

func (p participation) any() bool     { return p.client || p.owner || p.courier || p.admin }
func (p participation) manager() bool { return p.owner || p.courier || p.admin }

func (svc *service) participation(ctx context.Context, ord Order, actor user.User) (participation, error) {
	p := participation{
		client: ord.ClientID == actor.ID,
		admin:  actor.IsAdmin(),
	}
	rest, err := svc.restSvc.Get(ctx, ord.RestaurantID)
	if err != nil {
		return p, errors.Wrap(err, "finding order restaurant")
	}
	p.rest = rest
	p.owner = actor.IsRestaurant() && rest.OwnerID == actor.ID

	if actor.IsCourier() && ord.CourierID.Valid {
		c, err := svc.courierSvc.Profile(ctx, actor.ID)
		if err != nil && errors.Cause(err) != courier.ErrNotFound {
			return p, errors.Wrap(err, "finding courier profile")
		}
		p.courier = err == nil && c.ID == ord.CourierID.String
	}
	return p, nil
}

// load returns the order and the actor's participation, hiding it from non-participants.
func (svc *service) load(ctx context.Context, id string, actor user.User) (Order, participation, error) {
	ord, err := svc.repo.GetOrder(ctx, id)
	if err != nil {
		return Order{}, participation{}, err
	}
	p, err := svc.participation(ctx, ord, actor)
	if err != nil {
		return Order{}, participation{}, err
	}
	if !p.any() {
		return Order{}, participation{}, ErrNotFound
	}
	return ord, p, nil
}

func (svc *service) Place(ctx context.Context, client user.User, no NewOrder) (Order, error) {
	rest, err := svc.restSvc.Get(ctx, no.RestaurantID)
	if err != nil {
		if errors.Cause(err) == restaurant.ErrNotFound {
			return Order{}, core.NewValidationError(errRestaurantNotFound, core.FieldError{Field: "restaurant_id", Error: errRestaurantNotFound.Error()})
		}
		return Order{}, errors.Wrap(err, "finding restaurant")
	}

	ids, qties := no.quantities()
	dishes, err := svc.dishSvc.GetMany(ctx, ids)
	if err != nil {
		return Order{}, errors.Wrap(err, "finding dishes")
	}

	now := core.Now()
	ord := Order{
		ClientID:     client.ID,
		RestaurantID: rest.ID,
		Items:        make([]Item, 0, len(ids)),
		Address:      no.Address,
		Latitude:     null.Float64FromPtr(no.Latitude),
		Longitude:    null.Float64FromPtr(no.Longitude),
		Note:         no.Note,
		Status:       StatusPending,
		ServiceFee:   svc.conf.Orders.DefaultServiceFee,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, id := range ids {
		d, ok := dishes[id]
		if !ok || d.RestaurantID != rest.ID {
			return Order{}, core.NewValidationError(errors.New("invalid items"), core.FieldError{Field: "items", Error: "dish " + id + " not found"})
		}
		if !d.Available {
			return Order{}, core.NewValidationError(errors.New("invalid items"), core.FieldError{Field: "items", Error: d.Name + " is not available"})
		}
		var img string
		if len(d.Images) > 0 {
			img = d.Images[0]
		}
		it := Item{
			DishID:    d.ID,
			Name:      d.Name,
			UnitPrice: d.CurrentPrice,
			Quantity:  qties[id],
			Image:     img,
		}
		ord.Subtotal += it.UnitPrice * int64(it.Quantity)
		ord.Items = append(ord.Items, it)
	}
	ord.Total = ord.Subtotal + ord.ServiceFee

	err = core.InTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		ord, err = svc.repo.CreateOrder(ctx, ord, tx)
		return errors.Wrap(err, "creating order")
	})
	if err != nil {
		return Order{}, err
	}

	svc.notifier.Notify(ctx, rest.OwnerID, "New order received from "+client.FullName()+".")
	if owner, err := svc.usrSvc.GetByID(ctx, rest.OwnerID); err == nil {
		svc.sendOrderPlacedMail(ord, rest, owner, client)
	} else {
		svc.logger.Error("finding restaurant owner", err)
	}
	return ord, nil
}

func (svc *service) Get(ctx context.Context, id string, actor user.User) (Order, error) {
	ord, _, err := svc.load(ctx, id, actor)
	return ord, err
}

func (svc *service) ChangeStatus(ctx context.Context, id, status string, actor user.User) (Order, error) {
	ord, p, err := svc.load(ctx, id, actor)
	if err != nil {
		return Order{}, err
	}
	if !p.manager() {
		return Order{}, ErrForbidden
	}
	if !canMoveTo(ord.Status, status) {
		return Order{}, ErrInvalidTransition
	}

	ord.setStatus(status, core.Now())
	if ord, err = svc.repo.UpdateOrder(ctx, ord); err != nil {
		return Order{}, errors.Wrap(err, "updating order status")
	}
	svc.afterStatusChange(ctx, ord, p.rest)
	return ord, nil
}

func (svc *service) afterStatusChange(ctx context.Context, ord Order, rest restaurant.Restaurant) {
	switch ord.Status {
	case StatusOnTheWay:
		svc.notifier.Notify(ctx, ord.ClientID, "Your order from "+rest.Name+" is on the way.")
		if client, err := svc.usrSvc.GetByID(ctx, ord.ClientID); err == nil {
			svc.sendOnTheWayMail(ord, rest, client)
		} else {
			svc.logger.Error("finding order client", err)
		}
	case StatusDelivered:
		svc.notifier.Notify(ctx, ord.ClientID, "Your order from "+rest.Name+" has been delivered.")
		svc.notifier.Notify(ctx, rest.OwnerID, "Order "+ord.ID+" has been delivered.")
	}
}

func (svc *service) Estimate(ctx context.Context, id string, minutes int, actor user.User) (Order, error) {
	ord, p, err := svc.load(ctx, id, actor)
	if err != nil {
		return Order{}, err
	}
	if !p.manager() {
		return Order{}, ErrForbidden
	}

	statusChanged := ord.Status != StatusOnTheWay
	if statusChanged && !canMoveTo(ord.Status, StatusOnTheWay) {
		return Order{}, ErrInvalidTransition
	}
	ord.EstimatedMinutes = null.IntFrom(minutes)
	ord.setStatus(StatusOnTheWay, core.Now())
	if ord, err = svc.repo.UpdateOrder(ctx, ord); err != nil {
		return Order{}, errors.Wrap(err, "updating order estimate")
	}
	if statusChanged {
		svc.afterStatusChange(ctx, ord, p.rest)
	}
	return ord, nil
}

func (svc *service) Assign(ctx context.Context, id, courierID string, actor user.User) (Order, error) {
	ord, p, err := svc.load(ctx, id, actor)
	if err != nil {
		return Order{}, err
	}
	if !(p.owner || p.admin) {
		return Order{}, ErrForbidden
	}
	if statusRanks[ord.Status] > statusRanks[StatusReady] {
		return Order{}, ErrTooLateToAssign
	}

	c, err := svc.courierSvc.GetOwned(ctx, ord.RestaurantID, courierID)
	if err != nil {
		if errors.Cause(err) == courier.ErrNotFound {
			return Order{}, core.NewValidationError(errCourierNotFound, core.FieldError{Field: "courier_id", Error: errCourierNotFound.Error()})
		}
		return Order{}, errors.Wrap(err, "finding courier")
	}
	if c.User == nil || c.User.Status != user.StatusActive {
		return Order{}, core.NewValidationError(errCourierInactive, core.FieldError{Field: "courier_id", Error: errCourierInactive.Error()})
	}

	ord.CourierID = null.StringFrom(c.ID)
	ord.setStatus(StatusAssigned, core.Now())
	if ord, err = svc.repo.UpdateOrder(ctx, ord); err != nil {
		return Order{}, errors.Wrap(err, "assigning order")
	}

	svc.notifier.Notify(ctx, c.UserID, "A new delivery from "+p.rest.Name+" has been assigned to you.")
	svc.sendAssignedMail(ord, p.rest, *c.User)
	return ord, nil
}

func (svc *service) ConfirmPaid(ctx context.Context, id string, actor user.User) (Order, error) {
	ord, p, err := svc.load(ctx, id, actor)
	if err != nil {
		return Order{}, err
	}
	if !p.manager() {
		return Order{}, ErrForbidden
	}
	if ord.Paid {
		return Order{}, ErrAlreadyPaid
	}

	// already delivered orders keep their delivery time
	firstDelivery := ord.Status != StatusDelivered
	ord.Paid = true
	if firstDelivery {
		ord.setStatus(StatusDelivered, core.Now())
	} else {
		ord.UpdatedAt = core.Now()
	}
	err = core.InTransaction(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if ord, err = svc.repo.UpdateOrder(ctx, ord, tx); err != nil {
			return errors.Wrap(err, "confirming payment")
		}
		if ord.CourierID.Valid {
			return errors.Wrap(svc.courierSvc.IncrementCompleted(ctx, ord.CourierID.String, tx), "counting delivery")
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	if firstDelivery {
		svc.afterStatusChange(ctx, ord, p.rest)
	}
	if client, err := svc.usrSvc.GetByID(ctx, ord.ClientID); err == nil {
		svc.sendReceiptMail(ord, p.rest, client)
	} else {
		svc.logger.Error("finding order client", err)
	}
	return ord, nil
}

func (svc *service) Delete(ctx context.Context, id string, actor user.User) error {
	ord, p, err := svc.load(ctx, id, actor)
	if err != nil {
		return err
	}
	switch {
	case p.admin:
	case p.client:
		if ord.Status != StatusPending {
			return ErrNotPending
		}
	default:
		return ErrForbidden
	}
	return svc.repo.DeleteOrder(ctx, ord.ID)
}

func (svc *service) ListForClient(ctx context.Context, clientID string) ([]Order, error) {
	return svc.repo.QueryOrders(ctx, &QueryFilter{ClientID: clientID})
}

func (svc *service) ListForRestaurant(ctx context.Context, restID string) ([]Order, error) {
	return svc.repo.QueryOrders(ctx, &QueryFilter{RestaurantID: restID})
}

func (svc *service) ListForCourier(ctx context.Context, courierUserID string) ([]Order, error) {
	c, err := svc.courierSvc.Profile(ctx, courierUserID)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryOrders(ctx, &QueryFilter{CourierID: c.ID})
}

func (svc *service) ListAll(ctx context.Context, filter *QueryFilter) ([]Order, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.QueryOrders(ctx, filter)
}
