package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/courier"
	"github.com/trezcool/chakula/core/review"
	"github.com/trezcool/chakula/core/user"
)

type courierAPI struct {
	svc       courier.Service
	usrSvc    user.Service
	reviewSvc review.Service
	validate  *validator.Validate
}

func registerCourierAPI(g *echo.Group, mw routeMiddlewares, api courierAPI) {
	og := g.Group("/my-restaurant")
	og.GET("/couriers", api.query, mw.owner)
	og.POST("/couriers", api.create, mw.owner)
	og.GET("/couriers/:id", api.retrieve, mw.owner)
	og.PUT("/couriers/:id/status", api.setStatus, mw.owner)
	og.DELETE("/couriers/:id", api.destroy, mw.owner)

	isCourier := chain(mw.auth, roleMiddleware(user.RoleCourier))
	cg := g.Group("/courier")
	cg.GET("/profile", api.profile, isCourier)
	cg.PUT("/availability", api.toggleAvailability, isCourier)

	g.GET("/couriers/:id/reviews", api.reviews, mw.auth)
}

func (api *courierAPI) query(ctx echo.Context) error {
	couriers, err := api.svc.ListByRestaurant(ctx.Request().Context(), contextRestaurant(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing couriers")
	}
	return ctx.JSON(http.StatusOK, couriers)
}

func (api *courierAPI) create(ctx echo.Context) error {
	var data user.NewAccount
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate, api.usrSvc); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), contextRestaurant(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating courier")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courierAPI) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetOwned(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courierAPI) setStatus(ctx echo.Context) error {
	var data CourierStatus
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.SetAccountStatus(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting courier status")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courierAPI) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting courier")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courierAPI) profile(ctx echo.Context) error {
	c, err := api.svc.Profile(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courierAPI) toggleAvailability(ctx echo.Context) error {
	c, err := api.svc.ToggleAvailability(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "toggling courier availability")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courierAPI) reviews(ctx echo.Context) error {
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	res, err := api.reviewSvc.ListForCourier(ctx.Request().Context(), c.ID, bindPage(ctx))
	if err != nil {
		return errors.Wrap(err, "listing courier reviews")
	}
	return ctx.JSON(http.StatusOK, res)
}

// CourierStatus is what an owner may set on their couriers' accounts.
type CourierStatus struct {
	Status string `json:"status" validate:"required,oneof=active blocked"`
}

func (cs *CourierStatus) Validate(validate *validator.Validate) error {
	cs.Status = core.CleanString(cs.Status, true /* lower */)
	return validate.Struct(cs)
}
