package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core/order"
	"github.com/trezcool/chakula/core/user"
)

type orderAPI struct {
	svc      order.Service
	validate *validator.Validate
	metrics  *metrics
}

func registerOrderAPI(g *echo.Group, mw routeMiddlewares, api orderAPI) {
	og := g.Group("/orders", mw.auth)
	og.GET("", api.query, roleMiddleware(user.RoleAdmin))
	og.POST("", api.place, roleMiddleware(user.RoleClient))
	og.GET("/mine", api.mine, roleMiddleware(user.RoleClient))
	og.GET("/assigned", api.assigned, roleMiddleware(user.RoleCourier))
	og.GET("/:id", api.retrieve)
	og.PUT("/:id/status", api.changeStatus)
	og.PUT("/:id/estimate", api.estimate)
	og.PUT("/:id/assign", api.assign)
	og.PUT("/:id/paid", api.confirmPaid)
	og.DELETE("/:id", api.destroy)

	g.GET("/my-restaurant/orders", api.restaurantOrders, mw.owner)
}

func (api *orderAPI) place(ctx echo.Context) error {
	var data order.NewOrder
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ord, err := api.svc.Place(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "placing order")
	}
	api.metrics.ordersCreated.Inc()
	return ctx.JSON(http.StatusCreated, ord)
}

func (api *orderAPI) query(ctx echo.Context) error {
	filter := new(order.QueryFilter)
	if err := bind(ctx, filter); err != nil {
		return err
	}
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))

	var err error
	if filter.Paid, err = queryBool(ctx, "paid"); err != nil {
		return err
	}

	orders, err := api.svc.ListAll(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying orders")
	}
	return ctx.JSON(http.StatusOK, nonNilOrders(orders))
}

func (api *orderAPI) mine(ctx echo.Context) error {
	orders, err := api.svc.ListForClient(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing client orders")
	}
	return ctx.JSON(http.StatusOK, nonNilOrders(orders))
}

func (api *orderAPI) assigned(ctx echo.Context) error {
	orders, err := api.svc.ListForCourier(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing courier orders")
	}
	return ctx.JSON(http.StatusOK, nonNilOrders(orders))
}

func (api *orderAPI) restaurantOrders(ctx echo.Context) error {
	orders, err := api.svc.ListForRestaurant(ctx.Request().Context(), contextRestaurant(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing restaurant orders")
	}
	return ctx.JSON(http.StatusOK, nonNilOrders(orders))
}

func (api *orderAPI) retrieve(ctx echo.Context) error {
	ord, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), contextUser(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderAPI) changeStatus(ctx echo.Context) error {
	var data order.ChangeStatus
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ord, err := api.svc.ChangeStatus(ctx.Request().Context(), ctx.Param("id"), data.Status, contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "changing order status")
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderAPI) estimate(ctx echo.Context) error {
	var data order.Estimate
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ord, err := api.svc.Estimate(ctx.Request().Context(), ctx.Param("id"), data.Minutes, contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "estimating order")
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderAPI) assign(ctx echo.Context) error {
	var data order.Assign
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ord, err := api.svc.Assign(ctx.Request().Context(), ctx.Param("id"), data.CourierID, contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "assigning order")
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderAPI) confirmPaid(ctx echo.Context) error {
	ord, err := api.svc.ConfirmPaid(ctx.Request().Context(), ctx.Param("id"), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "confirming payment")
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderAPI) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), contextUser(ctx)); err != nil {
		return errors.Wrap(err, "deleting order")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// nonNilOrders makes empty lists render as [] rather than null.
func nonNilOrders(orders []order.Order) []order.Order {
	if orders == nil {
		return []order.Order{}
	}
	return orders
}
