package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core/stats"
	"github.com/trezcool/chakula/core/user"
)

type statsAPI struct {
	svc stats.Service
}

func registerStatsAPI(g *echo.Group, mw routeMiddlewares, api statsAPI) {
	sg := g.Group("/stats", mw.auth)
	sg.GET("/admin", api.admin, roleMiddleware(user.RoleAdmin))
	sg.GET("/restaurant", api.restaurant, roleMiddleware(user.RoleRestaurant))
	sg.GET("/client", api.client, roleMiddleware(user.RoleClient))
	sg.GET("/courier", api.courier, roleMiddleware(user.RoleCourier))
}

func (api *statsAPI) admin(ctx echo.Context) error {
	s, err := api.svc.Admin(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing admin stats")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *statsAPI) restaurant(ctx echo.Context) error {
	s, err := api.svc.Restaurant(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "computing restaurant stats")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *statsAPI) client(ctx echo.Context) error {
	s, err := api.svc.Client(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "computing client stats")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *statsAPI) courier(ctx echo.Context) error {
	s, err := api.svc.Courier(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "computing courier stats")
	}
	return ctx.JSON(http.StatusOK, s)
}
