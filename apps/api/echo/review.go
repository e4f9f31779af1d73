package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core/review"
	"github.com/trezcool/chakula/core/user"
)

type reviewAPI struct {
	svc      review.Service
	validate *validator.Validate
}

func registerReviewAPI(g *echo.Group, mw routeMiddlewares, api reviewAPI) {
	rg := g.Group("/reviews", mw.auth)
	rg.GET("", api.query, roleMiddleware(user.RoleAdmin))
	rg.POST("", api.create, roleMiddleware(user.RoleClient))
	rg.PUT("/:id", api.update, roleMiddleware(user.RoleClient))
	rg.DELETE("/:id", api.destroy)
}

func (api *reviewAPI) query(ctx echo.Context) error {
	res, err := api.svc.List(ctx.Request().Context(), bindPage(ctx))
	if err != nil {
		return errors.Wrap(err, "listing reviews")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *reviewAPI) create(ctx echo.Context) error {
	var data review.NewReview
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rev, err := api.svc.Create(ctx.Request().Context(), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating review")
	}
	return ctx.JSON(http.StatusCreated, rev)
}

func (api *reviewAPI) update(ctx echo.Context) error {
	var data review.UpdateReview
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rev, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), contextUser(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating review")
	}
	return ctx.JSON(http.StatusOK, rev)
}

func (api *reviewAPI) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), contextUser(ctx)); err != nil {
		return errors.Wrap(err, "deleting review")
	}
	return ctx.NoContent(http.StatusNoContent)
}
