package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core/dish"
)

type dishAPI struct {
	svc      dish.Service
	validate *validator.Validate
}

func registerDishAPI(g *echo.Group, mw routeMiddlewares, api dishAPI) {
	dg := g.Group("/dishes")
	dg.GET("", api.query, mw.optional)
	dg.GET("/:id", api.retrieve, mw.optional)
	dg.GET("/:id/comments", api.comments)
	dg.POST("/:id/like", api.toggleLike, mw.auth)
	dg.POST("/:id/comments", api.comment, mw.auth)

	g.GET("/promotions", api.activePromotions)

	// shares its prefix with other APIs: middlewares go on the routes, not the group
	og := g.Group("/my-restaurant")
	og.GET("/dishes", api.ownDishes, mw.owner)
	og.POST("/dishes", api.create, mw.owner)
	og.GET("/dishes/:id", api.ownDish, mw.owner)
	og.PUT("/dishes/:id", api.update, mw.owner)
	og.DELETE("/dishes/:id", api.destroy, mw.owner)
	og.PUT("/dishes/:id/availability", api.toggleAvailability, mw.owner)

	og.GET("/promotions", api.promotions, mw.owner)
	og.GET("/dishes/:id/promotion", api.promotion, mw.owner)
	og.PUT("/dishes/:id/promotion", api.applyPromotion, mw.owner)
	og.PUT("/dishes/:id/promotion/status", api.setPromotionStatus, mw.owner)
	og.DELETE("/dishes/:id/promotion", api.removePromotion, mw.owner)
}

// Public handlers

func (api *dishAPI) query(ctx echo.Context) error {
	filter := new(dish.QueryFilter)
	if err := bind(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	dishes, err := api.svc.ListAvailable(ctx.Request().Context(), filter, contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying dishes")
	}
	return ctx.JSON(http.StatusOK, dishes)
}

func (api *dishAPI) retrieve(ctx echo.Context) error {
	d, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), contextUser(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *dishAPI) comments(ctx echo.Context) error {
	comments, err := api.svc.ListComments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *dishAPI) toggleLike(ctx echo.Context) error {
	d, err := api.svc.ToggleLike(ctx.Request().Context(), ctx.Param("id"), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "toggling like")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *dishAPI) comment(ctx echo.Context) error {
	var data dish.NewComment
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr := contextUser(ctx)
	c, err := api.svc.AddComment(ctx.Request().Context(), ctx.Param("id"), dish.Author{ID: usr.ID, Name: usr.FullName()}, data)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *dishAPI) activePromotions(ctx echo.Context) error {
	promos, err := api.svc.ListActivePromotions(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing active promotions")
	}
	return ctx.JSON(http.StatusOK, promos)
}

// Owner handlers

func (api *dishAPI) ownDishes(ctx echo.Context) error {
	dishes, err := api.svc.ListByRestaurant(ctx.Request().Context(), contextRestaurant(ctx).ID, true, contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing dishes")
	}
	return ctx.JSON(http.StatusOK, dishes)
}

func (api *dishAPI) ownDish(ctx echo.Context) error {
	d, err := api.svc.GetOwned(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *dishAPI) create(ctx echo.Context) error {
	var data dish.NewDish
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err := api.svc.Create(ctx.Request().Context(), contextRestaurant(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating dish")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *dishAPI) update(ctx echo.Context) error {
	d, err := api.svc.GetOwned(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data dish.UpdateDish
	if err = bind(ctx, &data); err != nil {
		return err
	}
	if err = data.Validate(d, api.validate); err != nil {
		return err
	}

	d, err = api.svc.Update(ctx.Request().Context(), d, data)
	if err != nil {
		return errors.Wrap(err, "updating dish")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *dishAPI) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting dish")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *dishAPI) toggleAvailability(ctx echo.Context) error {
	d, err := api.svc.ToggleAvailability(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling dish availability")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *dishAPI) promotions(ctx echo.Context) error {
	promos, err := api.svc.ListPromotions(ctx.Request().Context(), contextRestaurant(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing promotions")
	}
	return ctx.JSON(http.StatusOK, promos)
}

func (api *dishAPI) promotion(ctx echo.Context) error {
	promo, err := api.svc.GetPromotion(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, promo)
}

func (api *dishAPI) applyPromotion(ctx echo.Context) error {
	var data dish.ApplyPromotion
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	promo, err := api.svc.ApplyPromotion(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "applying promotion")
	}
	return ctx.JSON(http.StatusOK, promo)
}

func (api *dishAPI) setPromotionStatus(ctx echo.Context) error {
	var data dish.SetPromotionStatus
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	promo, err := api.svc.SetPromotionStatus(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id"), *data.Enabled)
	if err != nil {
		return errors.Wrap(err, "setting promotion status")
	}
	return ctx.JSON(http.StatusOK, promo)
}

func (api *dishAPI) removePromotion(ctx echo.Context) error {
	if err := api.svc.RemovePromotion(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing promotion")
	}
	return ctx.NoContent(http.StatusNoContent)
}
