package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core/dish"
	"github.com/trezcool/chakula/core/restaurant"
	"github.com/trezcool/chakula/core/review"
	"github.com/trezcool/chakula/core/user"
)

type restaurantAPI struct {
	svc       restaurant.Service
	dishSvc   dish.Service
	reviewSvc review.Service
	validate  *validator.Validate
}

func registerRestaurantAPI(g *echo.Group, mw routeMiddlewares, api restaurantAPI) {
	// public catalog
	rg := g.Group("/restaurants", mw.optional)
	rg.GET("", api.query)
	rg.GET("/:id", api.retrieve)
	rg.GET("/:id/dishes", api.dishes)
	rg.GET("/:id/reviews", api.reviews)

	cg := g.Group("/categories", mw.optional)
	cg.GET("", api.allCategories)
	cg.GET("/:id/dishes", api.categoryDishes)

	// owner endpoints
	og := g.Group("/my-restaurant")
	og.GET("", api.checkCompleted, mw.auth, roleMiddleware(user.RoleRestaurant))
	og.POST("", api.create, mw.auth, roleMiddleware(user.RoleRestaurant))
	og.PUT("", api.update, mw.owner)

	og.GET("/categories", api.categories, mw.owner)
	og.POST("/categories", api.createCategory, mw.owner)
	og.PUT("/categories/:id", api.updateCategory, mw.owner)
	og.DELETE("/categories/:id", api.destroyCategory, mw.owner)
}

// Handlers

func (api *restaurantAPI) query(ctx echo.Context) error {
	filter := new(restaurant.QueryFilter)
	if err := bind(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	rests, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying restaurants")
	}
	return ctx.JSON(http.StatusOK, rests)
}

func (api *restaurantAPI) retrieve(ctx echo.Context) error {
	rest, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rest)
}

func (api *restaurantAPI) dishes(ctx echo.Context) error {
	rest, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	dishes, err := api.dishSvc.ListByRestaurant(ctx.Request().Context(), rest.ID, false, contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing restaurant dishes")
	}
	return ctx.JSON(http.StatusOK, dishes)
}

func (api *restaurantAPI) reviews(ctx echo.Context) error {
	rest, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	revs, err := api.reviewSvc.ListForRestaurant(ctx.Request().Context(), rest.ID)
	if err != nil {
		return errors.Wrap(err, "listing restaurant reviews")
	}
	return ctx.JSON(http.StatusOK, revs)
}

func (api *restaurantAPI) allCategories(ctx echo.Context) error {
	cats, err := api.svc.ListAllCategories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing categories")
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *restaurantAPI) categoryDishes(ctx echo.Context) error {
	cat, err := api.svc.GetAnyCategory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	dishes, err := api.dishSvc.ListAvailable(ctx.Request().Context(), &dish.QueryFilter{CategoryID: cat.ID}, contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing category dishes")
	}
	return ctx.JSON(http.StatusOK, dishes)
}

func (api *restaurantAPI) checkCompleted(ctx echo.Context) error {
	completion, err := api.svc.CheckCompleted(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "checking restaurant completion")
	}
	return ctx.JSON(http.StatusOK, completion)
}

func (api *restaurantAPI) create(ctx echo.Context) error {
	var data restaurant.NewRestaurant
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rest, err := api.svc.Create(ctx.Request().Context(), contextUser(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating restaurant")
	}
	return ctx.JSON(http.StatusCreated, rest)
}

func (api *restaurantAPI) update(ctx echo.Context) error {
	rest := contextRestaurant(ctx)

	var data restaurant.UpdateRestaurant
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(rest, api.validate); err != nil {
		return err
	}

	rest, err := api.svc.Update(ctx.Request().Context(), rest, data)
	if err != nil {
		return errors.Wrap(err, "updating restaurant")
	}
	return ctx.JSON(http.StatusOK, rest)
}

func (api *restaurantAPI) categories(ctx echo.Context) error {
	cats, err := api.svc.ListCategories(ctx.Request().Context(), contextRestaurant(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "listing categories")
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *restaurantAPI) createCategory(ctx echo.Context) error {
	var data restaurant.NewCategory
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cat, err := api.svc.CreateCategory(ctx.Request().Context(), contextRestaurant(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *restaurantAPI) updateCategory(ctx echo.Context) error {
	cat, err := api.svc.GetCategory(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data restaurant.UpdateCategory
	if err = bind(ctx, &data); err != nil {
		return err
	}
	if err = data.Validate(cat, api.validate); err != nil {
		return err
	}

	cat, err = api.svc.UpdateCategory(ctx.Request().Context(), cat, data)
	if err != nil {
		return errors.Wrap(err, "updating category")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *restaurantAPI) destroyCategory(ctx echo.Context) error {
	if err := api.svc.DeleteCategory(ctx.Request().Context(), contextRestaurant(ctx).ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return ctx.NoContent(http.StatusNoContent)
}
