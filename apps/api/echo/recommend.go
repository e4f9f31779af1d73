package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/recommend"
	"github.com/trezcool/chakula/core/user"
)

const maxRecommendations = 50

type recommendAPI struct {
	svc recommend.Service
}

func registerRecommendAPI(g *echo.Group, mw routeMiddlewares, api recommendAPI) {
	g.GET("/recommendations", api.recommend, mw.auth, roleMiddleware(user.RoleClient))
}

func (api *recommendAPI) recommend(ctx echo.Context) error {
	weight, err := queryFloat(ctx, "weight", recommend.DefaultWeight)
	if err != nil {
		return err
	}
	if weight < 0 || weight > 1 {
		return core.NewValidationError(nil, core.FieldError{Field: "weight", Error: "must be between 0 and 1"})
	}

	limit := recommend.DefaultLimit
	if val := ctx.QueryParam("limit"); val != "" {
		if limit, err = strconv.Atoi(val); err != nil || limit < 1 || limit > maxRecommendations {
			return core.NewValidationError(nil, core.FieldError{
				Field: "limit",
				Error: "must be an integer between 1 and " + strconv.Itoa(maxRecommendations),
			})
		}
	}

	res, err := api.svc.Recommend(ctx.Request().Context(), contextUser(ctx).ID, weight, limit)
	if err != nil {
		return errors.Wrap(err, "recommending dishes")
	}
	return ctx.JSON(http.StatusOK, res)
}
