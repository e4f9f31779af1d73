package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/chakula/core/restaurant"
	"github.com/trezcool/chakula/core/user"
)

var contextRestaurantKey = "restaurant"

// chain composes mws into one middleware, the first being the outermost.
func chain(mws ...echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// activeUserMiddleware loads the token's user and rejects blocked accounts.
func activeUserMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			if usr.IsBlocked() {
				return errAccountBlocked
			}
			return next(ctx)
		}
	}
}

// optionalAuth authenticates requests carrying a token and lets anonymous ones through.
func optionalAuth(svc user.Service) echo.MiddlewareFunc {
	conf := appJWTConfig
	conf.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	jwt := middleware.JWTWithConfig(conf)
	loadUser := activeUserMiddleware(svc)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withUser := jwt(func(ctx echo.Context) error {
			if _, err := getContextClaims(ctx); err != nil {
				return next(ctx)
			}
			return loadUser(next)(ctx)
		})
		return withUser
	}
}

func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, ok := ctx.Get(contextUserKey).(user.User)
			if !ok {
				return errUnauthorized
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// ownedRestaurantMiddleware loads the restaurant of the authenticated owner.
func ownedRestaurantMiddleware(svc restaurant.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			rest, err := svc.GetByOwner(ctx.Request().Context(), contextUser(ctx).ID)
			if err != nil {
				return err
			}
			ctx.Set(contextRestaurantKey, rest)
			return next(ctx)
		}
	}
}

func contextRestaurant(ctx echo.Context) restaurant.Restaurant {
	rest, _ := ctx.Get(contextRestaurantKey).(restaurant.Restaurant)
	return rest
}
