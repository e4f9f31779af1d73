package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/user"
)

// userOrderings maps the accepted `ordering` fields to their column.
var userOrderings = map[string]string{
	"first_name": "first_name",
	"last_name":  "last_name",
	"email":      "email",
	"role":       "role",
	"status":     "status",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userAPI struct {
	svc      user.Service
	validate *validator.Validate
	logger   core.Logger
}

func registerUserAPI(g *echo.Group, mw routeMiddlewares, api userAPI) {
	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/register", api.register, mw.limit)
	ag.POST("/login", api.login, mw.limit)
	ag.POST("/password-reset", api.resetPassword, mw.limit)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset, mw.limit)
	ag.POST("/contact", api.contact, mw.limit)

	// authed endpoints
	ag.POST("/logout", api.logout, mw.auth)
	ag.POST("/token-refresh", api.refreshToken, mw.auth)
	ag.GET("/me", api.me, mw.auth)
	ag.PUT("/password", api.changePassword, mw.auth)

	pg := g.Group("/profile", mw.auth)
	pg.PUT("", api.updateProfile)
	pg.DELETE("", api.deleteProfile)

	// admin endpoints
	ug := g.Group("/users", mw.auth, roleMiddleware(user.RoleAdmin))
	ug.GET("", api.query)
	ug.POST("/restaurant-owners", api.createRestaurantOwner)
	ug.GET("/:id", api.retrieve)
	ug.PUT("/:id/status", api.setStatus)
	ug.DELETE("/:id", api.destroy)
}

// Handlers

func (api *userAPI) register(ctx echo.Context) error {
	var data user.NewUser
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, AuthResponse{Token: token, User: usr})
}

func (api *userAPI) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidCredentials {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, AuthResponse{Token: token, User: usr})
}

func (api *userAPI) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not tell attackers which emails exist
		cause := errors.Cause(err)
		if cause != user.ErrNotFound && cause != user.ErrAccountBlocked {
			api.logger.Error(fmt.Sprintf("requesting password reset: %v", err), err)
		}
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userAPI) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userAPI) contact(ctx echo.Context) error {
	var data user.ContactMessage
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	api.svc.ContactUs(ctx.Request().Context(), data)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your message has been sent."})
}

// logout is a courtesy endpoint: tokens are stateless and expire on their own.
func (api *userAPI) logout(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Logged out."})
}

func (api *userAPI) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, AuthResponse{Token: token, User: contextUser(ctx)})
}

func (api *userAPI) me(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextUser(ctx))
}

func (api *userAPI) changePassword(ctx echo.Context) error {
	usr := contextUser(ctx)

	var data user.ChangePassword
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(usr, api.validate); err != nil {
		return err
	}

	if _, err := api.svc.ChangePassword(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

func (api *userAPI) updateProfile(ctx echo.Context) error {
	usr := contextUser(ctx)

	var data user.UpdateProfile
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(usr, api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userAPI) deleteProfile(ctx echo.Context) error {
	if err := api.svc.DeleteSelf(ctx.Request().Context(), contextUser(ctx)); err != nil {
		return errors.Wrap(err, "deleting own account")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userAPI) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := bind(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	var err error
	if filter.CreatedFrom, err = queryTime(ctx, "created_from"); err != nil {
		return err
	}
	if filter.CreatedTo, err = queryTime(ctx, "created_to"); err != nil {
		return err
	}
	ordering := new(Ordering)
	if err = ordering.Bind(ctx, userOrderings); err != nil {
		return err
	}

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userAPI) retrieve(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userAPI) setStatus(ctx echo.Context) error {
	var data user.SetStatus
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// admins cannot lock themselves out
	if ctx.Param("id") == contextUser(ctx).ID {
		return errHttpForbidden
	}

	usr, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting user status")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userAPI) destroy(ctx echo.Context) error {
	// Say No to Suicide! admins delete themselves through /profile, which refuses them
	if ctx.Param("id") == contextUser(ctx).ID {
		return errHttpForbidden
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userAPI) createRestaurantOwner(ctx echo.Context) error {
	var data user.NewAccount
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, tempPwd, err := api.svc.CreateAccount(ctx.Request().Context(), user.RoleRestaurant, data)
	if err != nil {
		return errors.Wrap(err, "creating restaurant owner")
	}
	api.svc.SendAccountCreatedMail(usr, tempPwd)
	return ctx.JSON(http.StatusCreated, usr)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	AuthResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
