package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core/notification"
	"github.com/trezcool/chakula/core/user"
)

type notificationAPI struct {
	svc    notification.Service
	usrSvc user.Service
	hub    *NotificationHub
}

func registerNotificationAPI(g *echo.Group, mw routeMiddlewares, api notificationAPI) {
	// browsers cannot set headers on websocket handshakes
	wsJWT := appJWTConfig
	wsJWT.TokenLookup = "query:token"
	g.GET("/notifications/ws", api.stream, middleware.JWTWithConfig(wsJWT), activeUserMiddleware(api.usrSvc))

	ng := g.Group("/notifications")
	ng.GET("", api.query, mw.auth)
	ng.GET("/unread-count", api.unreadCount, mw.auth)
	ng.PUT("/read-all", api.markAllRead, mw.auth)
	ng.PUT("/:id/read", api.markRead, mw.auth)
	ng.DELETE("/:id", api.destroy, mw.auth)
}

func (api *notificationAPI) query(ctx echo.Context) error {
	unread, err := queryBool(ctx, "unread")
	if err != nil {
		return err
	}

	notifs, err := api.svc.List(ctx.Request().Context(), contextUser(ctx).ID, unread != nil && *unread)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationAPI) unreadCount(ctx echo.Context) error {
	count, err := api.svc.UnreadCount(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}

func (api *notificationAPI) markRead(ctx echo.Context) error {
	n, err := api.svc.MarkRead(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationAPI) markAllRead(ctx echo.Context) error {
	updated, err := api.svc.MarkAllRead(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.JSON(http.StatusOK, UpdatedResponse{Updated: updated})
}

func (api *notificationAPI) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextUser(ctx).ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationAPI) stream(ctx echo.Context) error {
	return api.hub.serve(ctx, contextUser(ctx).ID)
}

type (
	CountResponse struct {
		Count int `json:"count"`
	}

	UpdatedResponse struct {
		Updated int `json:"updated"`
	}
)
