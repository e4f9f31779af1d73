package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/courier"
	"github.com/trezcool/chakula/core/dish"
	"github.com/trezcool/chakula/core/notification"
	"github.com/trezcool/chakula/core/order"
	"github.com/trezcool/chakula/core/recommend"
	"github.com/trezcool/chakula/core/restaurant"
	"github.com/trezcool/chakula/core/review"
	"github.com/trezcool/chakula/core/stats"
	"github.com/trezcool/chakula/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		UserSvc         user.Service
		RestaurantSvc   restaurant.Service
		DishSvc         dish.Service
		CourierSvc      courier.Service
		OrderSvc        order.Service
		ReviewSvc       review.Service
		NotificationSvc notification.Service
		StatsSvc        stats.Service
		RecommendSvc    recommend.Service
		Hub             *NotificationHub
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	if deps.Hub == nil {
		deps.Hub = NewNotificationHub(deps.Logger)
	}
	s := &server{
		deps:     deps,
		app:      echo.New(),
		metrics:  newMetrics(deps.Hub.connections),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	initAuth(deps.Conf)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.metrics.middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.GET("/", s.home)
	s.app.GET("/metrics", s.metrics.handler())

	v1 := s.app.Group("/v1")
	mw := routeMiddlewares{
		auth:     chain(middleware.JWTWithConfig(appJWTConfig), activeUserMiddleware(s.deps.UserSvc)),
		optional: optionalAuth(s.deps.UserSvc),
		limit:    rateLimitMiddleware(conf.Server.AuthRateLimit),
	}
	mw.owner = chain(mw.auth, roleMiddleware(user.RoleRestaurant), ownedRestaurantMiddleware(s.deps.RestaurantSvc))

	registerUserAPI(v1, mw, userAPI{
		svc:      s.deps.UserSvc,
		validate: s.deps.Validate,
		logger:   s.deps.Logger,
	})
	registerRestaurantAPI(v1, mw, restaurantAPI{
		svc:       s.deps.RestaurantSvc,
		dishSvc:   s.deps.DishSvc,
		reviewSvc: s.deps.ReviewSvc,
		validate:  s.deps.Validate,
	})
	registerDishAPI(v1, mw, dishAPI{
		svc:      s.deps.DishSvc,
		validate: s.deps.Validate,
	})
	registerCourierAPI(v1, mw, courierAPI{
		svc:       s.deps.CourierSvc,
		usrSvc:    s.deps.UserSvc,
		reviewSvc: s.deps.ReviewSvc,
		validate:  s.deps.Validate,
	})
	registerOrderAPI(v1, mw, orderAPI{
		svc:      s.deps.OrderSvc,
		validate: s.deps.Validate,
		metrics:  s.metrics,
	})
	registerReviewAPI(v1, mw, reviewAPI{
		svc:      s.deps.ReviewSvc,
		validate: s.deps.Validate,
	})
	registerNotificationAPI(v1, mw, notificationAPI{
		svc:    s.deps.NotificationSvc,
		usrSvc: s.deps.UserSvc,
		hub:    s.deps.Hub,
	})
	registerStatsAPI(v1, mw, statsAPI{svc: s.deps.StatsSvc})
	registerRecommendAPI(v1, mw, recommendAPI{svc: s.deps.RecommendSvc})
}

// routeMiddlewares are shared by every API group.
type routeMiddlewares struct {
	auth     echo.MiddlewareFunc // valid token of an unblocked user
	optional echo.MiddlewareFunc // auth when a token is sent
	owner    echo.MiddlewareFunc // auth + restaurant role + their restaurant loaded
	limit    echo.MiddlewareFunc // per-IP rate limit
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	s.deps.Hub.Close()
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	s.deps.Hub.Close()
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
