package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/chakula/apps/api/echo"
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
	emailsvc "github.com/trezcool/chakula/services/email"
	logsvc "github.com/trezcool/chakula/services/logger"
	"github.com/trezcool/chakula/storage/database"
	"github.com/trezcool/chakula/storage/database/sqlxrepos"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)
	defer dbLogger.Close()

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	hub := echoapi.NewNotificationHub(logger)
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), logger, hub)

	usrSvc := user.NewService(db, sqlxrepos.NewUserRepository(db), mailSvc, notifSvc, conf)
	restSvc := restaurant.NewService(sqlxrepos.NewRestaurantRepository(db))
	dishSvc := dish.NewService(db, sqlxrepos.NewDishRepository(db))
	courierSvc := courier.NewService(db, sqlxrepos.NewCourierRepository(db), usrSvc)
	orderSvc := order.NewService(order.Deps{
		DB:         db,
		Repo:       sqlxrepos.NewOrderRepository(db),
		DishSvc:    dishSvc,
		RestSvc:    restSvc,
		CourierSvc: courierSvc,
		UserSvc:    usrSvc,
		MailSvc:    mailSvc,
		Notifier:   notifSvc,
		Logger:     logger,
		Conf:       conf,
	})
	reviewSvc := review.NewService(db, sqlxrepos.NewReviewRepository(db), restSvc, courierSvc)
	statsSvc := stats.NewService(sqlxrepos.NewStatsRepository(db), restSvc, courierSvc)
	recommendSvc := recommend.NewService(sqlxrepos.NewRecommendRepository(db), dishSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(conf.WorkDir, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			UserSvc:         usrSvc,
			RestaurantSvc:   restSvc,
			DishSvc:         dishSvc,
			CourierSvc:      courierSvc,
			OrderSvc:        orderSvc,
			ReviewSvc:       reviewSvc,
			NotificationSvc: notifSvc,
			StatsSvc:        statsSvc,
			RecommendSvc:    recommendSvc,
			Hub:             hub,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
