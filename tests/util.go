// Package testutil holds the fixtures shared by the integration tests.
package testutil

import (
	"context"
	"net/mail"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/courier"
	"github.com/trezcool/chakula/core/dish"
	"github.com/trezcool/chakula/core/order"
	"github.com/trezcool/chakula/core/restaurant"
	"github.com/trezcool/chakula/core/user"
	"github.com/trezcool/chakula/storage/database"
	"github.com/trezcool/chakula/storage/database/sqlxrepos"
)

const Password = "Th3-P@ssw0rd!"

// Config is the configuration of the test environment: no debug output, SQLite storage.
func Config() *core.Config {
	return &core.Config{
		Build:            "test",
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Chakula",
		SecretKey:        "test-secret-key",
		WorkDir:          core.Getwd(),
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Chakula", Address: "noreply@chakula.test"},
		AdminEmail:       mail.Address{Name: "Chakula Admin", Address: "admin@chakula.test"},
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			PasswordResetTimeoutDelta: time.Hour,
		},
		Database: core.DatabaseConfig{Engine: database.EngineSQLite},
		Orders:   core.OrdersConfig{DefaultServiceFee: 200},
	}
}

// PrepareDB opens a freshly migrated database, removed when the test ends.
func PrepareDB(t *testing.T, conf ...*core.Config) *sqlx.DB {
	t.Helper()

	c := Config()
	if len(conf) > 0 {
		c = conf[0]
	}
	c.Database.Path = filepath.Join(t.TempDir(), "test.db")

	db, err := database.Open(c)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

func CreateUser(t *testing.T, db core.DBExecutor, firstName, email, role, status string, createdAt ...time.Time) user.User {
	t.Helper()

	tstamp := core.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FirstName: firstName,
		LastName:  "Test",
		Email:     email,
		Role:      role,
		Status:    status,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := sqlxrepos.NewUserRepository(db).CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateRestaurant(t *testing.T, db core.DBExecutor, ownerID, name string) restaurant.Restaurant {
	t.Helper()

	now := core.Now()
	rest, err := sqlxrepos.NewRestaurantRepository(db).CreateRestaurant(context.Background(), restaurant.Restaurant{
		OwnerID:   ownerID,
		Name:      name,
		Address:   "1 " + name + " Street",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRestaurant() failed: %v", err)
	}
	return rest
}

func CreateCategory(t *testing.T, db core.DBExecutor, restID, name string) restaurant.Category {
	t.Helper()

	cat, err := sqlxrepos.NewRestaurantRepository(db).CreateCategory(context.Background(), restaurant.Category{
		RestaurantID: restID,
		Name:         name,
		CreatedAt:    core.Now(),
	})
	if err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}
	return cat
}

func CreateDish(t *testing.T, db core.DBExecutor, restID, catID, name string, price int64, tags ...string) dish.Dish {
	t.Helper()

	now := core.Now()
	d, err := sqlxrepos.NewDishRepository(db).CreateDish(context.Background(), dish.Dish{
		RestaurantID: restID,
		CategoryID:   catID,
		Name:         name,
		Price:        price,
		Available:    true,
		Tags:         tags,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateDish() failed: %v", err)
	}
	return d
}

// CreateCourier creates an active courier account working for restID.
func CreateCourier(t *testing.T, db core.DBExecutor, restID, firstName, email string) courier.Courier {
	t.Helper()

	usr := CreateUser(t, db, firstName, email, user.RoleCourier, user.StatusActive)
	c, err := sqlxrepos.NewCourierRepository(db).CreateCourier(context.Background(), courier.Courier{
		UserID:       usr.ID,
		RestaurantID: restID,
		Available:    true,
		CreatedAt:    core.Now(),
	})
	if err != nil {
		t.Fatalf("CreateCourier() failed: %v", err)
	}
	c.User = &usr
	return c
}

// CreateOrder creates a pending order of one unit of each dish.
func CreateOrder(t *testing.T, db core.DBExecutor, clientID, restID string, dishes ...dish.Dish) order.Order {
	t.Helper()

	now := core.Now()
	ord := order.Order{
		ClientID:     clientID,
		RestaurantID: restID,
		Address:      "42 Client Avenue",
		Status:       order.StatusPending,
		ServiceFee:   200,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, d := range dishes {
		ord.Items = append(ord.Items, order.Item{DishID: d.ID, Name: d.Name, UnitPrice: d.Price, Quantity: 1})
		ord.Subtotal += d.Price
	}
	ord.Total = ord.Subtotal + ord.ServiceFee

	ord, err := sqlxrepos.NewOrderRepository(db).CreateOrder(context.Background(), ord)
	if err != nil {
		t.Fatalf("CreateOrder() failed: %v", err)
	}
	return ord
}
