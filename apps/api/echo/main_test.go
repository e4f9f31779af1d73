package echoapi

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

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
	"github.com/trezcool/chakula/storage/database/sqlxrepos"
	testutil "github.com/trezcool/chakula/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	conf    *core.Config
	db      *sqlx.DB
	app     Server
	mailSvc *emailsvc.ConsoleServiceMock
	hub     *NotificationHub
}

func setup(t *testing.T, confs ...func(conf *core.Config)) *testEnv {
	conf := testutil.Config()
	for _, fn := range confs {
		fn(conf)
	}

	// set up DB
	db := testutil.PrepareDB(t, conf)

	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)
	t.Cleanup(func() { _ = logger.Close() })

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(conf.WorkDir, logger)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	hub := NewNotificationHub(logger)
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

	// set up server
	app := NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		DisableReqLogs:  true,
		UserSvc:         usrSvc,
		RestaurantSvc:   restSvc,
		DishSvc:         dishSvc,
		CourierSvc:      courierSvc,
		OrderSvc:        orderSvc,
		ReviewSvc:       review.NewService(db, sqlxrepos.NewReviewRepository(db), restSvc, courierSvc),
		NotificationSvc: notifSvc,
		StatsSvc:        stats.NewService(sqlxrepos.NewStatsRepository(db), restSvc, courierSvc),
		RecommendSvc:    recommend.NewService(sqlxrepos.NewRecommendRepository(db), dishSvc),
		Hub:             hub,
	})
	t.Cleanup(func() { _ = app.Close() })

	return &testEnv{conf: conf, db: db, app: app, mailSvc: mailSvc, hub: hub}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte // not checked when nil
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do sends the request to the app and returns the recorded response.
func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := env.do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshall(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// fixtures is a small marketplace: one restaurant with a category, two dishes and a courier.
type fixtures struct {
	admin, client, owner user.User
	rest                 restaurant.Restaurant
	cat                  restaurant.Category
	pizza, salad         dish.Dish
	courier              courier.Courier

	adminToken, clientToken, ownerToken, courierToken string
}

func (env *testEnv) fixtures(t *testing.T) fixtures {
	var f fixtures
	f.admin = testutil.CreateUser(t, env.db, "Admin", "admin@chakula.test", user.RoleAdmin, user.StatusActive)
	f.client = testutil.CreateUser(t, env.db, "Client", "client@chakula.test", user.RoleClient, user.StatusActive)
	f.owner = testutil.CreateUser(t, env.db, "Owner", "owner@chakula.test", user.RoleRestaurant, user.StatusActive)
	f.rest = testutil.CreateRestaurant(t, env.db, f.owner.ID, "Mama Africa")
	f.cat = testutil.CreateCategory(t, env.db, f.rest.ID, "Mains")
	f.pizza = testutil.CreateDish(t, env.db, f.rest.ID, f.cat.ID, "Pizza", 1500, "italian", "cheese")
	f.salad = testutil.CreateDish(t, env.db, f.rest.ID, f.cat.ID, "Salad", 800, "vegan")
	f.courier = testutil.CreateCourier(t, env.db, f.rest.ID, "Courier", "courier@chakula.test")

	f.adminToken = getToken(t, f.admin)
	f.clientToken = getToken(t, f.client)
	f.ownerToken = getToken(t, f.owner)
	f.courierToken = getToken(t, *f.courier.User)
	return f
}
