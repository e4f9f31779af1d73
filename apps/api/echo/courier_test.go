package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chakula/core/courier"
	"github.com/trezcool/chakula/core/review"
	"github.com/trezcool/chakula/core/user"
	testutil "github.com/trezcool/chakula/tests"
)

func Test_courierAPI_manage(t *testing.T) {
	env := setup(t)
	f := env.fixtures(t)

	other := testutil.CreateUser(t, env.db, "Other", "other@chakula.test", user.RoleRestaurant, user.StatusActive)
	testutil.CreateRestaurant(t, env.db, other.ID, "Kin Grill")
	otherToken := getToken(t, other)

	newAccount := user.NewAccount{FirstName: "Jean", LastName: "Mukendi", Email: " Jean@Chakula.test "}

	var jean courier.Courier
	t.Run("create", func(t *testing.T) {
		env.mailSvc.Reset()
		rec := env.do(http.MethodPost, "/v1/my-restaurant/couriers", f.ownerToken, marshallObj(t, newAccount))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshall(t, rec, &jean)
		assert.Equal(t, f.rest.ID, jean.RestaurantID)
		assert.True(t, jean.Available)
		require.NotNil(t, jean.User)
		assert.Equal(t, "jean@chakula.test", jean.User.Email)
		assert.Equal(t, user.RoleCourier, jean.User.Role)

		mails := env.mailSvc.SentMessages()
		require.Len(t, mails, 1)
		assert.Equal(t, "Your account has been created", mails[0].Subject)
		data, ok := mails[0].TemplateData.(map[string]interface{})
		require.True(t, ok)
		assert.NotEmpty(t, data["Password"])
	})

	env.run(t, []httpTest{
		{
			name: "email taken", method: http.MethodPost, path: "/v1/my-restaurant/couriers", token: f.ownerToken,
			body: marshallObj(t, newAccount), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{name: "clients cannot manage couriers", path: "/v1/my-restaurant/couriers", token: f.clientToken, wantCode: http.StatusForbidden},
		{
			name: "hidden from other owners", path: "/v1/my-restaurant/couriers/" + jean.ID, token: otherToken,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "courier not found"}),
		},
		{
			name: "unknown status", method: http.MethodPut, path: "/v1/my-restaurant/couriers/" + jean.ID + "/status",
			token: f.ownerToken, body: []byte(`{"status":"fired"}`), wantCode: http.StatusBadRequest,
		},
		{name: "retrieve", path: "/v1/my-restaurant/couriers/" + jean.ID, token: f.ownerToken},
	})

	t.Run("list", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/my-restaurant/couriers", f.ownerToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []courier.Courier
		unmarshall(t, rec, &got)
		require.Len(t, got, 2)
		assert.Equal(t, f.courier.ID, got[0].ID) // "Courier" < "Jean"
		assert.Equal(t, jean.ID, got[1].ID)
	})

	t.Run("block and reactivate", func(t *testing.T) {
		env.mailSvc.Reset()
		jeanToken := getToken(t, *jean.User)

		rec := env.do(http.MethodPut, "/v1/my-restaurant/couriers/"+jean.ID+"/status", f.ownerToken, []byte(`{"status":"Blocked"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got courier.Courier
		unmarshall(t, rec, &got)
		assert.Equal(t, user.StatusBlocked, got.User.Status)

		rec = env.do(http.MethodGet, "/v1/courier/profile", jeanToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"account blocked"}`, rec.Body.String())

		rec = env.do(http.MethodPut, "/v1/my-restaurant/couriers/"+jean.ID+"/status", f.ownerToken, []byte(`{"status":"active"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		mails := env.mailSvc.SentMessages()
		require.Len(t, mails, 2)
		assert.Equal(t, "Your account has been suspended", mails[0].Subject)
		assert.Equal(t, "Your account has been activated", mails[1].Subject)

		assert.Equal(t, 2, unreadCount(t, env, jeanToken))
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/v1/my-restaurant/couriers/"+jean.ID, otherToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		env.mailSvc.Reset()
		rec = env.do(http.MethodDelete, "/v1/my-restaurant/couriers/"+jean.ID, f.ownerToken)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = env.do(http.MethodGet, "/v1/my-restaurant/couriers/"+jean.ID, f.ownerToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		mails := env.mailSvc.SentMessages()
		require.Len(t, mails, 1)
		assert.Equal(t, "Your account has been deleted", mails[0].Subject)
	})
}

func Test_courierAPI_self(t *testing.T) {
	env := setup(t)
	f := env.fixtures(t)

	env.run(t, []httpTest{
		{name: "auth required", path: "/v1/courier/profile", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "couriers only", path: "/v1/courier/profile", token: f.clientToken, wantCode: http.StatusForbidden},
	})

	t.Run("profile", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/courier/profile", f.courierToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got courier.Courier
		unmarshall(t, rec, &got)
		assert.Equal(t, f.courier.ID, got.ID)
		assert.Equal(t, f.rest.ID, got.RestaurantID)
		require.NotNil(t, got.User)
		assert.Equal(t, f.courier.User.Email, got.User.Email)
	})

	t.Run("toggle availability", func(t *testing.T) {
		for _, want := range []bool{false, true} {
			rec := env.do(http.MethodPut, "/v1/courier/availability", f.courierToken)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got courier.Courier
			unmarshall(t, rec, &got)
			assert.Equal(t, want, got.Available)
		}
	})
}

func Test_courierAPI_reviews(t *testing.T) {
	env := setup(t)
	f := env.fixtures(t)

	for _, rating := range []int{5, 4, 2} {
		body := marshallObj(t, review.NewReview{Type: review.TypeCourier, CourierID: f.courier.ID, Rating: rating})
		rec := env.do(http.MethodPost, "/v1/reviews", f.clientToken, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	env.run(t, []httpTest{
		{name: "auth required", path: "/v1/couriers/" + f.courier.ID + "/reviews", wantCode: http.StatusUnauthorized},
		{name: "unknown courier", path: "/v1/couriers/" + unknownID + "/reviews", token: f.clientToken, wantCode: http.StatusNotFound},
	})

	t.Run("paged", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/couriers/"+f.courier.ID+"/reviews?limit=2&page=2", f.ownerToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got review.Result
		unmarshall(t, rec, &got)
		assert.Equal(t, 2, got.TotalPages)
		assert.Equal(t, 2, got.CurrentPage)
		assert.Len(t, got.Items, 1)
	})

	t.Run("rating follows reviews", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/courier/profile", f.courierToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got courier.Courier
		unmarshall(t, rec, &got)
		assert.Equal(t, 3.67, got.Rating)
	})
}
