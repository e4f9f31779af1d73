package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chakula/core/dish"
	"github.com/trezcool/chakula/core/restaurant"
	"github.com/trezcool/chakula/core/user"
	testutil "github.com/trezcool/chakula/tests"
)

const unknownID = "00000000-0000-0000-0000-000000000000"

func Test_restaurantAPI_setUp(t *testing.T) {
	env := setup(t)
	owner := testutil.CreateUser(t, env.db, "Owner", "owner@chakula.test", user.RoleRestaurant, user.StatusActive)
	client := testutil.CreateUser(t, env.db, "Client", "client@chakula.test", user.RoleClient, user.StatusActive)
	ownerToken := getToken(t, owner)

	newRest := marshallObj(t, restaurant.NewRestaurant{
		Name:     "  Chez Tantine ",
		Address:  "12 Avenue du Commerce",
		OpensAt:  "08:00",
		ClosesAt: "22:30",
	})

	env.run(t, []httpTest{
		{
			name: "not completed yet", path: "/v1/my-restaurant", token: ownerToken,
			wantData: marshallObj(t, restaurant.Completion{}),
		},
		{
			name: "no restaurant to update", method: http.MethodPut, path: "/v1/my-restaurant", token: ownerToken,
			body: []byte(`{"name":"x"}`), wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "restaurant not found"}),
		},
		{
			name: "owners only", method: http.MethodPost, path: "/v1/my-restaurant", token: getToken(t, client),
			body: newRest, wantCode: http.StatusForbidden,
		},
		{
			name: "invalid hours", method: http.MethodPost, path: "/v1/my-restaurant", token: ownerToken,
			body:     []byte(`{"name":"Chez Tantine","address":"12 Avenue du Commerce","opens_at":"25:00"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"opens_at": "must be a time of day formatted as HH:MM"}),
		},
		{name: "create", method: http.MethodPost, path: "/v1/my-restaurant", token: ownerToken, body: newRest, wantCode: http.StatusCreated},
		{
			name: "one restaurant per owner", method: http.MethodPost, path: "/v1/my-restaurant", token: ownerToken,
			body: newRest, wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: restaurant.ErrAlreadyExists.Error()}),
		},
	})

	t.Run("completed", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/my-restaurant", ownerToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got restaurant.Completion
		unmarshall(t, rec, &got)
		require.True(t, got.Completed)
		require.NotNil(t, got.Restaurant)
		assert.Equal(t, "Chez Tantine", got.Restaurant.Name)
		assert.Equal(t, owner.ID, got.Restaurant.OwnerID)
	})

	t.Run("update keeps blank fields", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/my-restaurant", ownerToken, []byte(`{"description":"Cuisine congolaise"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got restaurant.Restaurant
		unmarshall(t, rec, &got)
		assert.Equal(t, "Chez Tantine", got.Name)
		assert.Equal(t, "Cuisine congolaise", got.Description)
		assert.Equal(t, "08:00", got.OpensAt)
	})
}

func Test_restaurantAPI_catalog(t *testing.T) {
	env := setup(t)
	f := env.fixtures(t)

	other := testutil.CreateUser(t, env.db, "Other", "other@chakula.test", user.RoleRestaurant, user.StatusActive)
	otherRest := testutil.CreateRestaurant(t, env.db, other.ID, "Kin Grill")
	testutil.CreateCategory(t, env.db, otherRest.ID, "Grills")

	// hide the salad from the menu
	rec := env.do(http.MethodPut, "/v1/my-restaurant/dishes/"+f.salad.ID+"/availability", f.ownerToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.run(t, []httpTest{
		{name: "unknown restaurant", path: "/v1/restaurants/" + unknownID, wantCode: http.StatusNotFound},
		{name: "unknown category", path: "/v1/categories/" + unknownID + "/dishes", wantCode: http.StatusNotFound},
		{name: "restaurant reviews", path: "/v1/restaurants/" + f.rest.ID + "/reviews", wantData: []byte(`[]`)},
	})

	t.Run("search", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/restaurants?search=GRILL", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []restaurant.Restaurant
		unmarshall(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, otherRest.ID, got[0].ID)
		assert.True(t, got[0].IsOpen) // no working hours
	})

	t.Run("menu lists available dishes only", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/restaurants/"+f.rest.ID+"/dishes", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []dish.Dish
		unmarshall(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, f.pizza.ID, got[0].ID)
		assert.Equal(t, int64(1500), got[0].CurrentPrice)
	})

	t.Run("all categories", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/categories", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []restaurant.Category
		unmarshall(t, rec, &got)
		assert.Len(t, got, 2)
	})

	t.Run("category dishes", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/categories/"+f.cat.ID+"/dishes", f.clientToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []dish.Dish
		unmarshall(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, f.pizza.ID, got[0].ID)
	})
}

func Test_restaurantAPI_categories(t *testing.T) {
	env := setup(t)
	f := env.fixtures(t)

	other := testutil.CreateUser(t, env.db, "Other", "other@chakula.test", user.RoleRestaurant, user.StatusActive)
	testutil.CreateRestaurant(t, env.db, other.ID, "Kin Grill")
	otherToken := getToken(t, other)

	var drinks restaurant.Category
	t.Run("create", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/my-restaurant/categories", f.ownerToken, []byte(`{"name":" Drinks "}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshall(t, rec, &drinks)
		assert.Equal(t, "Drinks", drinks.Name)
		assert.Equal(t, f.rest.ID, drinks.RestaurantID)
	})

	env.run(t, []httpTest{
		{
			name: "name required", method: http.MethodPost, path: "/v1/my-restaurant/categories", token: f.ownerToken,
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"name": "this field is required"}),
		},
		{name: "clients cannot manage categories", path: "/v1/my-restaurant/categories", token: f.clientToken, wantCode: http.StatusForbidden},
		{
			name: "other owners cannot update", method: http.MethodPut, path: "/v1/my-restaurant/categories/" + drinks.ID,
			token: otherToken, body: []byte(`{"name":"Mine"}`), wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "category not found"}),
		},
		{
			name: "other owners cannot delete", method: http.MethodDelete, path: "/v1/my-restaurant/categories/" + drinks.ID,
			token: otherToken, wantCode: http.StatusNotFound,
		},
	})

	t.Run("update", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/my-restaurant/categories/"+drinks.ID, f.ownerToken, []byte(`{"description":"Cold ones"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got restaurant.Category
		unmarshall(t, rec, &got)
		assert.Equal(t, "Drinks", got.Name)
		assert.Equal(t, "Cold ones", got.Description)
	})

	t.Run("list own", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/my-restaurant/categories", f.ownerToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []restaurant.Category
		unmarshall(t, rec, &got)
		assert.Len(t, got, 2)
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/v1/my-restaurant/categories/"+drinks.ID, f.ownerToken)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = env.do(http.MethodGet, "/v1/categories/"+drinks.ID+"/dishes", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
