package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chakula/core/courier"
	"github.com/trezcool/chakula/core/order"
	"github.com/trezcool/chakula/core/user"
	testutil "github.com/trezcool/chakula/tests"
)

func newOrderBody(t *testing.T, restID string, items ...order.NewItem) []byte {
	return marshallObj(t, order.NewOrder{RestaurantID: restID, Items: items, Address: "42 Boulevard du 30 Juin"})
}

func unreadCount(t *testing.T, env *testEnv, token string) int {
	rec := env.do(http.MethodGet, "/v1/notifications/unread-count", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp CountResponse
	unmarshall(t, rec, &resp)
	return resp.Count
}

func Test_orderAPI_place(t *testing.T) {
	env := setup(t)
	f := env.fixtures(t)

	other := testutil.CreateUser(t, env.db, "Other", "other@chakula.test", user.RoleRestaurant, user.StatusActive)
	otherRest := testutil.CreateRestaurant(t, env.db, other.ID, "Kin Grill")
	otherCat := testutil.CreateCategory(t, env.db, otherRest.ID, "Grills")
	brochette := testutil.CreateDish(t, env.db, otherRest.ID, otherCat.ID, "Brochette", 700)

	rec := env.do(http.MethodPut, "/v1/my-restaurant/dishes/"+f.salad.ID+"/availability", f.ownerToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/orders", body: newOrderBody(t, f.rest.ID), wantCode: http.StatusUnauthorized},
		{name: "clients only", method: http.MethodPost, path: "/v1/orders", token: f.ownerToken,
			body: newOrderBody(t, f.rest.ID, order.NewItem{DishID: f.pizza.ID, Quantity: 1}), wantCode: http.StatusForbidden},
		{name: "no items", method: http.MethodPost, path: "/v1/orders", token: f.clientToken,
			body: newOrderBody(t, f.rest.ID), wantCode: http.StatusBadRequest},
		{name: "zero quantity", method: http.MethodPost, path: "/v1/orders", token: f.clientToken,
			body: newOrderBody(t, f.rest.ID, order.NewItem{DishID: f.pizza.ID}), wantCode: http.StatusBadRequest},
		{
			name: "unknown restaurant", method: http.MethodPost, path: "/v1/orders", token: f.clientToken,
			body:     newOrderBody(t, unknownID, order.NewItem{DishID: f.pizza.ID, Quantity: 1}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"restaurant_id": "restaurant not found"}),
		},
		{
			name: "dish of another restaurant", method: http.MethodPost, path: "/v1/orders", token: f.clientToken,
			body:     newOrderBody(t, f.rest.ID, order.NewItem{DishID: brochette.ID, Quantity: 1}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"items": "dish " + brochette.ID + " not found"}),
		},
		{
			name: "unavailable dish", method: http.MethodPost, path: "/v1/orders", token: f.clientToken,
			body:     newOrderBody(t, f.rest.ID, order.NewItem{DishID: f.salad.ID, Quantity: 1}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"items": "Salad is not available"}),
		},
	})

	t.Run("success", func(t *testing.T) {
		env.mailSvc.Reset()
		body := newOrderBody(t, f.rest.ID,
			order.NewItem{DishID: f.pizza.ID, Quantity: 1},
			order.NewItem{DishID: f.pizza.ID, Quantity: 1},
		)
		rec := env.do(http.MethodPost, "/v1/orders", f.clientToken, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var ord order.Order
		unmarshall(t, rec, &ord)
		assert.Equal(t, order.StatusPending, ord.Status)
		assert.Equal(t, f.client.ID, ord.ClientID)
		assert.False(t, ord.Paid)
		require.Len(t, ord.Items, 1) // merged
		assert.Equal(t, 2, ord.Items[0].Quantity)
		assert.Equal(t, int64(1500), ord.Items[0].UnitPrice)
		assert.Equal(t, int64(3000), ord.Subtotal)
		assert.Equal(t, int64(200), ord.ServiceFee)
		assert.Equal(t, int64(3200), ord.Total)

		mails := env.mailSvc.SentMessages()
		require.Len(t, mails, 1)
		assert.Equal(t, "New order received", mails[0].Subject)
		assert.Equal(t, f.owner.Email, mails[0].To[0].Address)
		assert.Contains(t, mails[0].TextContent, "30.00")

		assert.Equal(t, 1, unreadCount(t, env, f.ownerToken))

		rec = env.do(http.MethodGet, "/metrics", "")
		assert.Contains(t, rec.Body.String(), "orders_created_total 1")
	})
}

func Test_orderAPI_lifecycle(t *testing.T) {
	env := setup(t)
	f := env.fixtures(t)
	other := testutil.CreateUser(t, env.db, "Other", "other@chakula.test", user.RoleClient, user.StatusActive)
	otherToken := getToken(t, other)

	rec := env.do(http.MethodPost, "/v1/orders", f.clientToken, newOrderBody(t, f.rest.ID,
		order.NewItem{DishID: f.pizza.ID, Quantity: 2},
		order.NewItem{DishID: f.salad.ID, Quantity: 1},
	))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ord order.Order
	unmarshall(t, rec, &ord)
	require.Equal(t, int64(4000), ord.Total)

	ordPath := "/v1/orders/" + ord.ID
	status := func(s string) []byte { return marshallObj(t, order.ChangeStatus{Status: s}) }

	env.run(t, []httpTest{
		{name: "client sees it", path: ordPath, token: f.clientToken},
		{name: "owner sees it", path: ordPath, token: f.ownerToken},
		{name: "admin sees it", path: ordPath, token: f.adminToken},
		{name: "hidden from other clients", path: ordPath, token: otherToken, wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "order not found"})},
		{name: "hidden from couriers not assigned", path: ordPath, token: f.courierToken, wantCode: http.StatusNotFound},
		{name: "clients cannot move it", method: http.MethodPut, path: ordPath + "/status", token: f.clientToken,
			body: status(order.StatusPreparing), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"})},
		{name: "unknown status", method: http.MethodPut, path: ordPath + "/status", token: f.ownerToken,
			body: status("cancelled"), wantCode: http.StatusBadRequest},
		{name: "preparing", method: http.MethodPut, path: ordPath + "/status", token: f.ownerToken, body: status(order.StatusPreparing)},
		{name: "no going back", method: http.MethodPut, path: ordPath + "/status", token: f.ownerToken,
			body: status(order.StatusPending), wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: "invalid status transition"})},
		{name: "assigned only through assignment", method: http.MethodPut, path: ordPath + "/status", token: f.ownerToken,
			body: status(order.StatusAssigned), wantCode: http.StatusConflict},
		{name: "client cannot cancel once preparing", method: http.MethodDelete, path: ordPath, token: f.clientToken,
			wantCode: http.StatusConflict},
		{name: "ready", method: http.MethodPut, path: ordPath + "/status", token: f.ownerToken, body: status(order.StatusReady)},
		{name: "clients cannot assign", method: http.MethodPut, path: ordPath + "/assign", token: f.clientToken,
			body: marshallObj(t, order.Assign{CourierID: f.courier.ID}), wantCode: http.StatusForbidden},
		{name: "unknown courier", method: http.MethodPut, path: ordPath + "/assign", token: f.ownerToken,
			body: marshallObj(t, order.Assign{CourierID: unknownID}), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"courier_id": "courier not found"})},
	})

	t.Run("assign", func(t *testing.T) {
		env.mailSvc.Reset()
		rec := env.do(http.MethodPut, ordPath+"/assign", f.ownerToken, marshallObj(t, order.Assign{CourierID: f.courier.ID}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got order.Order
		unmarshall(t, rec, &got)
		assert.Equal(t, order.StatusAssigned, got.Status)
		assert.Equal(t, f.courier.ID, got.CourierID.String)
		assert.True(t, got.PreparedAt.Valid)

		mails := env.mailSvc.SentMessages()
		require.Len(t, mails, 1)
		assert.Equal(t, "New delivery assigned", mails[0].Subject)
		assert.Equal(t, 1, unreadCount(t, env, f.courierToken))

		rec = env.do(http.MethodGet, "/v1/orders/assigned", f.courierToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var assigned []order.Order
		unmarshall(t, rec, &assigned)
		require.Len(t, assigned, 1)
		assert.Equal(t, ord.ID, assigned[0].ID)
	})

	env.run(t, []httpTest{
		{name: "too late to reassign", method: http.MethodPut, path: ordPath + "/assign", token: f.ownerToken,
			body: marshallObj(t, order.Assign{CourierID: f.courier.ID}), wantCode: http.StatusConflict},
		{name: "courier sees it", path: ordPath, token: f.courierToken},
		{name: "estimate required", method: http.MethodPut, path: ordPath + "/estimate", token: f.courierToken,
			body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "clients cannot estimate", method: http.MethodPut, path: ordPath + "/estimate", token: f.clientToken,
			body: []byte(`{"minutes":20}`), wantCode: http.StatusForbidden},
	})

	t.Run("estimate", func(t *testing.T) {
		env.mailSvc.Reset()
		rec := env.do(http.MethodPut, ordPath+"/estimate", f.courierToken, []byte(`{"minutes":25}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got order.Order
		unmarshall(t, rec, &got)
		assert.Equal(t, order.StatusOnTheWay, got.Status)
		assert.Equal(t, 25, got.EstimatedMinutes.Int)

		// re-estimating keeps the order on its way and does not notify again
		rec = env.do(http.MethodPut, ordPath+"/estimate", f.courierToken, []byte(`{"minutes":30}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshall(t, rec, &got)
		assert.Equal(t, 30, got.EstimatedMinutes.Int)

		mails := env.mailSvc.SentMessages()
		require.Len(t, mails, 1)
		assert.Equal(t, "Your order is on the way", mails[0].Subject)
		assert.Contains(t, mails[0].TextContent, "25")
		assert.Equal(t, 1, unreadCount(t, env, f.clientToken))
	})

	t.Run("confirm payment", func(t *testing.T) {
		env.mailSvc.Reset()
		rec := env.do(http.MethodPut, ordPath+"/paid", f.courierToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got order.Order
		unmarshall(t, rec, &got)
		assert.True(t, got.Paid)
		assert.Equal(t, order.StatusDelivered, got.Status)
		assert.True(t, got.DeliveredAt.Valid)

		mails := env.mailSvc.SentMessages()
		require.Len(t, mails, 1)
		assert.Equal(t, "Your order has been delivered", mails[0].Subject)
		require.Len(t, mails[0].Attachments, 1)
		assert.Equal(t, "receipt-"+ord.ID+".txt", mails[0].Attachments[0].Filename)

		rec = env.do(http.MethodPut, ordPath+"/paid", f.courierToken)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"order already paid"}`, rec.Body.String())

		rec = env.do(http.MethodGet, "/v1/courier/profile", f.courierToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var c courier.Courier
		unmarshall(t, rec, &c)
		assert.Equal(t, 1, c.CompletedDeliveries)

		assert.Equal(t, 2, unreadCount(t, env, f.clientToken))
		assert.Equal(t, 2, unreadCount(t, env, f.ownerToken))
	})
}

func Test_orderAPI_paidAfterDelivered(t *testing.T) {
	env := setup(t)
	f := env.fixtures(t)
	ord := testutil.CreateOrder(t, env.db, f.client.ID, f.rest.ID, f.pizza)
	ordPath := "/v1/orders/" + ord.ID

	rec := env.do(http.MethodPut, ordPath+"/status", f.ownerToken, []byte(`{"status":"delivered"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var delivered order.Order
	unmarshall(t, rec, &delivered)
	require.True(t, delivered.DeliveredAt.Valid)
	assert.False(t, delivered.Paid)

	env.mailSvc.Reset()
	rec = env.do(http.MethodPut, ordPath+"/paid", f.ownerToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paid order.Order
	unmarshall(t, rec, &paid)
	assert.True(t, paid.Paid)
	assert.Equal(t, order.StatusDelivered, paid.Status)
	assert.True(t, delivered.DeliveredAt.Time.Equal(paid.DeliveredAt.Time), "delivery time must be kept")

	// the receipt still goes out, the delivered notifications do not
	mails := env.mailSvc.SentMessages()
	require.Len(t, mails, 1)
	assert.Equal(t, "Your order has been delivered", mails[0].Subject)
	assert.Equal(t, 1, unreadCount(t, env, f.clientToken))
	assert.Equal(t, 1, unreadCount(t, env, f.ownerToken))
}

func Test_orderAPI_lists(t *testing.T) {
	env := setup(t)
	f := env.fixtures(t)
	other := testutil.CreateUser(t, env.db, "Other", "other@chakula.test", user.RoleClient, user.StatusActive)

	mine := testutil.CreateOrder(t, env.db, f.client.ID, f.rest.ID, f.pizza)
	theirs := testutil.CreateOrder(t, env.db, other.ID, f.rest.ID, f.salad, f.pizza)

	ids := func(t *testing.T, path, token string) []string {
		rec := env.do(http.MethodGet, path, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var orders []order.Order
		unmarshall(t, rec, &orders)
		res := make([]string, 0, len(orders))
		for _, o := range orders {
			res = append(res, o.ID)
		}
		return res
	}

	env.run(t, []httpTest{
		{name: "admins only", path: "/v1/orders", token: f.clientToken, wantCode: http.StatusForbidden},
		{name: "bad paid filter", path: "/v1/orders?paid=maybe", token: f.adminToken, wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"paid": "must be a boolean"})},
		{name: "no courier orders yet", path: "/v1/orders/assigned", token: f.courierToken, wantData: []byte(`[]`)},
		{name: "clients only", path: "/v1/orders/mine", token: f.ownerToken, wantCode: http.StatusForbidden},
	})

	t.Run("client", func(t *testing.T) {
		assert.Equal(t, []string{mine.ID}, ids(t, "/v1/orders/mine", f.clientToken))
	})
	t.Run("restaurant", func(t *testing.T) {
		assert.ElementsMatch(t, []string{mine.ID, theirs.ID}, ids(t, "/v1/my-restaurant/orders", f.ownerToken))
	})
	t.Run("admin", func(t *testing.T) {
		assert.ElementsMatch(t, []string{mine.ID, theirs.ID}, ids(t, "/v1/orders?status=PENDING&paid=false", f.adminToken))
		assert.Empty(t, ids(t, "/v1/orders?paid=true", f.adminToken))
		assert.Empty(t, ids(t, "/v1/orders?status=delivered", f.adminToken))
	})
}

func Test_orderAPI_delete(t *testing.T) {
	env := setup(t)
	f := env.fixtures(t)

	pending := testutil.CreateOrder(t, env.db, f.client.ID, f.rest.ID, f.pizza)
	other := testutil.CreateOrder(t, env.db, f.client.ID, f.rest.ID, f.salad)

	env.run(t, []httpTest{
		{name: "owners cannot delete", method: http.MethodDelete, path: "/v1/orders/" + pending.ID, token: f.ownerToken,
			wantCode: http.StatusForbidden},
		{name: "client cancels a pending order", method: http.MethodDelete, path: "/v1/orders/" + pending.ID, token: f.clientToken,
			wantCode: http.StatusNoContent},
		{name: "gone", path: "/v1/orders/" + pending.ID, token: f.clientToken, wantCode: http.StatusNotFound},
		{name: "admin deletes any order", method: http.MethodDelete, path: "/v1/orders/" + other.ID, token: f.adminToken,
			wantCode: http.StatusNoContent},
	})
}
