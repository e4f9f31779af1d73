package echoapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/notification"
	"github.com/trezcool/chakula/core/order"
	"github.com/trezcool/chakula/core/user"
	"github.com/trezcool/chakula/storage/database/sqlxrepos"
	testutil "github.com/trezcool/chakula/tests"
)

func createNotification(t *testing.T, env *testEnv, userID, message string, createdAt time.Time) notification.Notification {
	t.Helper()
	n, err := sqlxrepos.NewNotificationRepository(env.db).CreateNotification(context.Background(), notification.Notification{
		UserID:    userID,
		Message:   message,
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	return n
}

func notificationMessages(t *testing.T, env *testEnv, path, token string) []string {
	rec := env.do(http.MethodGet, path, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var notifs []notification.Notification
	unmarshall(t, rec, &notifs)
	msgs := make([]string, 0, len(notifs))
	for _, n := range notifs {
		msgs = append(msgs, n.Message)
	}
	return msgs
}

func Test_notificationAPI(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.db, "Client", "client@chakula.test", user.RoleClient, user.StatusActive)
	other := testutil.CreateUser(t, env.db, "Other", "other@chakula.test", user.RoleClient, user.StatusActive)
	token, otherToken := getToken(t, usr), getToken(t, other)

	now := core.Now()
	first := createNotification(t, env, usr.ID, "first", now.Add(-2*time.Minute))
	second := createNotification(t, env, usr.ID, "second", now.Add(-time.Minute))
	createNotification(t, env, usr.ID, "third", now)
	theirs := createNotification(t, env, other.ID, "theirs", now)

	env.run(t, []httpTest{
		{name: "auth required", path: "/v1/notifications", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "bad unread filter", path: "/v1/notifications?unread=sometimes", token: token, wantCode: http.StatusBadRequest},
		{name: "unread count", path: "/v1/notifications/unread-count", token: token, wantData: []byte(`{"count":3}`)},
		{
			name: "cannot read the notifications of others", method: http.MethodPut, path: "/v1/notifications/" + theirs.ID + "/read",
			token: token, wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "notification not found"}),
		},
		{
			name: "cannot delete the notifications of others", method: http.MethodDelete, path: "/v1/notifications/" + theirs.ID,
			token: token, wantCode: http.StatusNotFound,
		},
		{name: "unknown notification", method: http.MethodPut, path: "/v1/notifications/nope/read", token: token, wantCode: http.StatusNotFound},
	})

	t.Run("newest first", func(t *testing.T) {
		assert.Equal(t, []string{"third", "second", "first"}, notificationMessages(t, env, "/v1/notifications", token))
	})

	t.Run("mark one read", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/notifications/"+second.ID+"/read", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got notification.Notification
		unmarshall(t, rec, &got)
		assert.True(t, got.Read)

		// idempotent
		rec = env.do(http.MethodPut, "/v1/notifications/"+second.ID+"/read", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.Equal(t, 2, unreadCount(t, env, token))
		assert.Equal(t, []string{"third", "first"}, notificationMessages(t, env, "/v1/notifications?unread=true", token))
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/v1/notifications/"+first.ID, token)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.Equal(t, []string{"third", "second"}, notificationMessages(t, env, "/v1/notifications", token))
	})

	t.Run("mark all read", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/notifications/read-all", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"updated":1}`, rec.Body.String())

		assert.Equal(t, 0, unreadCount(t, env, token))
		assert.Empty(t, notificationMessages(t, env, "/v1/notifications?unread=1", token))
		assert.Equal(t, 1, unreadCount(t, env, otherToken))
	})
}

func Test_notificationAPI_stream(t *testing.T) {
	env := setup(t)
	f := env.fixtures(t)

	srv := httptest.NewServer(env.app)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/notifications/ws"

	t.Run("token required", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("receives notifications", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+f.ownerToken, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Eventually(t, func() bool { return env.hub.Connections(f.owner.ID) == 1 }, time.Second, 10*time.Millisecond)

		rec := env.do(http.MethodPost, "/v1/orders", f.clientToken, newOrderBody(t, f.rest.ID, order.NewItem{DishID: f.pizza.ID, Quantity: 1}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got notification.Notification
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, f.owner.ID, got.UserID)
		assert.Equal(t, "New order received from "+f.client.FullName()+".", got.Message)
		assert.False(t, got.Read)
	})

	t.Run("disconnects are forgotten", func(t *testing.T) {
		require.Eventually(t, func() bool { return env.hub.Connections(f.owner.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
	})
}
