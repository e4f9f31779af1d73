package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chakula/core/user"
	testutil "github.com/trezcool/chakula/tests"
)

func Test_newReport(t *testing.T) {
	courier := user.User{ID: "u1", FirstName: "Jean", LastName: "Kabila", Email: "jean@chakula.test", Role: user.RoleCourier, Status: user.StatusActive}
	client := user.User{ID: "u2", FirstName: "Awa", Email: "awa@chakula.test", Role: user.RoleClient}
	errNotFound := errors.New("order not found")

	t.Run("message only", func(t *testing.T) {
		r := newReport("server started", nil)
		assert.NoError(t, r.err)
		assert.Equal(t, map[string]interface{}{"message": "server started"}, r.extras)
		_, ok := rollbar.PersonFromContext(r.ctx)
		assert.False(t, ok)
	})

	t.Run("error, extras, user and leftovers", func(t *testing.T) {
		r := newReport("assigning order", []interface{}{
			errNotFound,
			map[string]interface{}{"order_id": "o1"},
			courier,
			client, // only the first user is reported
			errors.New("mail not sent"),
			42,
		})
		assert.Equal(t, errNotFound, r.err)
		assert.Equal(t, map[string]interface{}{
			"message":     "assigning order",
			"order_id":    "o1",
			"user_role":   user.RoleCourier,
			"user_status": user.StatusActive,
			"args":        []interface{}{"mail not sent", "42"},
		}, r.extras)

		person, ok := rollbar.PersonFromContext(r.ctx)
		require.True(t, ok)
		assert.Equal(t, &rollbar.Person{Id: "u1", Username: "Jean Kabila", Email: "jean@chakula.test"}, person)
	})
}

func TestRollbarLogger_printsWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "TEST : ", 0), testutil.Config())
	logger.Enable(false)
	defer logger.Close()

	logger.Error("placing order", errors.New("dish unavailable"))

	// errors are printed with their stack
	assert.True(t, strings.HasPrefix(buf.String(), "TEST : placing order\nTEST : dish unavailable\n"), buf.String())
}
