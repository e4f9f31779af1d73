package echoapi

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/user"
	testutil "github.com/trezcool/chakula/tests"
)

const strongPwd = "Gr8-Jollof&Rice"

func Test_userAPI_register(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.db, "Taken", "taken@chakula.test", user.RoleClient, user.StatusActive)

	body := func(email, pwd, confirm string) []byte {
		return marshallObj(t, user.NewUser{
			FirstName:       "Amani",
			LastName:        "Kabila",
			Email:           email,
			Password:        pwd,
			PasswordConfirm: confirm,
		})
	}

	env.run(t, []httpTest{
		{
			name: "email taken", method: http.MethodPost, path: "/v1/auth/register",
			body:     body("TAKEN@chakula.test", strongPwd, strongPwd),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "passwords mismatch", method: http.MethodPost, path: "/v1/auth/register",
			body: body("amani@chakula.test", strongPwd, strongPwd+"?"), wantCode: http.StatusBadRequest,
		},
		{
			name: "weak password", method: http.MethodPost, path: "/v1/auth/register",
			body: body("amani@chakula.test", "password", "password"), wantCode: http.StatusBadRequest,
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/auth/register",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{
				"first_name":       "this field is required",
				"last_name":        "this field is required",
				"email":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
	})

	t.Run("success", func(t *testing.T) {
		env.mailSvc.Reset()
		rec := env.do(http.MethodPost, "/v1/auth/register", "", body(" Amani@Chakula.test ", strongPwd, strongPwd))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp AuthResponse
		unmarshall(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "amani@chakula.test", resp.User.Email)
		assert.Equal(t, user.RoleClient, resp.User.Role)
		assert.Equal(t, user.StatusActive, resp.User.Status)

		mails := env.mailSvc.SentMessages()
		require.Len(t, mails, 1)
		assert.Equal(t, "Welcome!", mails[0].Subject)
		assert.Contains(t, mails[0].TextContent, "Amani Kabila")
		assert.NotEmpty(t, mails[0].HTMLContent)

		// the token works right away
		rec = env.do(http.MethodGet, "/v1/auth/me", resp.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		var me user.User
		unmarshall(t, rec, &me)
		assert.Equal(t, resp.User.ID, me.ID)
	})
}

func Test_userAPI_login(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.db, "Active", "active@chakula.test", user.RoleClient, user.StatusActive)
	testutil.CreateUser(t, env.db, "Blocked", "blocked@chakula.test", user.RoleClient, user.StatusBlocked)

	login := func(email, pwd string) []byte { return marshallObj(t, LoginRequest{Email: email, Password: pwd}) }

	env.run(t, []httpTest{
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/auth/login",
			body: login("ghost@chakula.test", testutil.Password), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/login",
			body: login("active@chakula.test", "nope"), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name: "blocked account", method: http.MethodPost, path: "/v1/auth/login",
			body: login("blocked@chakula.test", testutil.Password), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account blocked"}),
		},
		{
			name: "invalid email", method: http.MethodPost, path: "/v1/auth/login",
			body: login("active", testutil.Password), wantCode: http.StatusBadRequest,
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/auth/login", "", login("ACTIVE@chakula.test", testutil.Password))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp AuthResponse
		unmarshall(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.True(t, resp.User.LastLogin.Valid)
	})
}

func Test_userAPI_authRequired(t *testing.T) {
	env := setup(t)
	blocked := testutil.CreateUser(t, env.db, "Blocked", "blocked@chakula.test", user.RoleClient, user.StatusBlocked)

	ghost := user.User{ID: "00000000-0000-0000-0000-000000000000", Email: "ghost@chakula.test", Role: user.RoleClient}

	env.run(t, []httpTest{
		{name: "no token", path: "/v1/auth/me", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "garbage token", path: "/v1/auth/me", token: "not.a.token", wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{name: "deleted user", path: "/v1/auth/me", token: getToken(t, ghost), wantCode: http.StatusUnauthorized},
		{
			name: "blocked user", path: "/v1/auth/me", token: getToken(t, blocked), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account blocked"}),
		},
	})
}

func Test_userAPI_refreshToken(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.db, "Client", "client@chakula.test", user.RoleClient, user.StatusActive)

	expiredOriat := time.Now().Add(-env.conf.Server.JWTRefreshExpirationDelta - time.Minute).Unix()
	expiredToken, err := GenerateToken(GetUserClaims(usr, expiredOriat))
	require.NoError(t, err)

	env.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/auth/token-refresh", wantCode: http.StatusUnauthorized},
		{
			name: "refresh window over", method: http.MethodPost, path: "/v1/auth/token-refresh", token: expiredToken,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "refresh has expired"}),
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/auth/token-refresh", getToken(t, usr))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp AuthResponse
		unmarshall(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, usr.ID, resp.User.ID)
	})
}

func Test_userAPI_passwordReset(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.db, "Forgetful", "forgetful@chakula.test", user.RoleClient, user.StatusActive)
	testutil.CreateUser(t, env.db, "Blocked", "blocked@chakula.test", user.RoleClient, user.StatusBlocked)

	reset := func(email string) []byte { return marshallObj(t, PasswordResetRequest{Email: email}) }

	t.Run("no mail for unknown or blocked accounts", func(t *testing.T) {
		env.mailSvc.Reset()
		for _, email := range []string{"ghost@chakula.test", "blocked@chakula.test"} {
			rec := env.do(http.MethodPost, "/v1/auth/password-reset", "", reset(email))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
		assert.Empty(t, env.mailSvc.SentMessages())
	})

	env.mailSvc.Reset()
	rec := env.do(http.MethodPost, "/v1/auth/password-reset", "", reset(usr.Email))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	mails := env.mailSvc.SentMessages()
	require.Len(t, mails, 1)
	data, ok := mails[0].TemplateData.(map[string]interface{})
	require.True(t, ok)
	uid, _ := data["UID"].(string)
	token, _ := data["Token"].(string)
	require.NotEmpty(t, uid)
	require.NotEmpty(t, token)
	assert.Contains(t, mails[0].TextContent, "uid="+uid)

	confirm := func(uid, token string) []byte {
		return marshallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: strongPwd, PasswordConfirm: strongPwd})
	}

	env.run(t, []httpTest{
		{
			name: "bad token", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm(uid, token+"x"), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "invalid reset link"}),
		},
		{
			name: "bad uid", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm("lol", token), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "invalid reset link"}),
		},
		{
			name: "success", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm(uid, token), wantCode: http.StatusOK,
		},
		{
			name: "token is single use", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm(uid, token), wantCode: http.StatusBadRequest,
		},
		{
			name: "login with the new password", method: http.MethodPost, path: "/v1/auth/login",
			body: marshallObj(t, LoginRequest{Email: usr.Email, Password: strongPwd}), wantCode: http.StatusOK,
		},
	})
}

func Test_userAPI_profile(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.db, "Client", "client@chakula.test", user.RoleClient, user.StatusActive)
	testutil.CreateUser(t, env.db, "Other", "other@chakula.test", user.RoleClient, user.StatusActive)
	admin := testutil.CreateUser(t, env.db, "Admin", "admin@chakula.test", user.RoleAdmin, user.StatusActive)
	token := getToken(t, usr)

	env.run(t, []httpTest{
		{
			name: "email taken", method: http.MethodPut, path: "/v1/profile", token: token,
			body:     marshallObj(t, user.UpdateProfile{Email: "other@chakula.test"}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "wrong old password", method: http.MethodPut, path: "/v1/auth/password", token: token,
			body:     marshallObj(t, user.ChangePassword{OldPassword: "nope", Password: strongPwd, PasswordConfirm: strongPwd}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"old_password": user.ErrWrongPassword.Error()}),
		},
		{
			name: "change password", method: http.MethodPut, path: "/v1/auth/password", token: token,
			body: marshallObj(t, user.ChangePassword{OldPassword: testutil.Password, Password: strongPwd, PasswordConfirm: strongPwd}),
		},
		{name: "admins cannot delete themselves", method: http.MethodDelete, path: "/v1/profile", token: getToken(t, admin), wantCode: http.StatusForbidden},
	})

	t.Run("update keeps blank fields", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/profile", token, marshallObj(t, user.UpdateProfile{FirstName: "Neema", Phone: "+243 800 000 000"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		unmarshall(t, rec, &got)
		assert.Equal(t, "Neema", got.FirstName)
		assert.Equal(t, usr.LastName, got.LastName)
		assert.Equal(t, usr.Email, got.Email)
		assert.Equal(t, "+243 800 000 000", got.Phone)
	})

	t.Run("delete own account", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/v1/profile", token)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = env.do(http.MethodGet, "/v1/auth/me", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_userAPI_admin(t *testing.T) {
	env := setup(t)

	now := core.Now()
	admin := testutil.CreateUser(t, env.db, "Admin", "admin@chakula.test", user.RoleAdmin, user.StatusActive, now.Add(-3*time.Hour))
	client := testutil.CreateUser(t, env.db, "Zawadi", "zawadi@chakula.test", user.RoleClient, user.StatusActive, now.Add(-2*time.Hour))
	blocked := testutil.CreateUser(t, env.db, "Baraka", "baraka@chakula.test", user.RoleClient, user.StatusBlocked, now.Add(-1*time.Hour))
	adminToken := getToken(t, admin)

	path := func(params url.Values) string { return "/v1/users?" + params.Encode() }
	ids := func(t *testing.T, rec []user.User) []string {
		res := make([]string, 0, len(rec))
		for _, u := range rec {
			res = append(res, u.ID)
		}
		return res
	}

	env.run(t, []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: getToken(t, client), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown ordering", path: path(url.Values{"ordering": {"password"}}), token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"ordering": `cannot order by "password"`}),
		},
		{
			name: "bad date", path: path(url.Values{"created_from": {"yesterday"}}), token: adminToken,
			wantCode: http.StatusBadRequest,
		},
		{name: "cannot block self", method: http.MethodPut, path: "/v1/users/" + admin.ID + "/status", token: adminToken,
			body: []byte(`{"status":"blocked"}`), wantCode: http.StatusForbidden},
		{name: "cannot delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "unknown user", path: "/v1/users/00000000-0000-0000-0000-000000000000", token: adminToken, wantCode: http.StatusNotFound},
		{name: "invalid status", method: http.MethodPut, path: "/v1/users/" + client.ID + "/status", token: adminToken,
			body: []byte(`{"status":"vip"}`), wantCode: http.StatusBadRequest},
	})

	queries := []struct {
		name   string
		params url.Values
		want   []string
	}{
		{name: "ordered by -created_at", params: url.Values{"ordering": {"-created_at"}}, want: []string{blocked.ID, client.ID, admin.ID}},
		{name: "search", params: url.Values{"search": {"ZAW"}, "ordering": {"created_at"}}, want: []string{client.ID}},
		{name: "role", params: url.Values{"role": {user.RoleAdmin}}, want: []string{admin.ID}},
		{name: "status", params: url.Values{"status": {user.StatusBlocked}}, want: []string{blocked.ID}},
		{
			name:   "created range",
			params: url.Values{"created_from": {now.Add(-150 * time.Minute).Format(time.RFC3339)}, "ordering": {"created_at"}},
			want:   []string{client.ID, blocked.ID},
		},
		{name: "no match", params: url.Values{"search": {"nobody"}}, want: []string{}},
		{name: "wildcards are literal", params: url.Values{"search": {"%_"}}, want: []string{}},
	}
	for _, tt := range queries {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, path(tt.params), adminToken)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got []user.User
			unmarshall(t, rec, &got)
			assert.Equal(t, tt.want, ids(t, got))
		})
	}

	t.Run("block then unblock", func(t *testing.T) {
		env.mailSvc.Reset()
		rec := env.do(http.MethodPut, "/v1/users/"+client.ID+"/status", adminToken, []byte(`{"status":"blocked"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		unmarshall(t, rec, &got)
		assert.Equal(t, user.StatusBlocked, got.Status)

		rec = env.do(http.MethodGet, "/v1/auth/me", getToken(t, client))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(http.MethodPut, "/v1/users/"+client.ID+"/status", adminToken, []byte(`{"status":"active"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		mails := env.mailSvc.SentMessages()
		require.Len(t, mails, 2)
		assert.Equal(t, "Your account has been suspended", mails[0].Subject)
		assert.Equal(t, "Your account has been activated", mails[1].Subject)
	})

	t.Run("create restaurant owner", func(t *testing.T) {
		env.mailSvc.Reset()
		body := marshallObj(t, user.NewAccount{FirstName: "Mama", LastName: "Africa", Email: "mama@chakula.test"})
		rec := env.do(http.MethodPost, "/v1/users/restaurant-owners", adminToken, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got user.User
		unmarshall(t, rec, &got)
		assert.Equal(t, user.RoleRestaurant, got.Role)

		mails := env.mailSvc.SentMessages()
		require.Len(t, mails, 1)
		assert.Contains(t, mails[0].TextContent, "Temporary password:")
	})

	t.Run("delete user", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/v1/users/"+blocked.ID, adminToken)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = env.do(http.MethodGet, "/v1/users/"+blocked.ID, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_userAPI_contact(t *testing.T) {
	env := setup(t)

	env.run(t, []httpTest{
		{name: "message required", method: http.MethodPost, path: "/v1/auth/contact",
			body: []byte(`{"name":"Jo","email":"jo@chakula.test"}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"message": "this field is required"})},
	})

	env.mailSvc.Reset()
	body := marshallObj(t, user.ContactMessage{Name: "Jo", Email: "jo@chakula.test", Message: "Do you deliver to Goma?"})
	rec := env.do(http.MethodPost, "/v1/auth/contact", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	mails := env.mailSvc.SentMessages()
	require.Len(t, mails, 1)
	assert.Equal(t, env.conf.AdminEmail, mails[0].To[0])
	assert.Contains(t, mails[0].TextContent, "Do you deliver to Goma?")
}

func Test_rateLimit(t *testing.T) {
	env := setup(t, func(conf *core.Config) { conf.Server.AuthRateLimit = 2 })
	body := marshallObj(t, LoginRequest{Email: "ghost@chakula.test", Password: "nope"})

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodPost, "/v1/auth/login", "", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := env.do(http.MethodPost, "/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, rec.Body.String())
}
