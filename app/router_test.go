package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitwise74/account-api/app"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/testkit"
	"bitwise74/account-api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope decodes both success and error bodies
type envelope struct {
	Status       string            `json:"status"`
	Token        string            `json:"token"`
	Code         string            `json:"code"`
	Fields       map[string]string `json:"fields"`
	RequestID    string            `json:"requestID"`
	Data         json.RawMessage   `json:"data"`
	Notification *model.Notice     `json:"notification"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, e *testkit.Env, limiter *middleware.RateLimiter) *gin.Engine {
	t.Helper()

	r, err := app.NewRouter(e.Deps, limiter)
	require.NoError(t, err)
	return r
}

func do(r http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}

	t.Fatal("no session cookie set")
	return nil
}

func login(t *testing.T, r http.Handler, email string) *http.Cookie {
	t.Helper()

	w := do(r, http.MethodPost, "/api/users/login", gin.H{"email": email, "password": testkit.Password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func TestSignupActivateFlow(t *testing.T) {
	e := testkit.New(t)
	r := newRouter(t, e, nil)

	w := do(r, http.MethodPost, "/api/users/signup", gin.H{
		"firstname":       "Ada",
		"lastname":        "Lovelace",
		"email":           "Ada@X.com",
		"password":        testkit.Password,
		"passwordConfirm": testkit.Password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decode(t, w)
	assert.Equal(t, "success", env.Status)
	require.NotNil(t, env.Notification)
	assert.Equal(t, model.NoticeSuccess, env.Notification.Type)
	assert.NotContains(t, string(env.Data), "password")

	w = do(r, http.MethodPost, "/api/users/login", gin.H{"email": "ada@x.com", "password": testkit.Password})
	assert.Equal(t, http.StatusForbidden, w.Code)

	token := e.Mailer.Token(t)
	w = do(r, http.MethodPatch, "/api/users/activationAccount/"+token, gin.H{"email": "ada@x.com", "password": testkit.Password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env = decode(t, w)
	assert.NotEmpty(t, env.Token)
	cookie := sessionCookie(t, w)
	assert.Equal(t, env.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	w = do(r, http.MethodGet, "/api/users/me", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"ada@x.com"`)

	w = do(r, http.MethodHead, "/api/validate", nil, cookie)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/users/logout", nil)
	assert.Equal(t, "loggedout", sessionCookie(t, w).Value)
}

func TestMeWithoutSession(t *testing.T) {
	e := testkit.New(t)
	r := newRouter(t, e, nil)

	w := do(r, http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestProtectedRoutes(t *testing.T) {
	e := testkit.New(t)
	e.User(t, "a@x.com", model.RoleUser)
	e.User(t, "admin@x.com", model.RoleAdmin)
	r := newRouter(t, e, nil)

	w := do(r, http.MethodGet, "/api/apiKeys", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", decode(t, w).Code)

	w = do(r, http.MethodGet, "/api/apiKeys", nil, &http.Cookie{Name: middleware.SessionCookie, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	user := login(t, r, "a@x.com")
	w = do(r, http.MethodGet, "/api/admin/users", nil, user)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decode(t, w).Code)

	admin := login(t, r, "admin@x.com")
	w = do(r, http.MethodGet, "/api/admin/users", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	var list struct {
		Results int `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Results)
}

func TestAPIKeyRoutes(t *testing.T) {
	e := testkit.New(t)
	u := e.User(t, "a@x.com", model.RoleUser)
	e.User(t, "admin@x.com", model.RoleAdmin)
	r := newRouter(t, e, nil)

	user := login(t, r, "a@x.com")

	w := do(r, http.MethodPost, "/api/apiKeys", gin.H{"apiName": "Api-unknown"}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/apiKeys", gin.H{"apiName": "Api-travel"}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data model.APIKey `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	w = do(r, http.MethodPost, "/api/apiKeys", gin.H{"apiName": "Api-travel"}, user)
	assert.Equal(t, http.StatusConflict, w.Code)

	admin := login(t, r, "admin@x.com")
	path := "/api/admin/users/" + u.ID + "/apiKeys/activeApiKey/" + created.Data.ID

	w = do(r, http.MethodPatch, path, gin.H{}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code, "active is required")

	w = do(r, http.MethodPatch, path, gin.H{"active": true}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"active":true`)
	assert.NotContains(t, w.Body.String(), `"apiKey"`, "the admin never sees the secret")

	w = do(r, http.MethodGet, "/api/admin/apiKeys", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.Data.ID)
	assert.NotContains(t, w.Body.String(), `"apiKey"`)

	w = do(r, http.MethodGet, "/api/apiKeys", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active":true`)
	assert.Contains(t, w.Body.String(), `"apiKey"`, "the owner reads the decrypted key")

	w = do(r, http.MethodDelete, "/api/apiKeys/deleteApiKey/"+created.Data.ID, nil, user)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestNotificationRoutes(t *testing.T) {
	e := testkit.New(t)
	u := e.User(t, "a@x.com", model.RoleUser)
	r := newRouter(t, e, nil)

	n, err := e.Ledger.Append(context.Background(), u.ID, model.NoticeSuccess, "hello")
	require.NoError(t, err)

	user := login(t, r, "a@x.com")

	w := do(r, http.MethodPatch, "/api/notifications/"+n.ID+"/read", nil, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"read":true`)

	w = do(r, http.MethodPatch, "/api/notifications/readAll", nil, user)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPatch, "/api/notifications/missing/view", nil, user)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, "/api/notifications/"+n.ID, nil, user)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestValidationEnvelope(t *testing.T) {
	e := testkit.New(t)
	r := newRouter(t, e, nil)

	w := do(r, http.MethodPost, "/api/users/signup", gin.H{
		"firstname":       "Ada",
		"lastname":        "Lovelace",
		"email":           "not-an-email",
		"password":        "short",
		"passwordConfirm": "other",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	env := decode(t, w)
	assert.Equal(t, "fail", env.Status)
	assert.Equal(t, "validation_failed", env.Code)
	assert.Contains(t, env.Fields, "email")
	assert.Contains(t, env.Fields, "password")
	assert.Contains(t, env.Fields, "passwordConfirm")

	w = do(r, http.MethodPost, "/api/users/login", gin.H{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	e := testkit.New(t)
	viper.Set("security.body_limit", 64)
	t.Cleanup(func() { viper.Set("security.body_limit", 1<<20) })
	r := newRouter(t, e, nil)

	w := do(r, http.MethodPost, "/api/users/login", gin.H{"email": strings.Repeat("a", 128) + "@x.com", "password": "x"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "body_too_large", decode(t, w).Code)
}

func TestRateLimit(t *testing.T) {
	e := testkit.New(t)
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{RequestsPerSecond: 1, Burst: 1})
	r := newRouter(t, e, limiter)

	assert.Equal(t, http.StatusOK, do(r, http.MethodHead, "/api/heartbeat", nil).Code)

	w := do(r, http.MethodGet, "/api/users/me", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decode(t, w).Code)
}

func TestRequestID(t *testing.T) {
	e := testkit.New(t)
	r := newRouter(t, e, nil)

	w := do(r, http.MethodHead, "/api/heartbeat", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get("X-Request-ID"), 10)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/api/apiKeys", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc123", decode(t, rec).RequestID)
}
