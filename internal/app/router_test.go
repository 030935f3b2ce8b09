package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	internaldb "examprep/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message json.RawMessage `json:"message"`
}

func newTestRouter(t *testing.T, limiter RateLimiter) http.Handler {
	t.Helper()
	dbConn, err := internaldb.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbConn.Close() })

	return NewRouter(Config{
		JWTSecret:           "test-secret",
		JWTTTLHours:         1,
		CORSAllowedOrigins:  []string{"*"},
		AuthRateLimitPerMin: 60,
		BodyLimitBytes:      1 << 20,
	}, dbConn, limiter)
}

func call(t *testing.T, h http.Handler, method, target, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func login(t *testing.T, h http.Handler, username, userType string) string {
	t.Helper()
	w, _ := call(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username, "password": "secret123", "email": username + "@example.com", "userType": userType,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := call(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{"username": username, "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res []struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res, 1)
	return res[0].Token
}

func TestRouterPublicRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{name: "healthz", method: http.MethodGet, target: "/healthz", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, target: "/metrics", wantStatus: http.StatusOK},
		{name: "auth_me_unauthorized", method: http.MethodGet, target: "/api/auth/me", wantStatus: http.StatusUnauthorized},
		{name: "subjects_unauthorized", method: http.MethodGet, target: "/api/subject", wantStatus: http.StatusUnauthorized},
		{name: "login_invalid_body", method: http.MethodPost, target: "/api/auth/login", wantStatus: http.StatusBadRequest},
		{name: "unknown_route", method: http.MethodGet, target: "/api/nope", wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Fatalf("%s %s: got status %d, want %d", tc.method, tc.target, w.Code, tc.wantStatus)
			}
		})
	}
}

func TestRouterRequestIDHeader(t *testing.T) {
	router := newTestRouter(t, nil)
	w, _ := call(t, router, http.MethodGet, "/api/auth/me", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestRouterRoleGating(t *testing.T) {
	router := newTestRouter(t, nil)
	teacher := login(t, router, "teacher1", "TEACHER")
	student := login(t, router, "student1", "STUDENT")

	w, env := call(t, router, http.MethodPost, "/api/subject", student, map[string]any{"name": "Math"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `"You are not authorized to access this resource."`, string(env.Message))
	assert.JSONEq(t, `[]`, string(env.Data))

	w, _ = call(t, router, http.MethodPost, "/api/subject", teacher, map[string]any{"name": "Math"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = call(t, router, http.MethodGet, "/api/subject", student, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var subjects []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &subjects))
	require.Len(t, subjects, 1)
	assert.Equal(t, "Math", subjects[0].Name)

	w, _ = call(t, router, http.MethodGet, "/api/user", teacher, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = call(t, router, http.MethodGet, "/api/report/test/1", student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = call(t, router, http.MethodGet, "/api/report/test/1", teacher, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterLoginIsRateLimited(t *testing.T) {
	router := newTestRouter(t, NewIPRateLimiter(2, 0))
	body := map[string]any{"username": "nobody", "password": "whatever"}

	for i := 0; i < 2; i++ {
		w, _ := call(t, router, http.MethodPost, "/api/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w, _ := call(t, router, http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
