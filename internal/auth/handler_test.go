package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"examprep/internal/model"
)

type mockAuthService struct {
	registerFn func(ctx context.Context, in model.UserInput) (*model.User, error)
	loginFn    func(ctx context.Context, in model.LoginInput) (*LoginResult, error)
	authFn     func(ctx context.Context, token string) (*Principal, error)
}

func (m *mockAuthService) Register(ctx context.Context, in model.UserInput) (*model.User, error) {
	if m.registerFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.registerFn(ctx, in)
}

func (m *mockAuthService) Login(ctx context.Context, in model.LoginInput) (*LoginResult, error) {
	if m.loginFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.loginFn(ctx, in)
}

func (m *mockAuthService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if m.authFn == nil {
		return nil, ErrInvalidToken
	}
	return m.authFn(ctx, token)
}

func (m *mockAuthService) CreateUser(ctx context.Context, in model.UserInput) (*model.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return nil, ErrUserNotFound
}

func (m *mockAuthService) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) UpdateUser(ctx context.Context, id int64, in model.UpdateUserInput) (*model.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ChangeRole(ctx context.Context, id int64, in model.UserRoleInput) (*model.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ToggleActive(ctx context.Context, id int64) (*model.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ExportUsersExcel(ctx context.Context, f model.UserFilter) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ImportUsersExcel(ctx context.Context, r io.Reader) (*UserImportReport, error) {
	return nil, errors.New("not implemented")
}

func messageOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v body=%s", err, rr.Body.String())
	}
	return body.Message
}

func TestRequireAuth(t *testing.T) {
	h := NewHandler(&mockAuthService{
		authFn: func(ctx context.Context, token string) (*Principal, error) {
			if token != "good" {
				return nil, ErrInvalidToken
			}
			return &Principal{ID: 3, Username: "asha", UserType: model.UserTypeStudent}, nil
		},
	})
	var seen *Principal
	protected := h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CurrentUser(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{name: "missing", header: "", status: http.StatusUnauthorized, message: "Missing or invalid token"},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized, message: "Missing or invalid token"},
		{name: "bad token", header: "Bearer bad", status: http.StatusUnauthorized, message: "Invalid token"},
		{name: "good token", header: "Bearer good", status: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if tc.message != "" && messageOf(t, rr) != tc.message {
				t.Fatalf("unexpected message %q", messageOf(t, rr))
			}
			if tc.status == http.StatusNoContent && (seen == nil || seen.ID != 3) {
				t.Fatalf("expected principal in context, got %+v", seen)
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	guarded := RequireRoles(model.UserTypeAdmin, model.UserTypeTeacher)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/subject", nil)
	req = req.WithContext(ContextWithUser(req.Context(), &Principal{ID: 1, UserType: model.UserTypeStudent}))
	rr := httptest.NewRecorder()
	guarded.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if got := messageOf(t, rr); got != "You are not authorized to access this resource." {
		t.Fatalf("unexpected message %q", got)
	}

	req = req.WithContext(ContextWithUser(context.Background(), &Principal{ID: 1, UserType: model.UserTypeTeacher}))
	rr = httptest.NewRecorder()
	guarded.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestRegisterConflict(t *testing.T) {
	h := NewHandler(&mockAuthService{
		registerFn: func(ctx context.Context, in model.UserInput) (*model.User, error) {
			return nil, ErrUsernameTaken
		},
	})
	body := bytes.NewBufferString(`{"username":"asha","password":"secret1","email":"a@example.com"}`)
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", body))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if got := messageOf(t, rr); got != "Username already exists" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestLoginResponses(t *testing.T) {
	h := NewHandler(&mockAuthService{
		loginFn: func(ctx context.Context, in model.LoginInput) (*LoginResult, error) {
			switch in.Username {
			case "asha":
				return &LoginResult{Token: "tok"}, nil
			case "idle":
				return nil, ErrInactiveAccount
			}
			return nil, ErrInvalidCredentials
		},
	})

	tests := []struct {
		body    string
		status  int
		message string
	}{
		{body: `{"username":"asha","password":"x"}`, status: http.StatusOK, message: "Login successful"},
		{body: `{"username":"idle","password":"x"}`, status: http.StatusUnauthorized, message: "Account is inactive"},
		{body: `{"username":"nobody","password":"x"}`, status: http.StatusUnauthorized, message: "Invalid credentials"},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(tc.body)))
		if rr.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.body, tc.status, rr.Code)
		}
		if got := messageOf(t, rr); got != tc.message {
			t.Fatalf("%s: unexpected message %q", tc.body, got)
		}
	}

	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"username":"asha","password":"x","extra":1}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rr.Code)
	}
}
