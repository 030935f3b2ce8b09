package auth

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"examprep/internal/app/apiresp"
	"examprep/internal/app/httpparam"
	"examprep/internal/app/observability"
	"examprep/internal/model"
	"examprep/internal/validation"
)

type contextKey string

const userContextKey contextKey = "auth_user"

const maxSpreadsheetBytes = 10 << 20

type Handler struct {
	svc authService
}

type authService interface {
	Register(ctx context.Context, in model.UserInput) (*model.User, error)
	Login(ctx context.Context, in model.LoginInput) (*LoginResult, error)
	Authenticate(ctx context.Context, token string) (*Principal, error)

	CreateUser(ctx context.Context, in model.UserInput) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, in model.UpdateUserInput) (*model.User, error)
	ChangeRole(ctx context.Context, id int64, in model.UserRoleInput) (*model.User, error)
	ToggleActive(ctx context.Context, id int64) (*model.User, error)

	ExportUsersExcel(ctx context.Context, f model.UserFilter) ([]byte, error)
	ImportUsersExcel(ctx context.Context, r io.Reader) (*UserImportReport, error)
}

func NewHandler(svc authService) *Handler {
	return &Handler{svc: svc}
}

type registeredUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	UserType string `json:"userType"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in model.UserInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	data := []registeredUser{{ID: u.ID, Username: u.Username, UserType: u.UserType}}
	apiresp.WriteOK(w, r, http.StatusCreated, data, "User registered successfully")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in model.LoginInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := h.svc.Login(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, []*LoginResult{res}, "Login successful")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, user, "Current user retrieved successfully")
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in model.UserInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, err := h.svc.CreateUser(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, u, "User created successfully")
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListUsers(r.Context(), userFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items, "Users retrieved successfully")
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}
	u, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, u, "User retrieved successfully")
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}
	var in model.UpdateUserInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, err := h.svc.UpdateUser(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, u, "User updated successfully")
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}
	var in model.UserRoleInput
	if err := validation.Unmarshal(r.Body, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, err := h.svc.ChangeRole(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, u, "User role updated successfully")
}

func (h *Handler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id, err := httpparam.ID(r, "id")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}
	u, err := h.svc.ToggleActive(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, u, "User status updated successfully")
}

func (h *Handler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	content, err := h.svc.ExportUsersExcel(r.Context(), userFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="users.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *Handler) ImportUsers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSpreadsheetBytes)
	if err := r.ParseMultipartForm(maxSpreadsheetBytes); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Body must be a multipart form with a file field")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Body must be a multipart form with a file field")
		return
	}
	defer file.Close()

	report, err := h.svc.ImportUsersExcel(r.Context(), file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, report, "User import completed")
}

// RequireAuth resolves the bearer token into a Principal on the request
// context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
			return
		}
		user, err := h.svc.Authenticate(r.Context(), token)
		if err != nil {
			apiresp.WriteError(w, r, http.StatusUnauthorized, "Invalid token")
			return
		}
		observability.SetUser(r.Context(), user.ID, user.Username)
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				apiresp.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid token")
				return
			}
			if _, exists := allowed[user.UserType]; !exists {
				apiresp.WriteError(w, r, http.StatusForbidden, "You are not authorized to access this resource.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CurrentUser(ctx context.Context) (*Principal, bool) {
	v := ctx.Value(userContextKey)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*Principal)
	return u, ok
}

// ContextWithUser injects an authenticated principal into context.
func ContextWithUser(ctx context.Context, user *Principal) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func userFilter(r *http.Request) model.UserFilter {
	return model.UserFilter{
		UserType: httpparam.Upper(r, "userType"),
		Username: httpparam.String(r, "username"),
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if verrs, ok := validation.As(err); ok {
		apiresp.WriteError(w, r, http.StatusBadRequest, verrs)
		return
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		apiresp.WriteError(w, r, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrInactiveAccount):
		apiresp.WriteError(w, r, http.StatusUnauthorized, "Account is inactive")
	case errors.Is(err, ErrUsernameTaken):
		apiresp.WriteError(w, r, http.StatusConflict, "Username already exists")
	case errors.Is(err, ErrUserNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, ErrInvalidSpreadsheet):
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
	default:
		log.Printf("auth handler %s %s: %v", r.Method, r.URL.Path, err)
		apiresp.WriteError(w, r, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
