package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"examprep/internal/model"
	"examprep/internal/store"
	"examprep/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
)

type Store interface {
	CreateUser(ctx context.Context, u model.User) (*model.User, error)
	FindUser(ctx context.Context, id int64) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error)
	UpdateUser(ctx context.Context, u model.User) (*model.User, error)
}

type Service struct {
	store      Store
	tokens     *TokenIssuer
	bcryptCost int
}

type ServiceConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
	BcryptCost  int
}

func NewService(s Store, cfg ServiceConfig) *Service {
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:      s,
		tokens:     NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL),
		bcryptCost: cfg.BcryptCost,
	}
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Register creates an account with the requested user type.
func (s *Service) Register(ctx context.Context, in model.UserInput) (*model.User, error) {
	return s.CreateUser(ctx, in)
}

func (s *Service) Login(ctx context.Context, in model.LoginInput) (*LoginResult, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	u, err := s.store.FindUserByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}

	token, expiresAt, err := s.tokens.Issue(Principal{ID: u.ID, Username: u.Username, UserType: u.UserType})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to its principal.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	return s.tokens.Parse(token)
}

func (s *Service) CreateUser(ctx context.Context, in model.UserInput) (*model.User, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if err := s.checkUsernameFree(ctx, in.Username, 0); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.store.CreateUser(ctx, model.User{
		Username:          in.Username,
		PasswordHash:      string(hash),
		Email:             in.Email,
		Phone:             in.Phone,
		PreferredLanguage: in.PreferredLanguage,
		Board:             in.Board,
		UserType:          in.UserType,
		IsActive:          *in.IsActive,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.store.FindUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	return s.store.ListUsers(ctx, f)
}

// UpdateUser applies the fields that are present. A new password is hashed
// before it is stored.
func (s *Service) UpdateUser(ctx context.Context, id int64, in model.UpdateUserInput) (*model.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if in.Username != nil && *in.Username != u.Username {
		if err := s.checkUsernameFree(ctx, *in.Username, u.ID); err != nil {
			return nil, err
		}
		u.Username = *in.Username
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Phone != nil {
		u.Phone = in.Phone
	}
	if in.PreferredLanguage != nil {
		u.PreferredLanguage = in.PreferredLanguage
	}
	if in.Board != nil {
		u.Board = in.Board
	}
	return s.save(ctx, *u)
}

func (s *Service) ChangeRole(ctx context.Context, id int64, in model.UserRoleInput) (*model.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	u.UserType = in.UserType
	return s.save(ctx, *u)
}

func (s *Service) ToggleActive(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = !u.IsActive
	return s.save(ctx, *u)
}

func (s *Service) save(ctx context.Context, u model.User) (*model.User, error) {
	out, err := s.store.UpdateUser(ctx, u)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrUserNotFound
	case errors.Is(err, store.ErrConflict):
		return nil, ErrUsernameTaken
	default:
		return nil, fmt.Errorf("update user: %w", err)
	}
}

func (s *Service) checkUsernameFree(ctx context.Context, username string, selfID int64) error {
	existing, err := s.store.FindUserByUsername(ctx, strings.TrimSpace(username))
	switch {
	case err == nil && existing.ID != selfID:
		return ErrUsernameTaken
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("find user by username: %w", err)
	}
	return nil
}
