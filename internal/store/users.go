package store

import (
	"context"
	"fmt"

	"examprep/internal/model"
)

const userColumns = `id, username, password_hash, email, phone, preferred_language, board, user_type, is_active, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u model.User) (*model.User, error) {
	ts := now()
	id, err := s.insert(ctx, `
		INSERT INTO users (username, password_hash, email, phone, preferred_language, board, user_type, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		u.Username, u.PasswordHash, u.Email, u.Phone, u.PreferredLanguage, u.Board, u.UserType, u.IsActive, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.FindUser(ctx, id)
}

func (s *Store) FindUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = ?`, username); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	var w where
	if f.UserType != nil {
		w.add("user_type = ?", *f.UserType)
	}
	if f.Username != nil {
		w.add("LOWER(username) LIKE ?", likePattern(*f.Username))
	}
	items := []model.User{}
	if err := s.selectAll(ctx, &items, `SELECT `+userColumns+` FROM users`+w.sql()+` ORDER BY id`, w.args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return items, nil
}

func (s *Store) UpdateUser(ctx context.Context, u model.User) (*model.User, error) {
	err := s.execOne(ctx, `
		UPDATE users
		SET username = ?, password_hash = ?, email = ?, phone = ?, preferred_language = ?, board = ?,
		    user_type = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		u.Username, u.PasswordHash, u.Email, u.Phone, u.PreferredLanguage, u.Board, u.UserType, u.IsActive, now(), u.ID,
	)
	if err != nil {
		return nil, err
	}
	return s.FindUser(ctx, u.ID)
}
