// Package store is the persistence gateway: one create/find/list/update/delete
// surface per entity over the relational schema in internal/db.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	internaldb "examprep/internal/db"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("record conflicts with an existing row")
	ErrInvalidReference = errors.New("record references a missing row")
)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks and metrics.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	return mapErr(s.db.GetContext(ctx, dest, s.db.Rebind(query), args...))
}

func (s *Store) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return mapErr(s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...))
}

// insert runs an INSERT ... RETURNING id statement.
func (s *Store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), args...).Scan(&id); err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case internaldb.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case internaldb.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	default:
		return err
	}
}

func now() time.Time {
	return time.Now().UTC()
}

// where accumulates AND-ed conditions written with ? placeholders.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func likePattern(v string) string {
	return "%" + strings.ToLower(strings.TrimSpace(v)) + "%"
}
