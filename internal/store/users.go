package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"retrosync/pkg/types"
)

// CreateUser persists a user record. ID and color are assigned by the caller.
func (s *Store) CreateUser(ctx context.Context, u *types.User) error {
	return s.write(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO users (id, name, email, color, created_at) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.Name, sql.NullString{String: u.Email, Valid: u.Email != ""}, u.Color, u.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting user: %w", err)
		}
		return nil
	})
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (*types.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, color, created_at FROM users WHERE id = ?`, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*types.User, error) {
	var u types.User
	var email sql.NullString
	err := row.Scan(&u.ID, &u.Name, &email, &u.Color, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.Email = email.String
	return &u, nil
}

// userOrNil resolves a joined user reference, tolerating dangling ids.
func (s *Store) userOrNil(ctx context.Context, id string) *types.User {
	if id == "" {
		return nil
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil
	}
	return u
}
