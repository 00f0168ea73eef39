package users

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"parkgrid-backend/internal/authz"
	"parkgrid-backend/internal/store"
)

// User is a platform account as the dashboard sees it.
type User struct {
	ID         string         `json:"id"`
	Email      string         `json:"email"`
	UserType   authz.UserType `json:"user_type"`
	OperatorID string         `json:"operator_id,omitempty"`
	Active     bool           `json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Service reads the _users table. It doubles as the engine's user
// directory.
type Service struct {
	store *store.Store
}

func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

// LookupUser resolves a user id to its identity fields. Implements
// authz.UserDirectory.
func (s *Service) LookupUser(ctx context.Context, userID string) (authz.Identity, error) {
	var userType string
	var operatorID *string
	err := s.store.Pool.QueryRow(ctx,
		"SELECT user_type, operator_id FROM _users WHERE id = $1 AND active", userID).
		Scan(&userType, &operatorID)
	if err == pgx.ErrNoRows {
		return authz.Identity{}, store.ErrNotFound
	}
	if err != nil {
		return authz.Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	identity := authz.Identity{UserType: authz.UserType(userType)}
	if operatorID != nil {
		identity.OperatorID = *operatorID
	}
	return identity, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	rows, err := s.store.Pool.Query(ctx,
		"SELECT id, email, user_type, operator_id, active, created_at FROM _users WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, store.ErrNotFound
	}
	return users[0], nil
}

// List returns users, optionally scoped to one operator's tenant.
func (s *Service) List(ctx context.Context, operatorID string) ([]*User, error) {
	sql := "SELECT id, email, user_type, operator_id, active, created_at FROM _users"
	var args []any
	if operatorID != "" {
		sql += " WHERE operator_id = $1"
		args = append(args, operatorID)
	}
	sql += " ORDER BY email"

	rows, err := s.store.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows pgx.Rows) ([]*User, error) {
	var users []*User
	for rows.Next() {
		var u User
		var userType string
		var operatorID *string
		if err := rows.Scan(&u.ID, &u.Email, &userType, &operatorID, &u.Active, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.UserType = authz.UserType(userType)
		if operatorID != nil {
			u.OperatorID = *operatorID
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return users, nil
}
