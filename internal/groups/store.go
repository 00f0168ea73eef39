package groups

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"parkgrid-backend/internal/store"
)

// Store persists groups and memberships. The engine only ever reads
// through it; writes happen through the Service's CRUD.
type Store interface {
	ListGroups(ctx context.Context, operatorID string) ([]*UserGroup, error)
	GetGroup(ctx context.Context, id string) (*UserGroup, error)
	GroupsForUser(ctx context.Context, userID string) ([]*UserGroup, error)
	InsertGroup(ctx context.Context, g *UserGroup) error
	UpdateGroup(ctx context.Context, g *UserGroup) error
	DeleteGroup(ctx context.Context, id string) error
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) (bool, error)
	RemoveAllMembers(ctx context.Context, groupID string) error
}

const groupColumns = `g.id, g.name, g.description, g.permissions, g.operator_id, g.created_at, g.updated_at,
	(SELECT COUNT(*) FROM _user_group_members m WHERE m.group_id = g.id) AS member_count`

// PGStore is the Postgres-backed Store.
type PGStore struct {
	store *store.Store
}

func NewPGStore(s *store.Store) *PGStore {
	return &PGStore{store: s}
}

func (s *PGStore) ListGroups(ctx context.Context, operatorID string) ([]*UserGroup, error) {
	sql := "SELECT " + groupColumns + " FROM _user_groups g"
	var args []any
	if operatorID != "" {
		sql += " WHERE g.operator_id = $1"
		args = append(args, operatorID)
	}
	sql += " ORDER BY g.name"

	rows, err := s.store.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()
	return scanGroups(rows)
}

func (s *PGStore) GetGroup(ctx context.Context, id string) (*UserGroup, error) {
	rows, err := s.store.Pool.Query(ctx,
		"SELECT "+groupColumns+" FROM _user_groups g WHERE g.id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	defer rows.Close()

	groups, err := scanGroups(rows)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrNotFound
	}
	return groups[0], nil
}

func (s *PGStore) GroupsForUser(ctx context.Context, userID string) ([]*UserGroup, error) {
	rows, err := s.store.Pool.Query(ctx,
		"SELECT "+groupColumns+` FROM _user_groups g
		 JOIN _user_group_members m ON m.group_id = g.id
		 WHERE m.user_id = $1 ORDER BY g.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("groups for user: %w", err)
	}
	defer rows.Close()
	return scanGroups(rows)
}

func (s *PGStore) InsertGroup(ctx context.Context, g *UserGroup) error {
	permsJSON, err := json.Marshal(g.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	_, err = s.store.Pool.Exec(ctx,
		`INSERT INTO _user_groups (id, name, description, permissions, operator_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		g.ID, g.Name, g.Description, permsJSON, nullIfEmpty(g.OperatorID))
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (s *PGStore) UpdateGroup(ctx context.Context, g *UserGroup) error {
	permsJSON, err := json.Marshal(g.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	tag, err := s.store.Pool.Exec(ctx,
		`UPDATE _user_groups
		 SET name = $2, description = $3, permissions = $4, operator_id = $5, updated_at = NOW()
		 WHERE id = $1`,
		g.ID, g.Name, g.Description, permsJSON, nullIfEmpty(g.OperatorID))
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) DeleteGroup(ctx context.Context, id string) error {
	tag, err := s.store.Pool.Exec(ctx, "DELETE FROM _user_groups WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) AddMember(ctx context.Context, groupID, userID string) error {
	tag, err := s.store.Pool.Exec(ctx,
		`INSERT INTO _user_group_members (group_id, user_id) VALUES ($1, $2)
		 ON CONFLICT (group_id, user_id) DO NOTHING`, groupID, userID)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyMember
	}
	return nil
}

func (s *PGStore) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	tag, err := s.store.Pool.Exec(ctx,
		"DELETE FROM _user_group_members WHERE group_id = $1 AND user_id = $2", groupID, userID)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) RemoveAllMembers(ctx context.Context, groupID string) error {
	if _, err := s.store.Pool.Exec(ctx,
		"DELETE FROM _user_group_members WHERE group_id = $1", groupID); err != nil {
		return fmt.Errorf("remove members: %w", err)
	}
	return nil
}

func scanGroups(rows pgx.Rows) ([]*UserGroup, error) {
	var groups []*UserGroup
	for rows.Next() {
		var g UserGroup
		var permsJSON []byte
		var operatorID *string
		var memberCount int64
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &permsJSON, &operatorID,
			&g.CreatedAt, &g.UpdatedAt, &memberCount); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		if len(permsJSON) > 0 {
			if err := json.Unmarshal(permsJSON, &g.Permissions); err != nil {
				return nil, fmt.Errorf("decode permissions for group %s: %w", g.ID, err)
			}
		}
		if operatorID != nil {
			g.OperatorID = *operatorID
		}
		g.MemberCount = int(memberCount)
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return groups, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IsNotFound reports whether err is the group-missing error, unwrapping
// as needed.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
