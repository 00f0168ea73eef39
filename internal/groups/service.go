package groups

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"parkgrid-backend/internal/audit"
	"parkgrid-backend/internal/authz"
)

// Service is the management surface for user groups: CRUD, membership
// and permission validation. Every mutation emits an audit record;
// audit failures are absorbed by the recorder and never fail the
// mutation itself.
type Service struct {
	store Store
	audit audit.Recorder
}

func NewService(store Store, recorder audit.Recorder) *Service {
	return &Service{store: store, audit: recorder}
}

// CreateInput carries the fields for a new group.
type CreateInput struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Permissions []authz.Permission `json:"permissions"`
	OperatorID  string             `json:"operator_id"`
}

// UpdateInput carries a partial update; nil fields are left unchanged.
// Permissions, when present, replace the group's list wholesale.
type UpdateInput struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Permissions *[]authz.Permission `json:"permissions"`
}

func (s *Service) List(ctx context.Context, operatorID string) ([]*UserGroup, error) {
	return s.store.ListGroups(ctx, operatorID)
}

func (s *Service) Get(ctx context.Context, id string) (*UserGroup, error) {
	return s.store.GetGroup(ctx, id)
}

// Create persists a new group. The initial permission list is deduped
// by resource (last entry wins) so the one-entry-per-resource invariant
// holds from the start.
func (s *Service) Create(ctx context.Context, input CreateInput) (*UserGroup, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	if result := s.ValidatePermissions(input.Permissions); !result.IsValid {
		return nil, fmt.Errorf("invalid permissions: %v", result.Errors)
	}

	g := &UserGroup{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		Permissions: dedupeByResource(input.Permissions),
		OperatorID:  input.OperatorID,
	}
	if err := s.store.InsertGroup(ctx, g); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "user_group.created", "user_group", g.ID, nil, g.snapshot())
	return g, nil
}

// Update applies a partial update and records before/after snapshots.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*UserGroup, error) {
	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	before := g.snapshot()

	if input.Name != nil {
		g.Name = *input.Name
	}
	if input.Description != nil {
		g.Description = *input.Description
	}
	if input.Permissions != nil {
		if result := s.ValidatePermissions(*input.Permissions); !result.IsValid {
			return nil, fmt.Errorf("invalid permissions: %v", result.Errors)
		}
		g.Permissions = dedupeByResource(*input.Permissions)
	}

	if err := s.store.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "user_group.updated", "user_group", g.ID, before, g.snapshot())
	return g, nil
}

// Delete removes all memberships, then the group itself. The audit
// record carries the group's prior state.
func (s *Service) Delete(ctx context.Context, id string) error {
	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.RemoveAllMembers(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteGroup(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, "user_group.deleted", "user_group", id, g.snapshot(), nil)
	return nil
}

// AddUser joins a user to a group. Adding an existing member fails with
// ErrAlreadyMember.
func (s *Service) AddUser(ctx context.Context, groupID, userID string) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if err := s.store.AddMember(ctx, groupID, userID); err != nil {
		return err
	}
	s.audit.Record(ctx, "user_group.member_added", "user_group", groupID,
		nil, map[string]any{"user_id": userID})
	return nil
}

// RemoveUser removes a user from a group. Removing a non-member is a
// no-op, so the call is idempotent.
func (s *Service) RemoveUser(ctx context.Context, groupID, userID string) error {
	removed, err := s.store.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if removed {
		s.audit.Record(ctx, "user_group.member_removed", "user_group", groupID,
			map[string]any{"user_id": userID}, nil)
	}
	return nil
}

// AddPermission adds one permission to a group, replacing any existing
// entry for the same resource; a group never carries two permissions
// for one resource string.
func (s *Service) AddPermission(ctx context.Context, groupID string, perm authz.Permission) (*UserGroup, error) {
	if result := s.ValidatePermissions([]authz.Permission{perm}); !result.IsValid {
		return nil, fmt.Errorf("invalid permission: %v", result.Errors)
	}
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	before := g.snapshot()

	replaced := false
	for i := range g.Permissions {
		if g.Permissions[i].Resource == perm.Resource {
			g.Permissions[i] = perm
			replaced = true
			break
		}
	}
	if !replaced {
		g.Permissions = append(g.Permissions, perm)
	}

	if err := s.store.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "user_group.permission_added", "user_group", groupID, before, g.snapshot())
	return g, nil
}

// PermissionsForUser returns the union of all member groups'
// permissions, the user's custom permission layer. Implements
// authz.PermissionSource.
func (s *Service) PermissionsForUser(ctx context.Context, userID string) ([]authz.Permission, error) {
	memberGroups, err := s.store.GroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var perms []authz.Permission
	for _, g := range memberGroups {
		perms = append(perms, g.Permissions...)
	}
	return perms, nil
}

// UserHasPermission checks only the user's custom group grants, not the
// role defaults: "does this custom grant apply" as opposed to the full
// engine decision.
func (s *Service) UserHasPermission(ctx context.Context, userID, resource string, action authz.Action, actx *authz.Context, resourceData map[string]any) (bool, error) {
	perms, err := s.PermissionsForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if actx == nil {
		actx = &authz.Context{UserID: userID}
	}
	for _, p := range perms {
		if !authz.MatchResource(p.Resource, resource) || !p.Allows(action) {
			continue
		}
		if len(p.Conditions) == 0 {
			return true, nil
		}
		if resourceData == nil {
			continue
		}
		if authz.EvaluateConditions(p.Conditions, actx, resourceData) {
			return true, nil
		}
	}
	return false, nil
}

func dedupeByResource(perms []authz.Permission) []authz.Permission {
	out := make([]authz.Permission, 0, len(perms))
	index := make(map[string]int, len(perms))
	for _, p := range perms {
		if i, seen := index[p.Resource]; seen {
			out[i] = p
			continue
		}
		index[p.Resource] = len(out)
		out = append(out, p)
	}
	return out
}
