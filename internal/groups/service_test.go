package groups

import (
	"context"
	"errors"
	"strings"
	"testing"

	"parkgrid-backend/internal/audit"
	"parkgrid-backend/internal/authz"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	groups  map[string]*UserGroup
	members map[string]map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		groups:  map[string]*UserGroup{},
		members: map[string]map[string]bool{},
	}
}

func (m *memStore) ListGroups(ctx context.Context, operatorID string) ([]*UserGroup, error) {
	var out []*UserGroup
	for _, g := range m.groups {
		if operatorID == "" || g.OperatorID == operatorID {
			out = append(out, m.withCount(g))
		}
	}
	return out, nil
}

func (m *memStore) GetGroup(ctx context.Context, id string) (*UserGroup, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.withCount(g), nil
}

func (m *memStore) GroupsForUser(ctx context.Context, userID string) ([]*UserGroup, error) {
	var out []*UserGroup
	for gid, users := range m.members {
		if users[userID] {
			out = append(out, m.withCount(m.groups[gid]))
		}
	}
	return out, nil
}

func (m *memStore) InsertGroup(ctx context.Context, g *UserGroup) error {
	copied := *g
	m.groups[g.ID] = &copied
	return nil
}

func (m *memStore) UpdateGroup(ctx context.Context, g *UserGroup) error {
	if _, ok := m.groups[g.ID]; !ok {
		return ErrNotFound
	}
	copied := *g
	m.groups[g.ID] = &copied
	return nil
}

func (m *memStore) DeleteGroup(ctx context.Context, id string) error {
	if _, ok := m.groups[id]; !ok {
		return ErrNotFound
	}
	delete(m.groups, id)
	return nil
}

func (m *memStore) AddMember(ctx context.Context, groupID, userID string) error {
	if m.members[groupID] == nil {
		m.members[groupID] = map[string]bool{}
	}
	if m.members[groupID][userID] {
		return ErrAlreadyMember
	}
	m.members[groupID][userID] = true
	return nil
}

func (m *memStore) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	if !m.members[groupID][userID] {
		return false, nil
	}
	delete(m.members[groupID], userID)
	return true, nil
}

func (m *memStore) RemoveAllMembers(ctx context.Context, groupID string) error {
	delete(m.members, groupID)
	return nil
}

func (m *memStore) withCount(g *UserGroup) *UserGroup {
	copied := *g
	copied.MemberCount = len(m.members[g.ID])
	return &copied
}

// recordingAudit captures entries for assertions.
type recordingAudit struct {
	actions []string
	old     []map[string]any
	new     []map[string]any
}

func (r *recordingAudit) Record(ctx context.Context, action, resourceType, resourceID string, oldValues, newValues map[string]any) {
	r.actions = append(r.actions, action)
	r.old = append(r.old, oldValues)
	r.new = append(r.new, newValues)
}

func newTestService() (*Service, *memStore, *recordingAudit) {
	st := newMemStore()
	rec := &recordingAudit{}
	return NewService(st, rec), st, rec
}

func TestCreate(t *testing.T) {
	svc, st, rec := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateInput{
		Name:        "Reporting",
		Description: "Report access",
		Permissions: []authz.Permission{
			{Resource: "reports", Actions: []authz.Action{authz.ActionRead}},
		},
		OperatorID: "op1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.ID == "" {
		t.Fatal("expected generated id")
	}
	if g.MemberCount != 0 {
		t.Fatalf("expected zero members, got %d", g.MemberCount)
	}
	if _, ok := st.groups[g.ID]; !ok {
		t.Fatal("expected group persisted")
	}
	if len(rec.actions) != 1 || rec.actions[0] != "user_group.created" {
		t.Fatalf("expected create audit record, got %v", rec.actions)
	}
}

func TestCreate_DedupesInitialPermissions(t *testing.T) {
	svc, _, _ := newTestService()

	g, err := svc.Create(context.Background(), CreateInput{
		Name: "Dupes",
		Permissions: []authz.Permission{
			{Resource: "reports", Actions: []authz.Action{authz.ActionRead}},
			{Resource: "reports", Actions: []authz.Action{authz.ActionRead, authz.ActionDelete}},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(g.Permissions) != 1 {
		t.Fatalf("expected one entry per resource, got %d", len(g.Permissions))
	}
	if !g.Permissions[0].Allows(authz.ActionDelete) {
		t.Fatal("expected the later entry to win")
	}
}

func TestCreate_RejectsInvalidPermissions(t *testing.T) {
	svc, _, rec := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{
		Name: "Bad",
		Permissions: []authz.Permission{
			{Resource: "nonexistent_table", Actions: []authz.Action{authz.ActionRead}},
		},
	})
	if err == nil {
		t.Fatal("expected error for unknown resource")
	}
	if len(rec.actions) != 0 {
		t.Fatal("expected no audit record for failed create")
	}
}

func TestValidatePermissions(t *testing.T) {
	svc, _, _ := newTestService()

	result := svc.ValidatePermissions([]authz.Permission{
		{Resource: "nonexistent_table", Actions: []authz.Action{authz.ActionRead}},
	})
	if result.IsValid {
		t.Fatal("expected invalid")
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "nonexistent_table") {
		t.Fatalf("expected error naming the resource, got %v", result.Errors)
	}

	// audit_logs only ever allows read
	result = svc.ValidatePermissions([]authz.Permission{
		{Resource: "audit_logs", Actions: []authz.Action{authz.ActionDelete}},
	})
	if result.IsValid {
		t.Fatal("expected delete on audit_logs to be rejected")
	}

	// Unknown condition operator
	result = svc.ValidatePermissions([]authz.Permission{
		{Resource: "bookings", Actions: []authz.Action{authz.ActionRead},
			Conditions: []authz.Condition{{Field: "user_id", Operator: "matches", Value: "x"}}},
	})
	if result.IsValid {
		t.Fatal("expected unknown operator to be rejected")
	}

	result = svc.ValidatePermissions([]authz.Permission{
		{Resource: "bookings", Actions: []authz.Action{authz.ActionRead},
			Conditions: []authz.Condition{{Field: "user_id", Operator: authz.OpEquals, Value: "{{userId}}"}}},
	})
	if !result.IsValid {
		t.Fatalf("expected valid permission, got %v", result.Errors)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	svc, _, rec := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, CreateInput{
		Name:        "Before",
		Description: "keep me",
		Permissions: []authz.Permission{
			{Resource: "reports", Actions: []authz.Action{authz.ActionRead}},
		},
	})

	name := "After"
	updated, err := svc.Update(ctx, g.ID, UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "After" {
		t.Fatalf("expected name updated, got %s", updated.Name)
	}
	if updated.Description != "keep me" {
		t.Fatal("expected unspecified field to be unchanged")
	}
	if len(updated.Permissions) != 1 {
		t.Fatal("expected permissions unchanged")
	}

	// supplied permissions replace wholesale
	perms := []authz.Permission{
		{Resource: "analytics", Actions: []authz.Action{authz.ActionRead}},
	}
	updated, err = svc.Update(ctx, g.ID, UpdateInput{Permissions: &perms})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Permissions) != 1 || updated.Permissions[0].Resource != "analytics" {
		t.Fatalf("expected wholesale replacement, got %+v", updated.Permissions)
	}

	last := len(rec.actions) - 1
	if rec.actions[last] != "user_group.updated" {
		t.Fatalf("expected update audit record, got %v", rec.actions)
	}
	if rec.old[last] == nil || rec.new[last] == nil {
		t.Fatal("expected before/after snapshots on update audit record")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	name := "x"
	if _, err := svc.Update(context.Background(), "missing", UpdateInput{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, st, rec := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, CreateInput{Name: "Doomed"})
	if err := svc.AddUser(ctx, g.ID, "u1"); err != nil {
		t.Fatalf("add user: %v", err)
	}

	if err := svc.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := st.groups[g.ID]; ok {
		t.Fatal("expected group removed")
	}
	if len(st.members[g.ID]) != 0 {
		t.Fatal("expected memberships removed")
	}

	last := len(rec.actions) - 1
	if rec.actions[last] != "user_group.deleted" {
		t.Fatalf("expected delete audit record, got %v", rec.actions)
	}
	if rec.old[last] == nil || rec.old[last]["name"] != "Doomed" {
		t.Fatal("expected prior state on delete audit record")
	}

	if err := svc.Delete(ctx, g.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMembership(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, CreateInput{Name: "Team"})

	if err := svc.AddUser(ctx, g.ID, "u1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.AddUser(ctx, g.ID, "u1"); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	// Removing a member works; removing a non-member is a silent no-op
	if err := svc.RemoveUser(ctx, g.ID, "u1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.RemoveUser(ctx, g.ID, "u1"); err != nil {
		t.Fatalf("expected idempotent remove, got %v", err)
	}

	if err := svc.AddUser(ctx, "missing", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing group, got %v", err)
	}
}

func TestAddPermission_Dedup(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	g, _ := svc.Create(ctx, CreateInput{Name: "Perms"})

	_, err := svc.AddPermission(ctx, g.ID, authz.Permission{
		Resource: "reports", Actions: []authz.Action{authz.ActionRead},
	})
	if err != nil {
		t.Fatalf("add permission: %v", err)
	}

	updated, err := svc.AddPermission(ctx, g.ID, authz.Permission{
		Resource: "reports", Actions: []authz.Action{authz.ActionRead, authz.ActionDelete},
	})
	if err != nil {
		t.Fatalf("add permission: %v", err)
	}

	if len(updated.Permissions) != 1 {
		t.Fatalf("expected one entry for the resource, got %d", len(updated.Permissions))
	}
	if !updated.Permissions[0].Allows(authz.ActionDelete) {
		t.Fatal("expected the second call's actions to replace the first's")
	}
}

func TestPermissionsForUser_Union(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	g1, _ := svc.Create(ctx, CreateInput{Name: "A", Permissions: []authz.Permission{
		{Resource: "reports", Actions: []authz.Action{authz.ActionRead}},
	}})
	g2, _ := svc.Create(ctx, CreateInput{Name: "B", Permissions: []authz.Permission{
		{Resource: "analytics", Actions: []authz.Action{authz.ActionRead}},
	}})
	svc.AddUser(ctx, g1.ID, "u1")
	svc.AddUser(ctx, g2.ID, "u1")

	perms, err := svc.PermissionsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("permissions for user: %v", err)
	}
	if len(perms) != 2 {
		t.Fatalf("expected union of both groups, got %d", len(perms))
	}
}

func TestUserHasPermission_CustomOnly(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	// No memberships: nothing granted, regardless of role defaults
	ok, err := svc.UserHasPermission(ctx, "u1", "reports", authz.ActionRead, nil, nil)
	if err != nil {
		t.Fatalf("user has permission: %v", err)
	}
	if ok {
		t.Fatal("expected no custom grant")
	}

	g, _ := svc.Create(ctx, CreateInput{Name: "R", Permissions: []authz.Permission{
		{Resource: "reports", Actions: []authz.Action{authz.ActionRead}},
	}})
	svc.AddUser(ctx, g.ID, "u1")

	ok, err = svc.UserHasPermission(ctx, "u1", "reports", authz.ActionRead, nil, nil)
	if err != nil {
		t.Fatalf("user has permission: %v", err)
	}
	if !ok {
		t.Fatal("expected custom grant to apply")
	}
}

func TestMutationsSucceedWithNoopAudit(t *testing.T) {
	svc := NewService(newMemStore(), audit.Noop{})
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateInput{Name: "Quiet"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
