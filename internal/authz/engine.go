package authz

import (
	"context"
	"fmt"
	"log"
)

// PermissionSource supplies the custom permissions a user has been
// granted through group membership. Implemented by the groups service.
type PermissionSource interface {
	PermissionsForUser(ctx context.Context, userID string) ([]Permission, error)
}

// Identity is what the user directory knows about a user for
// authorization purposes.
type Identity struct {
	UserType   UserType
	OperatorID string
}

// UserDirectory resolves a user id to its identity fields.
type UserDirectory interface {
	LookupUser(ctx context.Context, userID string) (Identity, error)
}

// Engine decides whether a user may perform an action on a resource,
// combining the static role catalog with dynamically granted group
// permissions.
type Engine struct {
	catalog *Catalog
	source  PermissionSource
	users   UserDirectory
}

func NewEngine(catalog *Catalog, source PermissionSource, users UserDirectory) *Engine {
	return &Engine{catalog: catalog, source: source, users: users}
}

// Check names one resource/action pair for a batch permission check.
type Check struct {
	Resource     string         `json:"resource"`
	Action       Action         `json:"action"`
	ResourceData map[string]any `json:"resource_data,omitempty"`
}

// HasPermission decides whether the context's user may perform action
// on resource. It never returns an error: any failure while deciding is
// logged and resolved to deny, and a denied check looks the same
// whether no permission matched or something broke internally.
//
// resourceData is the row the check concerns. A permission that carries
// conditions can only grant access when resourceData is supplied;
// without it the permission is skipped and the scan continues.
func (e *Engine) HasPermission(ctx context.Context, actx *Context, resource string, action Action, resourceData map[string]any) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("WARN: permission check %s:%s for user %s failed: %v (denying)",
				resource, action, contextUserID(actx), r)
			allowed = false
		}
	}()

	if actx == nil {
		return false
	}
	if actx.UserType == UserTypeAdmin {
		return true
	}

	custom, err := e.source.PermissionsForUser(ctx, actx.UserID)
	if err != nil {
		log.Printf("WARN: load group permissions for user %s: %v (denying)", actx.UserID, err)
		return false
	}

	defaults := e.catalog.ForUserType(actx.UserType)
	permissions := make([]Permission, 0, len(defaults)+len(custom))
	permissions = append(permissions, defaults...)
	permissions = append(permissions, custom...)

	for _, p := range permissions {
		if !MatchResource(p.Resource, resource) || !p.Allows(action) {
			continue
		}
		if len(p.Conditions) == 0 {
			return true
		}
		if resourceData == nil {
			continue
		}
		if EvaluateConditions(p.Conditions, actx, resourceData) {
			return true
		}
	}
	return false
}

// UserPermissions returns the user's full permission list: role
// defaults followed by custom group grants. No filtering is applied.
func (e *Engine) UserPermissions(ctx context.Context, userID string) ([]Permission, error) {
	identity, err := e.users.LookupUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", userID, err)
	}
	custom, err := e.source.PermissionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load group permissions for %s: %w", userID, err)
	}
	defaults := e.catalog.ForUserType(identity.UserType)
	out := make([]Permission, 0, len(defaults)+len(custom))
	out = append(out, defaults...)
	out = append(out, custom...)
	return out, nil
}

// CheckMultiple evaluates a batch of permission checks and returns the
// results keyed "resource:action".
func (e *Engine) CheckMultiple(ctx context.Context, actx *Context, checks []Check) map[string]bool {
	results := make(map[string]bool, len(checks))
	for _, c := range checks {
		key := fmt.Sprintf("%s:%s", c.Resource, c.Action)
		results[key] = e.HasPermission(ctx, actx, c.Resource, c.Action, c.ResourceData)
	}
	return results
}

// FilteredResources keeps only the items the context's user may perform
// action on, row-level filtering in application code.
func (e *Engine) FilteredResources(ctx context.Context, actx *Context, resource string, action Action, items []map[string]any) []map[string]any {
	filtered := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if e.HasPermission(ctx, actx, resource, action, item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// ContextForUser builds an authorization context by looking the user up
// in the directory. POS users are expected to carry an operator id;
// one without it will silently fail every operator-scoped condition,
// so the gap is logged here at construction time.
func (e *Engine) ContextForUser(ctx context.Context, userID string) (*Context, error) {
	identity, err := e.users.LookupUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", userID, err)
	}
	if identity.UserType == UserTypePOS && identity.OperatorID == "" {
		log.Printf("WARN: pos user %s has no operator_id; operator-scoped permissions will not match", userID)
	}
	return &Context{
		UserID:     userID,
		UserType:   identity.UserType,
		OperatorID: identity.OperatorID,
	}, nil
}

func contextUserID(actx *Context) string {
	if actx == nil {
		return "<nil>"
	}
	return actx.UserID
}
