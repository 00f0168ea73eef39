package groups

import (
	"errors"
	"time"

	"parkgrid-backend/internal/authz"
)

var (
	ErrNotFound      = errors.New("group not found")
	ErrAlreadyMember = errors.New("user is already a member of this group")
)

// UserGroup is a named bundle of permissions administrators grant to
// users. OperatorID scopes the group to one operator's tenant; empty
// means platform-wide. Permissions hold at most one entry per distinct
// resource string.
type UserGroup struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Permissions []authz.Permission `json:"permissions"`
	OperatorID  string             `json:"operator_id,omitempty"`
	MemberCount int                `json:"member_count"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// snapshot renders the group as a map for audit before/after records.
func (g *UserGroup) snapshot() map[string]any {
	perms := make([]any, len(g.Permissions))
	for i, p := range g.Permissions {
		perms[i] = map[string]any{
			"resource":   p.Resource,
			"actions":    p.Actions,
			"conditions": p.Conditions,
		}
	}
	return map[string]any{
		"id":          g.ID,
		"name":        g.Name,
		"description": g.Description,
		"permissions": perms,
		"operator_id": g.OperatorID,
	}
}
