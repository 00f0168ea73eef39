package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one audit record: who did what to which resource, with
// before/after snapshots for mutations.
type Entry struct {
	ID           string         `json:"id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	OldValues    map[string]any `json:"old_values,omitempty"`
	NewValues    map[string]any `json:"new_values,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Recorder accepts audit entries. Recording is fire-and-forget: a
// failed write is logged by the implementation and never surfaced, so
// the operation being audited always succeeds or fails on its own.
type Recorder interface {
	Record(ctx context.Context, action, resourceType, resourceID string, oldValues, newValues map[string]any)
}

func newEntry(action, resourceType, resourceID string, oldValues, newValues map[string]any) Entry {
	return Entry{
		ID:           uuid.New().String(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OldValues:    oldValues,
		NewValues:    newValues,
		CreatedAt:    time.Now().UTC(),
	}
}

// Noop discards every entry. Used in tests and when auditing is
// disabled by config.
type Noop struct{}

func (Noop) Record(ctx context.Context, action, resourceType, resourceID string, oldValues, newValues map[string]any) {
}
