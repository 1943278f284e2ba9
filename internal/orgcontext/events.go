package orgcontext

import (
	"time"

	"github.com/google/uuid"
)

// EventSelectionChanged is the WebSocket event name for selection changes.
const EventSelectionChanged = "org_context.changed"

// Reasons a selection changed.
const (
	ReasonLoad    = "load"
	ReasonSelect  = "select"
	ReasonRefetch = "refetch"
)

// SelectionEvent records one change of a user's current organization.
// From or To is nil when there was or is no organization.
type SelectionEvent struct {
	UserID uuid.UUID  `json:"user_id"`
	From   *uuid.UUID `json:"from"`
	To     *uuid.UUID `json:"to"`
	Reason string     `json:"reason"`
	At     time.Time  `json:"at"`
}
