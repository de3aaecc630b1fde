package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Either user_id or assistant_id scopes the event.
// - Audit writes are best-effort; do not block critical flows on audit failures.
type Event struct {
	ID          string `json:"id" db:"id"`
	UserID      string `json:"user_id,omitempty" db:"user_id"`
	AssistantID string `json:"assistant_id,omitempty" db:"assistant_id"`

	Type EventType `json:"type" db:"type"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata holds event-specific details, stored as JSONB.
	Metadata map[string]any `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeNumberPurchased    EventType = "number_purchased"
	EventTypeNumberReleased     EventType = "number_released"
	EventTypeCompensationFailed EventType = "compensation_failed"
	EventTypeCalcomConfigSaved  EventType = "calcom_config_saved"
	EventTypeAssistantDeleted   EventType = "assistant_deleted"
)
