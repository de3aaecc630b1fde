package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information. Callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.UserID == "" && e.AssistantID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) LogNumberPurchased(ctx context.Context, userID, assistantID, e164, sid string) error {
	return s.Append(ctx, Event{
		UserID:      userID,
		AssistantID: assistantID,
		Type:        EventTypeNumberPurchased,
		Message:     "phone number purchased",
		Metadata:    map[string]any{"e164": e164, "twilio_sid": sid},
	})
}

func (s *Service) LogNumberReleased(ctx context.Context, userID, assistantID, e164, sid string) error {
	return s.Append(ctx, Event{
		UserID:      userID,
		AssistantID: assistantID,
		Type:        EventTypeNumberReleased,
		Message:     "phone number released",
		Metadata:    map[string]any{"e164": e164, "twilio_sid": sid},
	})
}

// LogCompensationFailed records a purchased number that could not be released after a failed insert.
// Ops must release it by hand.
func (s *Service) LogCompensationFailed(ctx context.Context, userID, assistantID, e164, sid string, cause error) error {
	meta := map[string]any{"e164": e164, "twilio_sid": sid}
	if cause != nil {
		meta["error"] = cause.Error()
	}
	return s.Append(ctx, Event{
		UserID:      userID,
		AssistantID: assistantID,
		Type:        EventTypeCompensationFailed,
		Message:     "orphaned provider number",
		Metadata:    meta,
	})
}

func (s *Service) LogCalcomConfigSaved(ctx context.Context, userID, assistantID string, enabled bool) error {
	return s.Append(ctx, Event{
		UserID:      userID,
		AssistantID: assistantID,
		Type:        EventTypeCalcomConfigSaved,
		Message:     "cal.com configuration saved",
		Metadata:    map[string]any{"enabled": enabled},
	})
}

func (s *Service) LogAssistantDeleted(ctx context.Context, userID, assistantID, name string) error {
	return s.Append(ctx, Event{
		UserID:      userID,
		AssistantID: assistantID,
		Type:        EventTypeAssistantDeleted,
		Message:     "assistant deleted",
		Metadata:    map[string]any{"name": name},
	})
}
