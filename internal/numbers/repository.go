package numbers

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("phone number not found")
	// ErrDuplicate is an insert that lost the (e164, assistant_id) uniqueness race.
	ErrDuplicate = errors.New("phone number already recorded")
	// ErrOrphan is an insert for an assistant deleted while the purchase was in flight.
	ErrOrphan = errors.New("owning assistant no longer exists")
)

type Repository interface {
	// FindByNumber returns the record for (e164, assistantID) in any status.
	FindByNumber(ctx context.Context, e164, assistantID string) (PhoneNumber, bool, error)
	Insert(ctx context.Context, n PhoneNumber) error
	// Reactivate turns a released record active again with a new provider SID.
	// ErrNotFound means it was not in released state.
	Reactivate(ctx context.Context, id, sid string, monthlyCost float64, now time.Time) (PhoneNumber, error)
	Get(ctx context.Context, id string) (PhoneNumber, error)
	ListByAssistant(ctx context.Context, assistantID string, status Status) ([]PhoneNumber, error)
	MarkReleased(ctx context.Context, id string) error
	// ActiveAssistantFor resolves the assistant answering calls to e164.
	ActiveAssistantFor(ctx context.Context, e164 string) (string, bool, error)
}
