package assistants

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("assistant not found")

type Repository interface {
	Create(ctx context.Context, a Assistant) error
	Get(ctx context.Context, id string) (Assistant, error)
	// List returns userID's assistants newest first, optionally filtered by a case-insensitive name fragment.
	List(ctx context.Context, userID, search string) ([]ListItem, error)
	Update(ctx context.Context, id string, in UpdateInput, now time.Time) (Assistant, error)
	UpdateTools(ctx context.Context, id string, tools ToolsConfig, now time.Time) error
	SetSubaccount(ctx context.Context, id, sid, sealedToken string, now time.Time) error
	Delete(ctx context.Context, id string) error
}
