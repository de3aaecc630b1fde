package numbers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"assistant-console/internal/apperrors"
	"assistant-console/internal/assistants"
	"assistant-console/internal/audit"
	"assistant-console/internal/telephony"
)

// Inventory manages numbers after purchase: listing, release, and inbound lookup.
type Inventory struct {
	repo     Repository
	provider telephony.NumberProvider
	owners   OwnerLookup
	audit    *audit.Service
	log      *slog.Logger
}

func NewInventory(repo Repository, provider telephony.NumberProvider, owners OwnerLookup, auditSvc *audit.Service, log *slog.Logger) *Inventory {
	if log == nil {
		log = slog.Default()
	}
	return &Inventory{repo: repo, provider: provider, owners: owners, audit: auditSvc, log: log}
}

var (
	_ assistants.NumberReleaser = (*Inventory)(nil)
	_ telephony.NumberLookup    = (*Inventory)(nil)
)

// List returns every number of an assistant the caller owns, oldest first.
func (i *Inventory) List(ctx context.Context, userID, assistantID string) ([]PhoneNumber, error) {
	if err := checkOwner(ctx, i.owners, userID, assistantID); err != nil {
		return nil, err
	}
	out, err := i.repo.ListByAssistant(ctx, assistantID, "")
	if err != nil {
		return nil, apperrors.Persistence("Failed to list phone numbers", err)
	}
	if out == nil {
		out = []PhoneNumber{}
	}
	return out, nil
}

// Release gives the number back to the provider and marks it released.
// Releasing an already released number returns it unchanged.
func (i *Inventory) Release(ctx context.Context, userID, id string) (PhoneNumber, error) {
	n, err := i.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return PhoneNumber{}, apperrors.NotFound("Phone number not found")
	}
	if err != nil {
		return PhoneNumber{}, apperrors.Persistence("Failed to load phone number", err)
	}
	if err := checkOwner(ctx, i.owners, userID, n.AssistantID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return PhoneNumber{}, apperrors.NotFound("Phone number not found")
		}
		return PhoneNumber{}, err
	}
	if n.Status == StatusReleased {
		return n, nil
	}

	ctx = context.WithoutCancel(ctx)
	if n.TwilioSID != "" {
		if err := i.ReleaseAtProvider(ctx, n.TwilioSID); err != nil {
			return PhoneNumber{}, apperrors.Provider(0, "Twilio API error: "+providerMessage(err), err)
		}
	}
	if err := i.repo.MarkReleased(ctx, n.ID); err != nil {
		i.log.Error("number released at provider but not in store", "id", n.ID, "twilio_sid", n.TwilioSID, "err", err)
		return PhoneNumber{}, apperrors.Persistence("Failed to update phone number", err)
	}
	n.Status = StatusReleased

	if i.audit != nil {
		if err := i.audit.LogNumberReleased(ctx, userID, n.AssistantID, n.E164, n.TwilioSID); err != nil {
			i.log.Warn("audit append failed", "err", err)
		}
	}
	i.log.Info("phone number released", "id", n.ID, "e164", n.E164, "twilio_sid", n.TwilioSID)
	return n, nil
}

func (i *Inventory) AttachedNumbers(ctx context.Context, assistantID string) ([]assistants.AttachedNumber, error) {
	list, err := i.repo.ListByAssistant(ctx, assistantID, StatusActive)
	if err != nil {
		return nil, err
	}
	out := make([]assistants.AttachedNumber, 0, len(list))
	for _, n := range list {
		out = append(out, assistants.AttachedNumber{E164: n.E164, SID: n.TwilioSID})
	}
	return out, nil
}

// ReleaseAtProvider treats an unknown SID as already released.
func (i *Inventory) ReleaseAtProvider(ctx context.Context, sid string) error {
	_, err := i.provider.ReleaseNumber(ctx, telephony.ReleaseNumberRequest{ProviderNumberID: sid})
	var apiErr *telephony.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil
	}
	return err
}

func (i *Inventory) AssistantForNumber(ctx context.Context, e164 string) (string, bool, error) {
	return i.repo.ActiveAssistantFor(ctx, e164)
}
