package numbers

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-process Repository for tests and local runs.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]PhoneNumber

	// BeforeInsert runs ahead of every Insert without the lock held.
	BeforeInsert func(n PhoneNumber)
	// InsertErr and FindErr force failures.
	InsertErr error
	FindErr   error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: map[string]PhoneNumber{}}
}

func (r *MemoryRepo) FindByNumber(_ context.Context, e164, assistantID string) (PhoneNumber, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FindErr != nil {
		return PhoneNumber{}, false, r.FindErr
	}
	n, ok := r.findLocked(e164, assistantID)
	return n, ok, nil
}

func (r *MemoryRepo) findLocked(e164, assistantID string) (PhoneNumber, bool) {
	for _, n := range r.byID {
		if n.E164 == e164 && n.AssistantID == assistantID {
			return n, true
		}
	}
	return PhoneNumber{}, false
}

func (r *MemoryRepo) Insert(_ context.Context, n PhoneNumber) error {
	if r.BeforeInsert != nil {
		r.BeforeInsert(n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InsertErr != nil {
		return r.InsertErr
	}
	if _, ok := r.findLocked(n.E164, n.AssistantID); ok {
		return ErrDuplicate
	}
	r.byID[n.ID] = n
	return nil
}

func (r *MemoryRepo) Reactivate(_ context.Context, id, sid string, monthlyCost float64, now time.Time) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok || n.Status != StatusReleased {
		return PhoneNumber{}, ErrNotFound
	}
	n.TwilioSID = sid
	n.MonthlyCost = monthlyCost
	n.Status = StatusActive
	n.PurchasedAt = now
	r.byID[id] = n
	return n, nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return PhoneNumber{}, ErrNotFound
	}
	return n, nil
}

func (r *MemoryRepo) ListByAssistant(_ context.Context, assistantID string, status Status) ([]PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PhoneNumber
	for _, n := range r.byID {
		if n.AssistantID != assistantID || (status != "" && n.Status != status) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.Before(out[j].PurchasedAt) })
	return out, nil
}

func (r *MemoryRepo) MarkReleased(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	n.Status = StatusReleased
	r.byID[id] = n
	return nil
}

func (r *MemoryRepo) ActiveAssistantFor(_ context.Context, e164 string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best PhoneNumber
	found := false
	for _, n := range r.byID {
		if n.E164 != e164 || n.Status != StatusActive {
			continue
		}
		if !found || n.PurchasedAt.Before(best.PurchasedAt) {
			best, found = n, true
		}
	}
	return best.AssistantID, found, nil
}

// All returns every stored record.
func (r *MemoryRepo) All() []PhoneNumber {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PhoneNumber, 0, len(r.byID))
	for _, n := range r.byID {
		out = append(out, n)
	}
	return out
}
