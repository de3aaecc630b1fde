package audit

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryRepo keeps events in process, for tests and local runs without Postgres.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(_ context.Context, e Event) error {
	e.Metadata = maps.Clone(e.Metadata)
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a snapshot in append order.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	out := slices.Clone(r.events)
	r.mu.Unlock()
	for i := range out {
		out[i].Metadata = maps.Clone(out[i].Metadata)
	}
	return out
}

func (r *MemoryRepo) OfType(t EventType) []Event {
	return r.filter(func(e Event) bool { return e.Type == t })
}

// ForAssistant is the trail of one assistant: purchases, releases, compensations, deletion.
func (r *MemoryRepo) ForAssistant(assistantID string) []Event {
	return r.filter(func(e Event) bool { return e.AssistantID == assistantID })
}

func (r *MemoryRepo) filter(keep func(Event) bool) []Event {
	var out []Event
	for _, e := range r.Events() {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
