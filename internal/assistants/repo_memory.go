package assistants

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory repository for tests and local runs without Postgres.
type MemoryRepo struct {
	mu         sync.Mutex
	assistants map[string]Assistant

	// ActiveNumbers maps assistant id to its active e164, standing in for the phone_numbers join.
	ActiveNumbers map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{assistants: map[string]Assistant{}, ActiveNumbers: map[string]string{}}
}

func (r *MemoryRepo) Create(ctx context.Context, a Assistant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assistants[a.ID] = a
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Assistant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assistants[id]
	if !ok {
		return Assistant{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) List(ctx context.Context, userID, search string) ([]ListItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	var out []ListItem
	for _, a := range r.assistants {
		if userID != "" && a.UserID != userID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(a.Name), needle) {
			continue
		}
		it := ListItem{
			ID:           a.ID,
			Name:         a.Name,
			VoiceID:      a.VoiceID,
			StartMessage: a.StartMessage,
			CreatedAt:    a.CreatedAt,
			UpdatedAt:    a.UpdatedAt,
		}
		it.PhoneNumber, it.Status = phoneLabel(r.ActiveNumbers[a.ID])
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, in UpdateInput, now time.Time) (Assistant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assistants[id]
	if !ok {
		return Assistant{}, ErrNotFound
	}
	if in.Name != nil {
		a.Name = *in.Name
	}
	if in.VoiceID != nil {
		a.VoiceID = *in.VoiceID
	}
	if in.StartMessage != nil {
		a.StartMessage = *in.StartMessage
	}
	if in.Prompt != nil {
		a.Prompt = *in.Prompt
	}
	a.UpdatedAt = now
	r.assistants[id] = a
	return a, nil
}

func (r *MemoryRepo) UpdateTools(ctx context.Context, id string, tools ToolsConfig, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assistants[id]
	if !ok {
		return ErrNotFound
	}
	a.Tools = tools
	a.UpdatedAt = now
	r.assistants[id] = a
	return nil
}

func (r *MemoryRepo) SetSubaccount(ctx context.Context, id, sid, sealedToken string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assistants[id]
	if !ok {
		return ErrNotFound
	}
	a.TwilioAccountSID = sid
	a.TwilioAuthToken = sealedToken
	a.UpdatedAt = now
	r.assistants[id] = a
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assistants[id]; !ok {
		return ErrNotFound
	}
	delete(r.assistants, id)
	delete(r.ActiveNumbers, id)
	return nil
}
