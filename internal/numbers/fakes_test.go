package numbers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"assistant-console/internal/telephony"
)

type fakeProvider struct {
	mu sync.Mutex

	// buyErrs is consumed one per BuyNumber call; nil entries succeed.
	buyErrs    []error
	buyAlways  error
	releaseErr error
	searchErr  error
	available  []telephony.AvailableNumber

	buys     []string
	releases []string
	searches []telephony.SearchRequest
	sidSeq   int
}

func (p *fakeProvider) Name() string                      { return "fake" }
func (p *fakeProvider) HealthCheck(context.Context) error { return nil }

func (p *fakeProvider) SearchAvailable(_ context.Context, req telephony.SearchRequest) ([]telephony.AvailableNumber, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searches = append(p.searches, req)
	return p.available, p.searchErr
}

func (p *fakeProvider) BuyNumber(_ context.Context, req telephony.BuyNumberRequest) (telephony.BuyNumberResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buys = append(p.buys, req.PhoneNumber)
	if p.buyAlways != nil {
		return telephony.BuyNumberResult{}, p.buyAlways
	}
	if len(p.buyErrs) > 0 {
		err := p.buyErrs[0]
		p.buyErrs = p.buyErrs[1:]
		if err != nil {
			return telephony.BuyNumberResult{}, err
		}
	}
	p.sidSeq++
	return telephony.BuyNumberResult{Number: req.PhoneNumber, ProviderNumberID: fmt.Sprintf("PN%d", p.sidSeq)}, nil
}

func (p *fakeProvider) ReleaseNumber(_ context.Context, req telephony.ReleaseNumberRequest) (telephony.ReleaseNumberResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releases = append(p.releases, req.ProviderNumberID)
	if p.releaseErr != nil {
		return telephony.ReleaseNumberResult{}, p.releaseErr
	}
	return telephony.ReleaseNumberResult{Released: true}, nil
}

func (p *fakeProvider) buyCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buys)
}

// fakeTimer fires immediately and records the requested waits.
type fakeTimer struct {
	mu    sync.Mutex
	waits []time.Duration
	c     chan time.Time
}

func newFakeTimer() *fakeTimer { return &fakeTimer{c: make(chan time.Time, 1)} }

func (t *fakeTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.waits = append(t.waits, d)
	t.mu.Unlock()
	t.c <- time.Time{}
}

func (t *fakeTimer) Stop()                 {}
func (t *fakeTimer) C() <-chan time.Time { return t.c }

type ownerFunc func(ctx context.Context, assistantID string) (string, error)

func (f ownerFunc) OwnerOf(ctx context.Context, assistantID string) (string, error) {
	return f(ctx, assistantID)
}

var errTwilioDown = &telephony.APIError{Status: 503, Message: "Service Unavailable"}

var errDBDown = errors.New("connection reset")
