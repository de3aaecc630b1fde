package pricing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMonthlyFeeDefaults(t *testing.T) {
	svc := NewService(NewMemoryRepo(nil))
	if got := svc.MonthlyFee(context.Background(), "US"); got != DefaultMonthlyFee {
		t.Fatalf("expected default, got %v", got)
	}
	if got := svc.MonthlyFee(context.Background(), ""); got != DefaultMonthlyFee {
		t.Fatalf("expected default for empty country, got %v", got)
	}

	var nilSvc *Service
	if got := nilSvc.MonthlyFee(context.Background(), "FR"); got != DefaultMonthlyFee {
		t.Fatalf("expected default for nil service, got %v", got)
	}
}

func TestMonthlyFeeConfiguredCountry(t *testing.T) {
	svc := NewService(NewMemoryRepo(map[string]float64{"fr": 1.5}))
	if got := svc.MonthlyFee(context.Background(), " fr "); got != 1.5 {
		t.Fatalf("expected 1.5, got %v", got)
	}
}

func TestMonthlyFeeEffectiveWindow(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	ended := now.Add(-24 * time.Hour)
	repo := &MemoryRepo{Numbers: []NumberPricing{
		{CountryISO2: "GB", MonthlyFee: 0.9, EffectiveFrom: now.AddDate(-1, 0, 0), EffectiveTo: &ended, Status: PricingStatusActive},
		{CountryISO2: "GB", MonthlyFee: 1.2, EffectiveFrom: now.AddDate(0, -1, 0), Status: PricingStatusActive},
		{CountryISO2: "GB", MonthlyFee: 2.0, EffectiveFrom: now.AddDate(0, 1, 0), Status: PricingStatusActive},
		{CountryISO2: "GB", MonthlyFee: 5.0, EffectiveFrom: now.AddDate(0, 0, -1), Status: PricingStatusInactive},
	}}
	svc := NewService(repo)
	svc.clock = func() time.Time { return now }

	if got := svc.MonthlyFee(context.Background(), "GB"); got != 1.2 {
		t.Fatalf("expected 1.2, got %v", got)
	}
}

type failingRepo struct{}

func (failingRepo) FindNumberPricing(context.Context, string, time.Time) (NumberPricing, bool, error) {
	return NumberPricing{}, false, errors.New("boom")
}

func TestMonthlyFeeRepoErrorFallsBack(t *testing.T) {
	if got := NewService(failingRepo{}).MonthlyFee(context.Background(), "US"); got != DefaultMonthlyFee {
		t.Fatalf("expected default, got %v", got)
	}
}
