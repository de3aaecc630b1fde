package pricing

import (
	"context"
	"strings"
	"time"
)

// DefaultMonthlyFee applies to any country without a configured price.
const DefaultMonthlyFee = 1.0

type RateRepository interface {
	FindNumberPricing(ctx context.Context, countryISO2 string, at time.Time) (NumberPricing, bool, error)
}

// Service answers "what does a number in this country cost per month".
// Pure lookups; no provider calls.
type Service struct {
	repo  RateRepository
	clock func() time.Time
}

func NewService(repo RateRepository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// MonthlyFee never fails the caller: lookup errors and missing rows fall back to DefaultMonthlyFee.
func (s *Service) MonthlyFee(ctx context.Context, countryISO2 string) float64 {
	if s == nil || s.repo == nil {
		return DefaultMonthlyFee
	}
	cc := strings.ToUpper(strings.TrimSpace(countryISO2))
	if cc == "" {
		return DefaultMonthlyFee
	}
	p, ok, err := s.repo.FindNumberPricing(ctx, cc, s.clock().UTC())
	if err != nil || !ok || p.MonthlyFee <= 0 {
		return DefaultMonthlyFee
	}
	return p.MonthlyFee
}
