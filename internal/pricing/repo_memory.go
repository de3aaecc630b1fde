package pricing

import (
	"context"
	"strings"
	"time"
)

// MemoryRepo serves pricing rows configured at startup.
type MemoryRepo struct {
	Numbers []NumberPricing
}

// NewMemoryRepo seeds one always-effective active row per country.
func NewMemoryRepo(monthly map[string]float64) *MemoryRepo {
	r := &MemoryRepo{}
	for cc, fee := range monthly {
		r.Numbers = append(r.Numbers, NumberPricing{
			CountryISO2: strings.ToUpper(cc),
			MonthlyFee:  fee,
			Status:      PricingStatusActive,
		})
	}
	return r
}

func (r *MemoryRepo) FindNumberPricing(ctx context.Context, countryISO2 string, at time.Time) (NumberPricing, bool, error) {
	_ = ctx

	// Prefer the most recent effective pricing row.
	var best NumberPricing
	found := false

	for _, p := range r.Numbers {
		if p.CountryISO2 != countryISO2 {
			continue
		}
		if p.Status != PricingStatusActive {
			continue
		}
		if at.Before(p.EffectiveFrom) {
			continue
		}
		if p.EffectiveTo != nil && !at.Before(*p.EffectiveTo) {
			continue
		}

		if !found || p.EffectiveFrom.After(best.EffectiveFrom) {
			best = p
			found = true
		}
	}

	return best, found, nil
}
