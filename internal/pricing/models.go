package pricing

import "time"

// NumberPricing is the monthly rental price of a phone number in one country.
// Prices are displayed in search results and stored on the purchased record.
type NumberPricing struct {
	// CountryISO2 is the country of the phone number (e.g., "US", "FR").
	CountryISO2 string `json:"country_iso2"`

	// MonthlyFee is in the account currency, e.g. 1.15.
	MonthlyFee float64 `json:"monthly_fee"`

	// Effective window for pricing.
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`

	Status PricingStatus `json:"status"`
}

type PricingStatus string

const (
	PricingStatusActive   PricingStatus = "active"
	PricingStatusInactive PricingStatus = "inactive"
)
