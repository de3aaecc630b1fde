package numbers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"assistant-console/internal/apperrors"
	"assistant-console/internal/pricing"
	"assistant-console/internal/telephony"
)

// Searcher lists numbers available to buy, priced for display.
type Searcher struct {
	provider telephony.NumberProvider
	pricing  *pricing.Service
}

func NewSearcher(provider telephony.NumberProvider, prices *pricing.Service) *Searcher {
	return &Searcher{provider: provider, pricing: prices}
}

func (s *Searcher) Search(ctx context.Context, in SearchInput) ([]Offer, error) {
	assistantID := strings.TrimSpace(in.AssistantID)
	country := strings.ToUpper(strings.TrimSpace(in.Country))
	if assistantID == "" || country == "" {
		return nil, apperrors.InvalidRequest("Missing required parameter(s): assistant_id, country_code")
	}

	found, err := s.provider.SearchAvailable(ctx, telephony.SearchRequest{
		CountryISO2: country,
		AreaCode:    strings.TrimSpace(in.AreaCode),
	})
	if err != nil {
		var apiErr *telephony.APIError
		if errors.As(err, &apiErr) {
			return nil, apperrors.Provider(apiErr.Status, apiErr.Message, err)
		}
		return nil, apperrors.Provider(http.StatusInternalServerError, err.Error(), err)
	}

	price := s.pricing.MonthlyFee(ctx, country)
	out := make([]Offer, 0, len(found))
	for _, n := range found {
		cc := n.ISOCountry
		if cc == "" {
			cc = country
		}
		out = append(out, Offer{
			ID:           n.PhoneNumber,
			Number:       n.PhoneNumber,
			FriendlyName: n.FriendlyName,
			Locality:     n.Locality,
			Region:       n.Region,
			Country:      cc,
			Price:        price,
			Capabilities: n.Capabilities,
		})
	}
	return out, nil
}
