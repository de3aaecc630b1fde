package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"assistant-console/internal/metrics"
)

const (
	twilioAPIVersion   = "2010-04-01"
	maxTwilioBodyBytes = 1 << 20
)

// APIError is a non-2xx answer from Twilio.
type APIError struct {
	Status   int    `json:"status"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("twilio: %d (code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("twilio: %d: %s", e.Status, e.Message)
}

// DefaultHTTPTimeout bounds one Twilio REST call when no client is supplied.
const DefaultHTTPTimeout = 15 * time.Second

// TwilioOptions configures TwilioProvider.
type TwilioOptions struct {
	BaseURL    string
	AccountSID string
	AuthToken  string

	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// TwilioProvider talks to the Twilio REST API with the master account credentials.
// Sub-accounts cannot search the available inventory, so every call uses the master.
type TwilioProvider struct {
	baseURL    string
	accountSID string
	authToken  string
	http       *http.Client
	metrics    *metrics.Metrics
}

func NewTwilioProvider(opts TwilioOptions) (*TwilioProvider, error) {
	if opts.AccountSID == "" || opts.AuthToken == "" {
		return nil, errors.New("telephony: twilio credentials not configured")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.twilio.com"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &TwilioProvider{
		baseURL:    base,
		accountSID: opts.AccountSID,
		authToken:  opts.AuthToken,
		http:       hc,
		metrics:    opts.Metrics,
	}, nil
}

func (p *TwilioProvider) Name() string { return "twilio" }

// HealthCheck fetches the master account resource.
func (p *TwilioProvider) HealthCheck(ctx context.Context) error {
	return p.do(ctx, "health_check", http.MethodGet, p.accountPath(".json"), nil, nil)
}

type twilioAvailableList struct {
	AvailablePhoneNumbers []struct {
		PhoneNumber  string          `json:"phone_number"`
		FriendlyName string          `json:"friendly_name"`
		Locality     string          `json:"locality"`
		Region       string          `json:"region"`
		ISOCountry   string          `json:"iso_country"`
		Capabilities map[string]bool `json:"capabilities"`
	} `json:"available_phone_numbers"`
}

func (p *TwilioProvider) SearchAvailable(ctx context.Context, req SearchRequest) ([]AvailableNumber, error) {
	cc := strings.ToUpper(strings.TrimSpace(req.CountryISO2))
	if cc == "" {
		return nil, errors.New("telephony: country is required")
	}
	path := p.accountPath("/AvailablePhoneNumbers/" + url.PathEscape(cc) + "/Local.json")
	if req.AreaCode != "" {
		q := url.Values{}
		q.Set("AreaCode", req.AreaCode)
		path += "?" + q.Encode()
	}

	var out twilioAvailableList
	if err := p.do(ctx, "search_numbers", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	numbers := make([]AvailableNumber, 0, len(out.AvailablePhoneNumbers))
	for _, n := range out.AvailablePhoneNumbers {
		numbers = append(numbers, AvailableNumber{
			PhoneNumber:  n.PhoneNumber,
			FriendlyName: n.FriendlyName,
			Locality:     n.Locality,
			Region:       n.Region,
			ISOCountry:   n.ISOCountry,
			Capabilities: n.Capabilities,
		})
	}
	return numbers, nil
}

type twilioIncomingNumber struct {
	SID         string `json:"sid"`
	PhoneNumber string `json:"phone_number"`
}

func (p *TwilioProvider) BuyNumber(ctx context.Context, req BuyNumberRequest) (BuyNumberResult, error) {
	if req.PhoneNumber == "" {
		return BuyNumberResult{}, errors.New("telephony: phone number is required")
	}
	form := url.Values{}
	form.Set("PhoneNumber", req.PhoneNumber)
	if req.FriendlyName != "" {
		form.Set("FriendlyName", req.FriendlyName)
	}

	var out twilioIncomingNumber
	if err := p.do(ctx, "buy_number", http.MethodPost, p.accountPath("/IncomingPhoneNumbers.json"), form, &out); err != nil {
		return BuyNumberResult{}, err
	}
	if out.SID == "" {
		return BuyNumberResult{}, errors.New("telephony: twilio returned no number sid")
	}
	number := out.PhoneNumber
	if number == "" {
		number = req.PhoneNumber
	}
	return BuyNumberResult{Number: number, ProviderNumberID: out.SID}, nil
}

func (p *TwilioProvider) ReleaseNumber(ctx context.Context, req ReleaseNumberRequest) (ReleaseNumberResult, error) {
	if req.ProviderNumberID == "" {
		return ReleaseNumberResult{}, errors.New("telephony: provider number id is required")
	}
	path := p.accountPath("/IncomingPhoneNumbers/" + url.PathEscape(req.ProviderNumberID) + ".json")
	if err := p.do(ctx, "release_number", http.MethodDelete, path, nil, nil); err != nil {
		return ReleaseNumberResult{}, err
	}
	return ReleaseNumberResult{Released: true}, nil
}

type twilioAccount struct {
	SID          string `json:"sid"`
	AuthToken    string `json:"auth_token"`
	FriendlyName string `json:"friendly_name"`
}

func (p *TwilioProvider) CreateSubaccount(ctx context.Context, friendlyName string) (Subaccount, error) {
	if strings.TrimSpace(friendlyName) == "" {
		return Subaccount{}, errors.New("telephony: friendly name is required")
	}
	form := url.Values{}
	form.Set("FriendlyName", friendlyName)

	var out twilioAccount
	if err := p.do(ctx, "create_subaccount", http.MethodPost, "/"+twilioAPIVersion+"/Accounts.json", form, &out); err != nil {
		return Subaccount{}, err
	}
	return Subaccount{SID: out.SID, AuthToken: out.AuthToken, FriendlyName: out.FriendlyName}, nil
}

func (p *TwilioProvider) accountPath(suffix string) string {
	return "/" + twilioAPIVersion + "/Accounts/" + url.PathEscape(p.accountSID) + suffix
}

func (p *TwilioProvider) do(ctx context.Context, op, method, path string, form url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.ObserveCall("twilio", op, time.Since(start).Seconds(), err)
		}
	}()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("telephony: build request: %w", err)
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTwilioBodyBytes))
	if err != nil {
		return fmt.Errorf("telephony: read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		apiErr.Status = resp.StatusCode
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("telephony: decode %s response: %w", op, err)
	}
	return nil
}
