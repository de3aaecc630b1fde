package telephony

import (
	"context"
	"time"
)

// NumberProvider is the provider-agnostic number inventory contract used by business logic.
//
// Rules:
// - No provider HTTP calls outside telephony adapters.
// - Request/response types stay provider-agnostic.
type NumberProvider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	SearchAvailable(ctx context.Context, req SearchRequest) ([]AvailableNumber, error)
	BuyNumber(ctx context.Context, req BuyNumberRequest) (BuyNumberResult, error)
	ReleaseNumber(ctx context.Context, req ReleaseNumberRequest) (ReleaseNumberResult, error)
}

// AccountProvisioner creates isolated provider accounts, one per assistant.
type AccountProvisioner interface {
	CreateSubaccount(ctx context.Context, friendlyName string) (Subaccount, error)
}

type SearchRequest struct {
	// CountryISO2 is upper-case, e.g. "US", "FR".
	CountryISO2 string `json:"country_iso2"`
	AreaCode    string `json:"area_code,omitempty"`
}

type AvailableNumber struct {
	PhoneNumber  string          `json:"phone_number"`
	FriendlyName string          `json:"friendly_name,omitempty"`
	Locality     string          `json:"locality,omitempty"`
	Region       string          `json:"region,omitempty"`
	ISOCountry   string          `json:"iso_country,omitempty"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`
}

type BuyNumberRequest struct {
	// PhoneNumber is the exact E.164 number to acquire.
	PhoneNumber string `json:"phone_number"`

	// FriendlyName is optional, shown in the provider console.
	FriendlyName string `json:"friendly_name,omitempty"`
}

type BuyNumberResult struct {
	Number           string `json:"number"`
	ProviderNumberID string `json:"provider_number_id"`
}

type ReleaseNumberRequest struct {
	ProviderNumberID string `json:"provider_number_id"`
}

type ReleaseNumberResult struct {
	Released bool `json:"released"`
}

type Subaccount struct {
	SID          string `json:"sid"`
	AuthToken    string `json:"auth_token"`
	FriendlyName string `json:"friendly_name"`
}

// InboundCallRequest is an inbound call event received from a provider.
type InboundCallRequest struct {
	ProviderCallID string    `json:"provider_call_id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// InboundCallResult drives the TwiML answer.
type InboundCallResult struct {
	AssistantID string            `json:"assistant_id,omitempty"`
	Action      InboundCallAction `json:"action"`

	// ConnectTo is used when Action == "connect".
	ConnectTo string `json:"connect_to,omitempty"`
}

type InboundCallAction string

const (
	InboundCallActionReject  InboundCallAction = "reject"
	InboundCallActionConnect InboundCallAction = "connect"
	InboundCallActionHangup  InboundCallAction = "hangup"
)
