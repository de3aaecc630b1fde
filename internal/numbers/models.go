package numbers

import (
	"strings"
	"time"
	"unicode"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusReleased Status = "released"
)

const (
	DefaultCountry  = "US"
	DefaultProvider = "twilio"
)

// PhoneNumber is a purchased number attached to one assistant.
// At most one record exists per (e164, assistant_id).
type PhoneNumber struct {
	ID          string    `json:"id"`
	AssistantID string    `json:"assistant_id"`
	E164        string    `json:"e164"`
	Country     string    `json:"country"`
	TwilioSID   string    `json:"twilio_sid"`
	Provider    string    `json:"provider"`
	MonthlyCost float64   `json:"monthly_cost"`
	Status      Status    `json:"status"`
	PurchasedAt time.Time `json:"purchased_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type PurchaseRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	AssistantID string `json:"assistantId"`
	Country     string `json:"country,omitempty"`

	// IdempotencyKey is the caller's token. Empty derives one from the assistant and number.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

type PurchaseResult struct {
	Record         PhoneNumber
	TwilioSID      string
	IdempotencyKey string
	// Idempotent is true when an existing record answered the request.
	Idempotent bool
}

// IdempotencyKey returns key when set, else purchase-{assistantId}-{digits of phone}.
func IdempotencyKey(key, assistantID, phone string) string {
	if k := strings.TrimSpace(key); k != "" {
		return k
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	return "purchase-" + assistantID + "-" + digits
}

type SearchInput struct {
	AssistantID string
	Country     string
	AreaCode    string
}

// Offer is an available number as shown in the purchase dialog.
type Offer struct {
	ID           string          `json:"id"`
	Number       string          `json:"number"`
	FriendlyName string          `json:"friendlyName,omitempty"`
	Locality     string          `json:"locality,omitempty"`
	Region       string          `json:"region,omitempty"`
	Country      string          `json:"country"`
	Price        float64         `json:"price"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`
}
