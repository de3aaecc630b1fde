package telephony

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// NumberLookup resolves the assistant that owns an active dialed number.
type NumberLookup interface {
	AssistantForNumber(ctx context.Context, e164 string) (assistantID string, found bool, err error)
}

// InboundRouter decides how to answer an inbound call on a purchased number:
// hand it to the voice agent trunk, tagged with the owning assistant, or reject it.
type InboundRouter struct {
	Lookup NumberLookup

	// SIPURI is the agent trunk, e.g. "sip:agent@example.sip.livekit.cloud".
	SIPURI string
}

const assistantSIPHeader = "X-Assistant-Id"

func (r InboundRouter) Route(ctx context.Context, req InboundCallRequest) (InboundCallResult, error) {
	if r.Lookup == nil {
		return InboundCallResult{}, errors.New("telephony: number lookup not configured")
	}
	if strings.TrimSpace(req.To) == "" {
		return InboundCallResult{Action: InboundCallActionReject}, nil
	}

	assistantID, found, err := r.Lookup.AssistantForNumber(ctx, req.To)
	if err != nil {
		return InboundCallResult{}, err
	}
	if !found {
		return InboundCallResult{Action: InboundCallActionReject}, nil
	}
	if r.SIPURI == "" {
		return InboundCallResult{AssistantID: assistantID, Action: InboundCallActionHangup}, nil
	}

	return InboundCallResult{
		AssistantID: assistantID,
		Action:      InboundCallActionConnect,
		ConnectTo:   withSIPHeader(r.SIPURI, assistantSIPHeader, assistantID),
	}, nil
}

// withSIPHeader appends a custom header in the "?X-Name=value" form Twilio forwards on <Sip>.
func withSIPHeader(uri, name, value string) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + name + "=" + url.QueryEscape(value)
}
