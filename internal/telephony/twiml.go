package telephony

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// twimlAnswer is the whole <Response> for an inbound call. Exactly one verb is set.
type twimlAnswer struct {
	XMLName xml.Name     `xml:"Response"`
	Dial    *twimlDial   `xml:"Dial,omitempty"`
	Reject  *twimlReject `xml:"Reject,omitempty"`
	Hangup  *struct{}    `xml:"Hangup,omitempty"`
}

// twimlDial bridges the caller into the voice agent trunk. answerOnBridge keeps the
// caller hearing ringback until the agent picks up.
type twimlDial struct {
	AnswerOnBridge bool   `xml:"answerOnBridge,attr"`
	Sip            string `xml:"Sip"`
}

type twimlReject struct {
	Reason string `xml:"reason,attr"`
}

var errNotSIP = errors.New("telephony: inbound calls only connect to a sip: target")

// RenderTwiML maps an InboundCallResult to the TwiML document Twilio expects.
func RenderTwiML(res InboundCallResult) (string, error) {
	var doc twimlAnswer
	switch res.Action {
	case InboundCallActionConnect:
		target := strings.TrimSpace(res.ConnectTo)
		if target == "" {
			return "", errors.New("telephony: connect_to required for connect action")
		}
		if !strings.HasPrefix(strings.ToLower(target), "sip:") {
			return "", errNotSIP
		}
		doc.Dial = &twimlDial{AnswerOnBridge: true, Sip: target}
	case InboundCallActionReject:
		doc.Reject = &twimlReject{Reason: "rejected"}
	case InboundCallActionHangup:
		doc.Hangup = &struct{}{}
	default:
		return "", fmt.Errorf("telephony: unknown inbound action %q", res.Action)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(out), nil
}
