package telephony

import (
	"strings"
	"testing"
)

func TestRenderTwiMLReject(t *testing.T) {
	xml, err := RenderTwiML(InboundCallResult{Action: InboundCallActionReject})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if want := `<Reject reason="rejected">`; !strings.Contains(xml, want) {
		t.Fatalf("expected %q in xml: %s", want, xml)
	}
}

func TestRenderTwiMLConnectRequiresTarget(t *testing.T) {
	_, err := RenderTwiML(InboundCallResult{AssistantID: "a", Action: InboundCallActionConnect})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestRenderTwiMLConnectSip(t *testing.T) {
	xml, err := RenderTwiML(InboundCallResult{
		AssistantID: "a1",
		Action:      InboundCallActionConnect,
		ConnectTo:   "sip:agent@trunk.example.com?X-Assistant-Id=a1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, "<Dial answerOnBridge=\"true\">") {
		t.Fatalf("expected dial in xml: %s", xml)
	}
	if !strings.Contains(xml, "<Sip>sip:agent@trunk.example.com?X-Assistant-Id=a1</Sip>") {
		t.Fatalf("expected sip target in xml: %s", xml)
	}
	if strings.Contains(xml, "<Number>") {
		t.Fatalf("did not expect number: %s", xml)
	}
}

func TestRenderTwiMLConnectRejectsPSTN(t *testing.T) {
	if _, err := RenderTwiML(InboundCallResult{Action: InboundCallActionConnect, ConnectTo: "+15551234567"}); err == nil {
		t.Fatalf("expected error for a non-sip target")
	}
}

func TestRenderTwiMLHangup(t *testing.T) {
	xml, err := RenderTwiML(InboundCallResult{AssistantID: "a1", Action: InboundCallActionHangup})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, "<Hangup></Hangup>") || strings.Contains(xml, "<Dial") {
		t.Fatalf("expected only hangup: %s", xml)
	}
}

func TestRenderTwiMLUnknownAction(t *testing.T) {
	if _, err := RenderTwiML(InboundCallResult{Action: "transfer"}); err == nil {
		t.Fatalf("expected error")
	}
}
