package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type routerFunc func(ctx context.Context, req InboundCallRequest) (InboundCallResult, error)

func (f routerFunc) Route(ctx context.Context, req InboundCallRequest) (InboundCallResult, error) {
	return f(ctx, req)
}

func newWebhookEngine(h TwilioWebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/twilio/voice", h.HandleInboundCall)
	return r
}

func voiceRequest(form url.Values, sig string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sig != "" {
		req.Header.Set("X-Twilio-Signature", sig)
	}
	return req
}

func TestHandleInboundCallConnects(t *testing.T) {
	h := TwilioWebhookHandler{Router: routerFunc(func(_ context.Context, req InboundCallRequest) (InboundCallResult, error) {
		assert.Equal(t, "+15557654321", req.To)
		return InboundCallResult{AssistantID: "a1", Action: InboundCallActionConnect, ConnectTo: "sip:agent@x?X-Assistant-Id=a1"}, nil
	})}

	w := httptest.NewRecorder()
	newWebhookEngine(h).ServeHTTP(w, voiceRequest(url.Values{"CallSid": {"CA1"}, "To": {"+15557654321"}}, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), "<Sip>sip:agent@x?X-Assistant-Id=a1</Sip>")
}

func TestHandleInboundCallRoutingError(t *testing.T) {
	h := TwilioWebhookHandler{Router: routerFunc(func(context.Context, InboundCallRequest) (InboundCallResult, error) {
		return InboundCallResult{}, errors.New("db down")
	})}
	w := httptest.NewRecorder()
	newWebhookEngine(h).ServeHTTP(w, voiceRequest(url.Values{"To": {"+1"}}, ""))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleInboundCallSignature(t *testing.T) {
	reject := routerFunc(func(context.Context, InboundCallRequest) (InboundCallResult, error) {
		return InboundCallResult{Action: InboundCallActionReject}, nil
	})
	h := TwilioWebhookHandler{Router: reject, AuthToken: "tok", PublicBaseURL: "https://console.example.com"}
	form := url.Values{"CallSid": {"CA1"}, "To": {"+15550000000"}}

	w := httptest.NewRecorder()
	newWebhookEngine(h).ServeHTTP(w, voiceRequest(form, "bogus"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	sig := TwilioSignature("tok", "https://console.example.com/webhooks/twilio/voice", form)
	w = httptest.NewRecorder()
	newWebhookEngine(h).ServeHTTP(w, voiceRequest(form, sig))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<Reject")
}
