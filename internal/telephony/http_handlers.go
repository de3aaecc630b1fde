package telephony

import (
	"context"
	"net/http"
	"time"

	"assistant-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

// InboundCallRouter decides the answer for an inbound call.
type InboundCallRouter interface {
	Route(ctx context.Context, req InboundCallRequest) (InboundCallResult, error)
}

// TwilioWebhookHandler converts the Twilio voice webhook to internal types,
// delegates the decision to Router, and writes TwiML. No business logic here.
type TwilioWebhookHandler struct {
	Router InboundCallRouter

	// AuthToken and PublicBaseURL enable signature validation when both are set.
	AuthToken     string
	PublicBaseURL string

	Now func() time.Time
}

func (h TwilioWebhookHandler) HandleInboundCall(c *gin.Context) {
	log := logger.FromGin(c)

	now := h.Now
	if now == nil {
		now = time.Now
	}
	if h.Router == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "inbound router not configured"})
		return
	}

	form, err := ParseTwilioInboundCall(c.Request)
	if err != nil {
		log.Warn("twilio webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	if h.AuthToken != "" && h.PublicBaseURL != "" {
		fullURL := h.PublicBaseURL + c.Request.URL.RequestURI()
		if !ValidTwilioSignature(h.AuthToken, fullURL, c.Request.PostForm, c.GetHeader("X-Twilio-Signature")) {
			log.Warn("twilio webhook signature rejected", "call_sid", form.CallSid)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
	}

	res, err := h.Router.Route(c.Request.Context(), form.ToInboundCallRequest(now()))
	if err != nil {
		log.Error("inbound call routing failed", "to", form.To, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "routing failed"})
		return
	}

	twiml, err := RenderTwiML(res)
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}

	log.Info("inbound call answered", "call_sid", form.CallSid, "to", form.To, "action", res.Action, "assistant_id", res.AssistantID)
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}
