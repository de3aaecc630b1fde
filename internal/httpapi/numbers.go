package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"assistant-console/internal/apperrors"
	"assistant-console/internal/numbers"
	"assistant-console/pkg/logger"
)

const idempotencyHeader = "Idempotency-Key"

// PurchaseNumber answers every failure with 500 and {error, timestamp, code};
// the dashboard keys its retry toast on that shape.
func (h Handlers) PurchaseNumber(c *gin.Context) {
	if h.Purchases == nil {
		notConfigured(c, "purchases")
		return
	}
	uid, ok := scope(c)
	if !ok {
		return
	}

	var req numbers.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.purchaseFailed(c, apperrors.InvalidRequest("Invalid JSON body"))
		return
	}
	if key := strings.TrimSpace(c.GetHeader(idempotencyHeader)); key != "" {
		req.IdempotencyKey = key
	}

	res, err := h.Purchases.Purchase(c.Request.Context(), uid, req)
	if err != nil {
		h.purchaseFailed(c, err)
		return
	}

	body := gin.H{
		"success":        true,
		"phoneNumber":    res.Record,
		"twilioSid":      res.TwilioSID,
		"idempotencyKey": res.IdempotencyKey,
	}
	if res.Idempotent {
		body["idempotent"] = true
	}
	c.JSON(http.StatusOK, body)
}

func (h Handlers) purchaseFailed(c *gin.Context, err error) {
	logger.FromGin(c).Warn("phone number purchase failed", "kind", apperrors.KindName(err), "err", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":     apperrors.Message(err),
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
		"code":      apperrors.KindName(err),
	})
}

// searchRequest accepts both the snake_case and camelCase field names the dashboard has used.
type searchRequest struct {
	AssistantID      string `json:"assistant_id"`
	AssistantIDCamel string `json:"assistantId"`
	CountryCode      string `json:"country_code"`
	Country          string `json:"country"`
	AreaCode         string `json:"area_code"`
	AreaCodeCamel    string `json:"areaCode"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (h Handlers) SearchNumbers(c *gin.Context) {
	if h.Search == nil {
		notConfigured(c, "search")
		return
	}
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	offers, err := h.Search.Search(c.Request.Context(), numbers.SearchInput{
		AssistantID: firstNonEmpty(req.AssistantID, req.AssistantIDCamel),
		Country:     firstNonEmpty(req.CountryCode, req.Country),
		AreaCode:    firstNonEmpty(req.AreaCode, req.AreaCodeCamel),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": offers})
}

func (h Handlers) ReleaseNumber(c *gin.Context) {
	if h.Inventory == nil {
		notConfigured(c, "inventory")
		return
	}
	uid, ok := scope(c)
	if !ok {
		return
	}
	n, err := h.Inventory.Release(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "phoneNumber": n})
}

func (h Handlers) ListAssistantNumbers(c *gin.Context) {
	if h.Inventory == nil {
		notConfigured(c, "inventory")
		return
	}
	uid, ok := scope(c)
	if !ok {
		return
	}
	list, err := h.Inventory.List(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phoneNumbers": list})
}
