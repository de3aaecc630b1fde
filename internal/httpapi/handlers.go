package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"assistant-console/internal/apperrors"
	"assistant-console/internal/assistants"
	"assistant-console/internal/auth"
	"assistant-console/internal/calcom"
	"assistant-console/internal/numbers"
	"assistant-console/internal/rbac"
	"assistant-console/internal/speech"
	"assistant-console/internal/validator"
	"assistant-console/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth       *auth.Manager
	Assistants *assistants.Service
	Purchases  *numbers.Coordinator
	Search     *numbers.Searcher
	Inventory  *numbers.Inventory
	Calcom     *calcom.Tester
	Scheduler  *calcom.Scheduler
	Previews   *speech.Previewer

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// writeError renders err as {error, details?} with the status its kind maps to.
func writeError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "kind", apperrors.KindName(err), "err", err)
	}
	body := gin.H{"error": apperrors.Message(err)}
	if d := apperrors.Details(err); d != "" {
		body["details"] = d
	}
	c.AbortWithStatusJSON(status, body)
}

// scope resolves the ownership filter for the caller; false means the request was aborted.
func scope(c *gin.Context) (string, bool) {
	uid, err := rbac.Scope(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user required"})
		return "", false
	}
	return uid, true
}

func notConfigured(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": what + " not configured"})
}

// --- Auth ---

type devTokenRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=owner member viewer super_admin"`
}

// IssueDevToken issues a JWT pair without credentials. Only routed in the local environment.
func (h Handlers) IssueDevToken(c *gin.Context) {
	if h.Auth == nil {
		notConfigured(c, "auth")
		return
	}
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if err := validator.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}
