package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"assistant-console/internal/calcom"
)

type calcomConfigRequest struct {
	AssistantID  string           `json:"assistantId"`
	CalcomConfig *calcom.Settings `json:"calcomConfig"`
}

func (h Handlers) GetCalcomConfig(c *gin.Context) {
	uid, ok := scope(c)
	if !ok {
		return
	}
	var req calcomConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id := strings.TrimSpace(req.AssistantID)
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Assistant ID is required"})
		return
	}

	cfg, err := h.Assistants.GetCalcomConfig(c.Request.Context(), uid, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "calcomConfig": cfg})
}

func (h Handlers) SaveCalcomConfig(c *gin.Context) {
	uid, ok := scope(c)
	if !ok {
		return
	}
	var req calcomConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id := strings.TrimSpace(req.AssistantID)
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Assistant ID is required"})
		return
	}
	if req.CalcomConfig == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cal.com configuration is required"})
		return
	}

	if err := h.Assistants.SaveCalcomConfig(c.Request.Context(), uid, id, *req.CalcomConfig); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cal.com configuration saved successfully"})
}

// eventID accepts the event id as a JSON string or number.
type eventID string

func (e *eventID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*e = eventID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*e = eventID(n.String())
	return nil
}

type calcomTestRequest struct {
	APIKey  string  `json:"apiKey"`
	EventID eventID `json:"eventId"`
}

func (h Handlers) TestCalcomConnection(c *gin.Context) {
	if h.Calcom == nil {
		notConfigured(c, "calcom")
		return
	}
	var req calcomTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, err := h.Calcom.TestConnection(c.Request.Context(), req.APIKey, string(req.EventID))
	if err != nil {
		var connErr *calcom.ConnectionError
		if errors.As(err, &connErr) {
			body := gin.H{"error": connErr.Message}
			if connErr.Details != "" {
				body["details"] = connErr.Details
			}
			c.AbortWithStatusJSON(connErr.Status, body)
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Connection test failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
