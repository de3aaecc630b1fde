package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"assistant-console/internal/speech"
	"assistant-console/pkg/logger"
)

// TextToSpeech renders a voice preview. Errors are {success:false, error} with the upstream status.
func (h Handlers) TextToSpeech(c *gin.Context) {
	var req speech.SynthesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "Voice ID manquant"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "Le texte ne peut pas être vide"})
		return
	}
	if h.Previews == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Clé API ElevenLabs non configurée"})
		return
	}

	p, err := h.Previews.Preview(c.Request.Context(), req)
	if err != nil {
		logger.FromGin(c).Warn("voice preview failed", "voice_id", req.VoiceID, "err", err)
		var apiErr *speech.APIError
		if errors.As(err, &apiErr) {
			c.AbortWithStatusJSON(apiErr.Status, gin.H{"success": false, "error": apiErr.Message})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Erreur de connexion à ElevenLabs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "audio": p.Audio, "contentType": p.ContentType})
}
