package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"assistant-console/internal/assistants"
	"assistant-console/internal/auth"
)

func (h Handlers) ListAssistants(c *gin.Context) {
	uid, ok := scope(c)
	if !ok {
		return
	}
	items, err := h.Assistants.List(c.Request.Context(), uid, c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assistants": items})
}

type createAssistantRequest struct {
	Name string `json:"name"`
}

// CreateAssistant always creates for the caller, super_admin included.
func (h Handlers) CreateAssistant(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user required"})
		return
	}
	var req createAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, err := h.Assistants.Create(c.Request.Context(), uid, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"assistant": a})
}

func (h Handlers) GetAssistant(c *gin.Context) {
	uid, ok := scope(c)
	if !ok {
		return
	}
	a, err := h.Assistants.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assistant": a})
}

func (h Handlers) UpdateAssistant(c *gin.Context) {
	uid, ok := scope(c)
	if !ok {
		return
	}
	var in assistants.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, err := h.Assistants.Update(c.Request.Context(), uid, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assistant": a})
}

func (h Handlers) DeleteAssistant(c *gin.Context) {
	uid, ok := scope(c)
	if !ok {
		return
	}
	if err := h.Assistants.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h Handlers) ListVoices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"voices": assistants.Voices()})
}

func (h Handlers) ListPromptTemplates(c *gin.Context) {
	templates, err := assistants.PromptTemplates()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}
