package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"assistant-console/internal/calcom"
	"assistant-console/internal/validator"
)

const defaultSlotWindow = 7 * 24 * time.Hour

type slotsRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type bookingRequest struct {
	Start    time.Time `json:"start"`
	Name     string    `json:"name"`
	Email    string    `json:"email" validate:"omitempty,email"`
	TimeZone string    `json:"timeZone"`
}

// calendarError maps scheduler permission errors to 403 and everything else through writeError.
func calendarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, calcom.ErrNotEnabled):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Cal.com is not enabled for this assistant"})
	case errors.Is(err, calcom.ErrBookingNotPermitted):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Booking is not permitted for this assistant"})
	default:
		writeError(c, err)
	}
}

func (h Handlers) ListSlots(c *gin.Context) {
	if h.Scheduler == nil {
		notConfigured(c, "scheduler")
		return
	}
	uid, ok := scope(c)
	if !ok {
		return
	}
	var req slotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id := c.Param("id")
	if _, err := h.Assistants.Get(c.Request.Context(), uid, id); err != nil {
		writeError(c, err)
		return
	}

	if req.Start.IsZero() {
		req.Start = h.now()
	}
	if req.End.IsZero() {
		req.End = req.Start.Add(defaultSlotWindow)
	}
	slots, err := h.Scheduler.ListSlots(c.Request.Context(), id, req.Start, req.End)
	if err != nil {
		calendarError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

func (h Handlers) BookSlot(c *gin.Context) {
	if h.Scheduler == nil {
		notConfigured(c, "scheduler")
		return
	}
	uid, ok := scope(c)
	if !ok {
		return
	}
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := validator.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	if _, err := h.Assistants.Get(c.Request.Context(), uid, id); err != nil {
		writeError(c, err)
		return
	}

	booking, err := h.Scheduler.Book(c.Request.Context(), id, calcom.BookRequest{
		Start:    req.Start,
		Name:     req.Name,
		Email:    req.Email,
		TimeZone: req.TimeZone,
	})
	if err != nil {
		calendarError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}
