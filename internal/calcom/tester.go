package calcom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// ConnectionError is a failed connection test with the status and body the dashboard expects.
type ConnectionError struct {
	Status  int
	Message string
	Details string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConnectionError) Unwrap() error { return e.Err }

type EventTypeSummary struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Length *int   `json:"length"`
}

type ConnectionResult struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	User      User              `json:"user"`
	EventType *EventTypeSummary `json:"eventType"`
}

// Tester validates a Cal.com API key and, optionally, an event type id before it is saved.
type Tester struct {
	clients *Factory
	log     *slog.Logger
}

func NewTester(clients *Factory, log *slog.Logger) *Tester {
	if log == nil {
		log = slog.Default()
	}
	return &Tester{clients: clients, log: log}
}

func (t *Tester) TestConnection(ctx context.Context, apiKey, eventID string) (ConnectionResult, error) {
	if strings.TrimSpace(apiKey) == "" {
		return ConnectionResult{}, &ConnectionError{Status: http.StatusBadRequest, Message: "API key is required"}
	}
	client := t.clients.ForKey(apiKey)

	user, err := client.Me(ctx)
	if err != nil {
		t.log.Warn("calcom authentication failed", "err", err)
		return ConnectionResult{}, &ConnectionError{
			Status:  http.StatusBadRequest,
			Message: "Invalid Cal.com API key",
			Details: "Unable to authenticate with Cal.com",
			Err:     err,
		}
	}

	res := ConnectionResult{Success: true, Message: "API key validated successfully", User: user}

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return res, nil
	}

	wanted, err := strconv.ParseFloat(eventID, 64)
	if err != nil || math.IsInf(wanted, 0) || math.IsNaN(wanted) {
		return ConnectionResult{}, &ConnectionError{
			Status:  http.StatusBadRequest,
			Message: "Invalid Event ID format",
			Details: "Event ID must be a numeric value as shown in Cal.com URL (e.g., https://app.cal.com/event-types/3231593)",
		}
	}
	if user.Username == "" {
		return ConnectionResult{}, &ConnectionError{
			Status:  http.StatusInternalServerError,
			Message: "Failed to resolve username",
			Details: "Could not determine Cal.com username from API key",
		}
	}

	events, err := client.ListEventTypes(ctx, user.Username)
	if err != nil {
		status := 0
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Status
		}
		t.log.Warn("calcom event type listing failed", "username", user.Username, "err", err)
		return ConnectionResult{}, &ConnectionError{
			Status:  http.StatusBadRequest,
			Message: "Failed to list event types",
			Details: fmt.Sprintf("Unable to list event types for user %s. Status: %d", user.Username, status),
			Err:     err,
		}
	}

	for _, e := range events {
		if float64(e.ID) != wanted {
			continue
		}
		res.Message = "API key and Event ID validated successfully"
		res.EventType = &EventTypeSummary{ID: e.ID, Title: e.Title, Slug: e.Slug, Length: e.Minutes()}
		return res, nil
	}

	return ConnectionResult{}, &ConnectionError{
		Status:  http.StatusBadRequest,
		Message: "Invalid Event ID",
		Details: fmt.Sprintf("Event ID %s not found for user %s. Make sure the Event Type exists and your API key has access to it.", strconv.FormatFloat(wanted, 'f', -1, 64), user.Username),
	}
}
