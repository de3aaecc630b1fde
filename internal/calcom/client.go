package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"assistant-console/internal/metrics"
)

const (
	versionIdentity = "2024-06-14"
	versionSlots    = "2024-09-04"
	versionBookings = "2024-08-13"

	maxBodyBytes = 1 << 20
)

// ErrSlotUnavailable is returned by CreateBooking when the host is already booked.
var ErrSlotUnavailable = errors.New("calcom: slot unavailable")

const slotTakenText = "User either already has booking at this time or is not available"

// APIError is a non-2xx answer from Cal.com.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calcom: %d: %s", e.Status, e.Message)
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type EventType struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Slug            string  `json:"slug"`
	Length          *int    `json:"length,omitempty"`
	LengthInMinutes *int    `json:"lengthInMinutes,omitempty"`
}

// Minutes prefers the legacy "length" field and falls back to "lengthInMinutes".
func (e EventType) Minutes() *int {
	if e.Length != nil {
		return e.Length
	}
	return e.LengthInMinutes
}

type Attendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"timeZone"`
}

type BookingRequest struct {
	Start       time.Time
	Attendee    Attendee
	EventTypeID int64
}

type Booking struct {
	ID     int64  `json:"id"`
	UID    string `json:"uid"`
	Status string `json:"status"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// Client is a Cal.com v2 API client bound to one API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *metrics.Metrics
}

type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Factory builds per-key clients. Each assistant brings its own Cal.com key.
type Factory struct {
	opts ClientOptions
}

func NewFactory(opts ClientOptions) *Factory {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.cal.com"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Factory{opts: opts}
}

func (f *Factory) ForKey(apiKey string) *Client {
	return &Client{baseURL: f.opts.BaseURL, apiKey: apiKey, http: f.opts.HTTPClient, metrics: f.opts.Metrics}
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var out struct {
		Data User `json:"data"`
	}
	if _, err := c.do(ctx, "me", http.MethodGet, "/v2/me", versionIdentity, nil, &out); err != nil {
		return User{}, err
	}
	return out.Data, nil
}

func (c *Client) ListEventTypes(ctx context.Context, username string) ([]EventType, error) {
	q := url.Values{}
	q.Set("username", username)
	var out struct {
		Data []EventType `json:"data"`
	}
	if _, err := c.do(ctx, "list_event_types", http.MethodGet, "/v2/event-types/?"+q.Encode(), versionIdentity, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListSlots returns slot start times in [start, end), across all days.
func (c *Client) ListSlots(ctx context.Context, eventTypeID int64, start, end time.Time) ([]time.Time, error) {
	q := url.Values{}
	q.Set("eventTypeId", fmt.Sprint(eventTypeID))
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))

	var out struct {
		Data map[string][]struct {
			Start string `json:"start"`
		} `json:"data"`
	}
	if _, err := c.do(ctx, "list_slots", http.MethodGet, "/v2/slots/?"+q.Encode(), versionSlots, nil, &out); err != nil {
		return nil, err
	}

	var starts []time.Time
	for _, day := range out.Data {
		for _, s := range day {
			t, err := time.Parse(time.RFC3339, s.Start)
			if err != nil {
				continue
			}
			starts = append(starts, t)
		}
	}
	return starts, nil
}

type bookingPayload struct {
	Start       string   `json:"start"`
	Attendee    Attendee `json:"attendee"`
	EventTypeID int64    `json:"eventTypeId"`
}

func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (Booking, error) {
	payload := bookingPayload{
		Start:       req.Start.UTC().Format(time.RFC3339),
		Attendee:    req.Attendee,
		EventTypeID: req.EventTypeID,
	}
	var out struct {
		Data  Booking `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	status, err := c.do(ctx, "create_booking", http.MethodPost, "/v2/bookings", versionBookings, payload, &out)
	if out.Error != nil && out.Error.Message != "" {
		if strings.Contains(out.Error.Message, slotTakenText) {
			return Booking{}, fmt.Errorf("%w: %s", ErrSlotUnavailable, out.Error.Message)
		}
		if status == 0 || status < 400 {
			status = http.StatusBadGateway
		}
		return Booking{}, &APIError{Status: status, Message: out.Error.Message}
	}
	if err != nil {
		return Booking{}, err
	}
	return out.Data, nil
}

// do decodes the body into out even on error statuses, so callers can read Cal.com's error envelope.
func (c *Client) do(ctx context.Context, op, method, path, version string, in, out any) (status int, err error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveCall("calcom", op, time.Since(start).Seconds(), err)
		}
	}()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("calcom: encode %s: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("calcom: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("cal-api-version", version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calcom: %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("calcom: read %s response: %w", op, err)
	}
	if out != nil && len(raw) > 0 {
		if jerr := json.Unmarshal(raw, out); jerr != nil && resp.StatusCode < 300 {
			return resp.StatusCode, fmt.Errorf("calcom: decode %s response: %w", op, jerr)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return resp.StatusCode, nil
}
