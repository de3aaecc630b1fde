package calcom

import (
	"context"
	"encoding/base32"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2s"

	"assistant-console/internal/apperrors"
)

const (
	// EventDurationMin is the slot length offered to callers.
	EventDurationMin = 30

	DefaultTimeZone = "Europe/Paris"
)

var (
	// ErrNotEnabled means the assistant has no enabled Cal.com configuration.
	ErrNotEnabled = errors.New("calcom: integration not enabled")
	// ErrBookingNotPermitted means the configuration is view_only.
	ErrBookingNotPermitted = errors.New("calcom: booking not permitted")
)

// SettingsSource loads an assistant's unsealed Cal.com settings.
type SettingsSource interface {
	CalcomSettings(ctx context.Context, assistantID string) (Settings, error)
}

type Slot struct {
	ID          string    `json:"id"`
	Start       time.Time `json:"start"`
	DurationMin int       `json:"durationMin"`
}

func newSlot(start time.Time) Slot {
	raw := start.UTC().Format(time.RFC3339) + "|" + strconv.Itoa(EventDurationMin)
	sum := blake2s.Sum256([]byte(raw))
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:5])
	return Slot{ID: "ST_" + strings.ToLower(enc), Start: start, DurationMin: EventDurationMin}
}

type BookRequest struct {
	Start    time.Time
	Name     string
	Email    string
	TimeZone string
}

// Scheduler lists availability and books appointments on behalf of an assistant,
// within the permissions its Cal.com configuration grants.
type Scheduler struct {
	settings SettingsSource
	clients  *Factory
	log      *slog.Logger
}

func NewScheduler(settings SettingsSource, clients *Factory, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{settings: settings, clients: clients, log: log}
}

func (s *Scheduler) ListSlots(ctx context.Context, assistantID string, start, end time.Time) ([]Slot, error) {
	if !end.After(start) {
		return nil, apperrors.InvalidRequest("end must be after start")
	}
	cfg, eventTypeID, err := s.load(ctx, assistantID)
	if err != nil {
		return nil, err
	}

	starts, err := s.clients.ForKey(cfg.APIKey).ListSlots(ctx, eventTypeID, start, end)
	if err != nil {
		return nil, providerError(err, "Failed to fetch available slots")
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	slots := make([]Slot, 0, len(starts))
	for _, st := range starts {
		if st.Before(start) || !st.Before(end) {
			continue
		}
		slots = append(slots, newSlot(st))
	}
	return slots, nil
}

func (s *Scheduler) Book(ctx context.Context, assistantID string, req BookRequest) (Booking, error) {
	if req.Start.IsZero() || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return Booking{}, apperrors.InvalidRequest("start, name and email are required")
	}
	cfg, eventTypeID, err := s.load(ctx, assistantID)
	if err != nil {
		return Booking{}, err
	}
	if !cfg.CanBook() {
		return Booking{}, ErrBookingNotPermitted
	}

	tz := req.TimeZone
	if tz == "" {
		tz = DefaultTimeZone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return Booking{}, apperrors.InvalidRequest("unknown time zone")
	}

	booking, err := s.clients.ForKey(cfg.APIKey).CreateBooking(ctx, BookingRequest{
		Start:       req.Start,
		Attendee:    Attendee{Name: req.Name, Email: req.Email, TimeZone: tz},
		EventTypeID: eventTypeID,
	})
	if errors.Is(err, ErrSlotUnavailable) {
		return Booking{}, &apperrors.Error{Kind: apperrors.ErrConflict, Message: "Slot is no longer available", Err: err}
	}
	if err != nil {
		s.log.Error("calcom booking failed", "assistant_id", assistantID, "err", err)
		return Booking{}, providerError(err, "Failed to create booking")
	}
	s.log.Info("calcom booking created", "assistant_id", assistantID, "booking_uid", booking.UID)
	return booking, nil
}

func (s *Scheduler) load(ctx context.Context, assistantID string) (Settings, int64, error) {
	cfg, err := s.settings.CalcomSettings(ctx, assistantID)
	if err != nil {
		return Settings{}, 0, err
	}
	if !cfg.CanView() {
		return Settings{}, 0, ErrNotEnabled
	}
	id, ok := cfg.EventTypeID()
	if !ok {
		return Settings{}, 0, apperrors.InvalidRequest("Cal.com event ID is not configured")
	}
	return cfg, id, nil
}

// Every upstream failure surfaces as 502, including Cal.com 401s.
func providerError(err error, msg string) error {
	return apperrors.Provider(http.StatusBadGateway, msg, err)
}
