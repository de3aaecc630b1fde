package calcom

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant-console/internal/apperrors"
)

func newTestFactory(t *testing.T, mux *http.ServeMux) *Factory {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewFactory(ClientOptions{BaseURL: srv.URL})
}

func meHandler(t *testing.T, username string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cal_live_key", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-06-14", r.Header.Get("cal-api-version"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": 7, "username": username, "email": "jo@example.com", "name": "Jo"},
		})
	}
}

func TestTestConnectionKeyOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/me", meHandler(t, "jo"))
	tester := NewTester(newTestFactory(t, mux), nil)

	res, err := tester.TestConnection(context.Background(), "cal_live_key", "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "API key validated successfully", res.Message)
	assert.Equal(t, User{ID: 7, Username: "jo", Email: "jo@example.com", Name: "Jo"}, res.User)
	assert.Nil(t, res.EventType)
}

func TestTestConnectionWithEvent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/me", meHandler(t, "jo"))
	mux.HandleFunc("/v2/event-types/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "jo", r.URL.Query().Get("username"))
		_, _ = w.Write([]byte(`{"data":[{"id":11,"title":"Other","slug":"other","length":15},{"id":3231593,"title":"Consultation","slug":"consult","lengthInMinutes":30}]}`))
	})
	tester := NewTester(newTestFactory(t, mux), nil)

	res, err := tester.TestConnection(context.Background(), "cal_live_key", " 3231593 ")
	require.NoError(t, err)
	assert.Equal(t, "API key and Event ID validated successfully", res.Message)
	require.NotNil(t, res.EventType)
	assert.Equal(t, int64(3231593), res.EventType.ID)
	assert.Equal(t, "Consultation", res.EventType.Title)
	require.NotNil(t, res.EventType.Length)
	assert.Equal(t, 30, *res.EventType.Length)
}

func TestTestConnectionFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		tester := NewTester(NewFactory(ClientOptions{}), nil)
		_, err := tester.TestConnection(ctx, " ", "")
		assertConnErr(t, err, http.StatusBadRequest, "API key is required")
	})

	t.Run("bad key", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v2/me", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := NewTester(newTestFactory(t, mux), nil).TestConnection(ctx, "cal_live_key", "")
		ce := assertConnErr(t, err, http.StatusBadRequest, "Invalid Cal.com API key")
		assert.Equal(t, "Unable to authenticate with Cal.com", ce.Details)
	})

	t.Run("non numeric event", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v2/me", meHandler(t, "jo"))
		_, err := NewTester(newTestFactory(t, mux), nil).TestConnection(ctx, "cal_live_key", "abc")
		assertConnErr(t, err, http.StatusBadRequest, "Invalid Event ID format")
	})

	t.Run("no username", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v2/me", meHandler(t, ""))
		_, err := NewTester(newTestFactory(t, mux), nil).TestConnection(ctx, "cal_live_key", "12")
		assertConnErr(t, err, http.StatusInternalServerError, "Failed to resolve username")
	})

	t.Run("listing fails", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v2/me", meHandler(t, "jo"))
		mux.HandleFunc("/v2/event-types/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		_, err := NewTester(newTestFactory(t, mux), nil).TestConnection(ctx, "cal_live_key", "12")
		ce := assertConnErr(t, err, http.StatusBadRequest, "Failed to list event types")
		assert.Contains(t, ce.Details, "Status: 403")
	})

	t.Run("event not found", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v2/me", meHandler(t, "jo"))
		mux.HandleFunc("/v2/event-types/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"id":11}]}`))
		})
		_, err := NewTester(newTestFactory(t, mux), nil).TestConnection(ctx, "cal_live_key", "12")
		assertConnErr(t, err, http.StatusBadRequest, "Invalid Event ID")
	})
}

func assertConnErr(t *testing.T, err error, status int, msg string) *ConnectionError {
	t.Helper()
	var ce *ConnectionError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, status, ce.Status)
	assert.Equal(t, msg, ce.Message)
	return ce
}

type staticSettings struct {
	cfg Settings
	err error
}

func (s staticSettings) CalcomSettings(context.Context, string) (Settings, error) {
	return s.cfg, s.err
}

func TestSchedulerListSlots(t *testing.T) {
	start := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/slots/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-09-04", r.Header.Get("cal-api-version"))
		assert.Equal(t, "42", r.URL.Query().Get("eventTypeId"))
		assert.Equal(t, "2026-10-19T00:00:00Z", r.URL.Query().Get("start"))
		_, _ = w.Write([]byte(`{"data":{"2026-10-20":[{"start":"2026-10-20T09:00:00Z"}],"2026-10-19":[{"start":"2026-10-19T14:30:00Z"},{"start":"bogus"}]}}`))
	})
	sched := NewScheduler(staticSettings{cfg: Settings{APIKey: "k", EventID: "42", Enabled: true}}, newTestFactory(t, mux), nil)

	slots, err := sched.ListSlots(context.Background(), "a1", start, end)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].Start.Before(slots[1].Start))
	assert.Equal(t, EventDurationMin, slots[0].DurationMin)
	assert.Regexp(t, `^ST_[a-z2-7]{8}$`, slots[0].ID)
	assert.NotEqual(t, slots[0].ID, slots[1].ID)
}

func TestSchedulerRequiresEnabledConfig(t *testing.T) {
	sched := NewScheduler(staticSettings{cfg: Settings{APIKey: "k", EventID: "42"}}, NewFactory(ClientOptions{}), nil)
	now := time.Now()
	_, err := sched.ListSlots(context.Background(), "a1", now, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotEnabled)
}

func TestSchedulerBookRequiresViewAndBook(t *testing.T) {
	cfg := Settings{APIKey: "k", EventID: "42", Enabled: true, Permissions: PermissionViewOnly}
	sched := NewScheduler(staticSettings{cfg: cfg}, NewFactory(ClientOptions{}), nil)
	_, err := sched.Book(context.Background(), "a1", BookRequest{Start: time.Now(), Name: "Jo", Email: "jo@example.com"})
	assert.ErrorIs(t, err, ErrBookingNotPermitted)
}

func TestSchedulerBook(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/bookings", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "2024-08-13", r.Header.Get("cal-api-version"))
		var body bookingPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-10-20T07:00:00Z", body.Start)
		assert.Equal(t, int64(42), body.EventTypeID)
		assert.Equal(t, Attendee{Name: "Jo", Email: "jo@example.com", TimeZone: DefaultTimeZone}, body.Attendee)
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":1,"uid":"bk_1","status":"accepted"}}`))
	})
	cfg := Settings{APIKey: "k", EventID: "42", Enabled: true, Permissions: PermissionViewAndBook}
	sched := NewScheduler(staticSettings{cfg: cfg}, newTestFactory(t, mux), nil)

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	b, err := sched.Book(context.Background(), "a1", BookRequest{
		Start: time.Date(2026, 10, 20, 9, 0, 0, 0, paris),
		Name:  "Jo",
		Email: "jo@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "bk_1", b.UID)
}

func TestSchedulerBookSlotTaken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/bookings", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","error":{"code":"BadRequestException","message":"User either already has booking at this time or is not available"}}`))
	})
	cfg := Settings{APIKey: "k", EventID: "42", Enabled: true, Permissions: PermissionViewAndBook}
	sched := NewScheduler(staticSettings{cfg: cfg}, newTestFactory(t, mux), nil)

	_, err := sched.Book(context.Background(), "a1", BookRequest{Start: time.Now(), Name: "Jo", Email: "jo@example.com"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSettingsPermissions(t *testing.T) {
	assert.False(t, Settings{APIKey: "k"}.CanView())
	assert.True(t, Settings{APIKey: "k", Enabled: true}.CanView())
	assert.False(t, Settings{APIKey: "k", Enabled: true, Permissions: PermissionViewOnly}.CanBook())
	assert.True(t, Settings{APIKey: "k", Enabled: true, Permissions: PermissionViewAndBook}.CanBook())

	_, ok := Settings{EventID: "abc"}.EventTypeID()
	assert.False(t, ok)
	id, ok := Settings{EventID: " 12 "}.EventTypeID()
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
}
