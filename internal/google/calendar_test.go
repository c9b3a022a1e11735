package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"coachsync/internal/domain"
	"coachsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
)

func setupMockServer(t *testing.T) (*http.ServeMux, *CalendarClient, domain.CalendarTarget) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewCalendarClient(Options{
		Endpoint:       server.URL + "/calendar/v3/",
		RequestTimeout: 5 * time.Second,
		Retry:          RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}, nil)
	target := domain.CalendarTarget{
		Credential: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
		CalendarID: "primary",
	}
	return mux, c, target
}

func writeAPIError(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": http.StatusText(code),
			"errors":  []map[string]string{{"reason": reason, "message": http.StatusText(code)}},
		},
	})
}

func TestCalendarClient_CreateEvent(t *testing.T) {
	mux, c, target := setupMockServer(t)

	var got calendar.Event
	mux.HandleFunc("/calendar/v3/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(calendar.Event{Id: "evt-1"})
	})

	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	id, err := c.CreateEvent(context.Background(), target, models.EventDraft{
		Summary:   "Training with Anna",
		Start:     start,
		End:       start.Add(time.Hour),
		Attendees: []string{"anna@example.com", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", id)

	assert.Equal(t, "Training with Anna", got.Summary)
	assert.Equal(t, "2025-03-10T10:00:00Z", got.Start.DateTime)
	assert.Equal(t, "2025-03-10T11:00:00Z", got.End.DateTime)
	require.Len(t, got.Attendees, 1)
	assert.Equal(t, "anna@example.com", got.Attendees[0].Email)
}

func TestCalendarClient_CreateEventNotRetried(t *testing.T) {
	mux, c, target := setupMockServer(t)

	var hits atomic.Int32
	mux.HandleFunc("/calendar/v3/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeAPIError(w, http.StatusServiceUnavailable, "backendError")
	})

	_, err := c.CreateEvent(context.Background(), target, models.EventDraft{})
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCalendarClient_UpdateEvent(t *testing.T) {
	mux, c, target := setupMockServer(t)

	mux.HandleFunc("/calendar/v3/calendars/primary/events/evt-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		_ = json.NewEncoder(w).Encode(calendar.Event{Id: "evt-1"})
	})
	mux.HandleFunc("/calendar/v3/calendars/primary/events/gone", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusGone, "deleted")
	})
	mux.HandleFunc("/calendar/v3/calendars/primary/events/missing", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "notFound")
	})

	require.NoError(t, c.UpdateEvent(context.Background(), target, "evt-1", models.EventDraft{Summary: "x"}))
	assert.ErrorIs(t, c.UpdateEvent(context.Background(), target, "gone", models.EventDraft{}), domain.ErrRemoteNotFound)
	assert.ErrorIs(t, c.UpdateEvent(context.Background(), target, "missing", models.EventDraft{}), domain.ErrRemoteNotFound)
}

func TestCalendarClient_DeleteEvent(t *testing.T) {
	mux, c, target := setupMockServer(t)

	var flaky atomic.Int32
	mux.HandleFunc("/calendar/v3/calendars/primary/events/flaky", func(w http.ResponseWriter, r *http.Request) {
		if flaky.Add(1) == 1 {
			writeAPIError(w, http.StatusInternalServerError, "backendError")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/calendar/v3/calendars/primary/events/missing", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "notFound")
	})
	mux.HandleFunc("/calendar/v3/calendars/primary/events/denied", func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusForbidden, "forbidden")
	})

	require.NoError(t, c.DeleteEvent(context.Background(), target, "flaky"))
	assert.Equal(t, int32(2), flaky.Load())

	assert.NoError(t, c.DeleteEvent(context.Background(), target, "missing"))
	assert.ErrorIs(t, c.DeleteEvent(context.Background(), target, "denied"), domain.ErrRemoteRejected)
}

func TestCalendarClient_ListEvents(t *testing.T) {
	mux, c, target := setupMockServer(t)

	mux.HandleFunc("/calendar/v3/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		assert.Equal(t, "2025-03-10T00:00:00Z", r.URL.Query().Get("timeMin"))
		_ = json.NewEncoder(w).Encode(calendar.Events{
			TimeZone: "UTC",
			Items: []*calendar.Event{
				{
					Id:    "timed",
					Start: &calendar.EventDateTime{DateTime: "2025-03-10T10:30:00Z"},
					End:   &calendar.EventDateTime{DateTime: "2025-03-10T11:30:00Z"},
				},
				{
					Id:     "cancelled",
					Status: "cancelled",
					Start:  &calendar.EventDateTime{DateTime: "2025-03-10T12:00:00Z"},
					End:    &calendar.EventDateTime{DateTime: "2025-03-10T13:00:00Z"},
				},
				{
					Id:    "allday",
					Start: &calendar.EventDateTime{Date: "2025-03-10"},
					End:   &calendar.EventDateTime{Date: "2025-03-11"},
				},
				{Id: "broken", Start: &calendar.EventDateTime{}},
			},
		})
	})

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	events, err := c.ListEvents(context.Background(), target, from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "timed", events[0].ID)
	assert.True(t, events[0].Start.Equal(time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)))

	assert.Equal(t, "allday", events[1].ID)
	assert.True(t, events[1].Start.Equal(from))
	assert.True(t, events[1].End.Equal(from.Add(24*time.Hour)))
}

func TestCalendarClient_ListEventsEmpty(t *testing.T) {
	mux, c, target := setupMockServer(t)
	mux.HandleFunc("/calendar/v3/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(calendar.Events{})
	})

	events, err := c.ListEvents(context.Background(), target, time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestCalendarClient_ListEventsRetriesThenFails(t *testing.T) {
	mux, c, target := setupMockServer(t)

	var hits atomic.Int32
	mux.HandleFunc("/calendar/v3/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeAPIError(w, http.StatusTooManyRequests, "rateLimitExceeded")
	})

	_, err := c.ListEvents(context.Background(), target, time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Equal(t, int32(3), hits.Load())
}

func TestCalendarClient_MissingCredential(t *testing.T) {
	_, c, _ := setupMockServer(t)

	_, err := c.CreateEvent(context.Background(), domain.CalendarTarget{CalendarID: "primary"}, models.EventDraft{})
	assert.ErrorIs(t, err, domain.ErrRemoteRejected)
}

type funcTokenSource func() (*oauth2.Token, error)

func (f funcTokenSource) Token() (*oauth2.Token, error) { return f() }

func TestCalendarClient_ServiceReusedPerCredential(t *testing.T) {
	_, c, target := setupMockServer(t)

	first, err := c.service(target)
	require.NoError(t, err)
	again, err := c.service(domain.CalendarTarget{Credential: target.Credential, CalendarID: "other"})
	require.NoError(t, err)
	assert.Same(t, first, again)

	otherCred := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "second-token"})
	second, err := c.service(domain.CalendarTarget{Credential: otherCred, CalendarID: "primary"})
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	// not usable as a map key, still served
	fn := funcTokenSource(func() (*oauth2.Token, error) { return &oauth2.Token{AccessToken: "fn"}, nil })
	srv, err := c.service(domain.CalendarTarget{Credential: fn, CalendarID: "primary"})
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestParseEventTimeUsesEventZone(t *testing.T) {
	got, err := parseEventTime(&calendar.EventDateTime{Date: "2025-03-10", TimeZone: "Europe/Berlin"}, time.UTC)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)))
}
