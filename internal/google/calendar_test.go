package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"chatcal/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, calendarID string) *CalendarClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewClientWithHTTP(context.Background(), logger, srv.Client(), calendarID, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func testEvent() models.Event {
	start := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)
	return models.Event{
		Summary:     "Friday standup",
		Description: "daily",
		Start:       start,
		End:         start.Add(30 * time.Minute),
		TimeZone:    "UTC",
	}
}

func TestInsertEvent(t *testing.T) {
	var got calendar.Event
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"evt1","htmlLink":"https://calendar.google.com/event?eid=evt1"}`)
	}, "")

	link, err := c.InsertEvent(context.Background(), testEvent())

	require.NoError(t, err)
	assert.Equal(t, "https://calendar.google.com/event?eid=evt1", link)
	assert.Equal(t, "/calendars/primary/events", path)
	assert.Equal(t, "Friday standup", got.Summary)
	assert.Equal(t, "daily", got.Description)
	assert.Equal(t, "2024-01-12T09:00:00+00:00", got.Start.DateTime)
	assert.Equal(t, "2024-01-12T09:30:00+00:00", got.End.DateTime)
	assert.Equal(t, "UTC", got.Start.TimeZone)
}

func TestInsertEventError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"The specified time range is empty."}}`)
	}, "work@example.com")

	_, err := c.InsertEvent(context.Background(), testEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create event")
	assert.Contains(t, err.Error(), "The specified time range is empty.")
}

func TestListCalendars(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/calendarList", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[
			{"id":"me@example.com","summary":"Me","primary":true},
			{"id":"team@example.com","summary":"Team"}
		]}`)
	}, "")

	calendars, err := c.ListCalendars(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []models.Calendar{
		{ID: "me@example.com", Summary: "Me", Primary: true},
		{ID: "team@example.com", Summary: "Team"},
	}, calendars)
}

func TestTokenRoundTripAndAccounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, TokenFile("work"))
	token := &oauth2.Token{AccessToken: "abc", RefreshToken: "def", TokenType: "Bearer"}

	require.NoError(t, SaveToken(path, token))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o600))

	loaded, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", loaded.AccessToken)
	assert.Equal(t, "def", loaded.RefreshToken)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	accounts, err := GetTokenAccounts(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, accounts)
}

func TestOAuthConfigFromEnvValues(t *testing.T) {
	cfg, err := GetOAuthConfigForAuthFlow("id", "secret")

	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, []string{calendar.CalendarScope}, cfg.Scopes)
}
