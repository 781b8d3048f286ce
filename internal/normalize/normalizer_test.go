package normalize

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcal/internal/models"
	"chatcal/internal/temporal"
)

func newTestNormalizer(rules ...WeekdayRule) *Normalizer {
	return NewNormalizer(slog.New(slog.NewTextHandler(io.Discard, nil)), rules...)
}

func candidate(summary, start, end string) models.CandidateEvent {
	return models.CandidateEvent{
		Summary: summary,
		Start:   &models.EventTime{DateTime: start, TimeZone: "UTC"},
		End:     &models.EventTime{DateTime: end, TimeZone: "UTC"},
	}
}

func utcContext(ref time.Time) temporal.Context {
	return temporal.NewContext(ref, time.UTC)
}

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestNormalizeFridayStandupExample(t *testing.T) {
	n := newTestNormalizer()
	ref := time.Date(2024, 1, 6, 8, 0, 0, 0, time.UTC)

	events, failures := n.Normalize([]models.CandidateEvent{
		candidate("Friday standup", "2024-01-01T09:00:00", "2024-01-01T09:30:00"),
	}, utcContext(ref))

	require.Empty(t, failures)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC), e.Start)
	assert.Equal(t, time.Date(2024, 1, 12, 9, 30, 0, 0, time.UTC), e.End)
	assert.Equal(t, time.Friday, e.Start.Weekday())
	assert.Equal(t, 30*time.Minute, e.Duration())
	assert.Equal(t, "2024-01-12T09:00:00+00:00", e.StartTime().DateTime)
	assert.Equal(t, "UTC", e.TimeZone)
}

func TestNormalizeWeekdayOffsetZeroMovesAWeek(t *testing.T) {
	n := newTestNormalizer()
	// Friday 2024-01-05, after the event's time of day.
	ref := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	event, err := n.NormalizeOne(candidate("friday retro", "2024-01-05T09:00:00", "2024-01-05T10:00:00"), utcContext(ref))

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC), event.Start)
}

func TestNormalizeWeekdayAtReferenceInstantMovesAWeek(t *testing.T) {
	n := newTestNormalizer()
	ref := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	event, err := n.NormalizeOne(candidate("FRIDAY sync", "2024-01-05T09:00:00", "2024-01-05T09:15:00"), utcContext(ref))

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC), event.Start)
}

func TestNormalizeDayStepFallback(t *testing.T) {
	n := newTestNormalizer()
	ref := time.Date(2024, 1, 6, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start string
		want  time.Time
	}{
		{"later same day", "2024-01-01T09:00:00", time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC)},
		{"earlier in the day", "2024-01-01T07:00:00", time.Date(2024, 1, 7, 7, 0, 0, 0, time.UTC)},
		{"same clock as reference", "2024-01-03T08:00:00", time.Date(2024, 1, 7, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidate("Dentist", tt.start, tt.start)
			event, err := n.NormalizeOne(c, utcContext(ref))
			require.NoError(t, err)
			assert.Equal(t, tt.want, event.Start)
			assert.True(t, event.Start.After(ref))
			assert.False(t, event.Start.AddDate(0, 0, -1).After(ref), "should stop at the first future day")
		})
	}
}

func TestNormalizeFutureEventOnlyChangesZone(t *testing.T) {
	n := newTestNormalizer()
	la := mustLocation(t, "America/Los_Angeles")
	ref := time.Date(2024, 3, 1, 0, 0, 0, 0, la)

	c := candidate("Review", "2024-03-15T14:30:00-04:00", "2024-03-15T15:30:00-04:00")
	event, err := n.NormalizeOne(c, temporal.NewContext(ref, la))

	require.NoError(t, err)
	orig, err := time.Parse(time.RFC3339, "2024-03-15T14:30:00-04:00")
	require.NoError(t, err)
	assert.True(t, event.Start.Equal(orig))
	assert.Equal(t, 11, event.Start.Hour())
	assert.Equal(t, "2024-03-15T11:30:00-07:00", event.StartTime().DateTime)
	assert.Equal(t, "America/Los_Angeles", event.EndTime().TimeZone)
	assert.Equal(t, time.Hour, event.Duration())
}

func TestNormalizeNaiveTimeIsLocalWallClock(t *testing.T) {
	n := newTestNormalizer()
	tokyo := mustLocation(t, "Asia/Tokyo")
	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, tokyo)

	event, err := n.NormalizeOne(candidate("Dinner", "2024-02-01T19:00", "2024-02-01 21:00:00"), temporal.NewContext(ref, tokyo))

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 19, 0, 0, 0, tokyo), event.Start)
	assert.Equal(t, "2024-02-01T19:00:00+09:00", event.StartTime().DateTime)
	assert.Equal(t, 2*time.Hour, event.Duration())
}

func TestNormalizeForwardInvariantAndDurationPreserved(t *testing.T) {
	n := newTestNormalizer()
	ny := mustLocation(t, "America/New_York")
	// Crosses the March DST transition while projecting.
	ref := time.Date(2024, 3, 12, 12, 0, 0, 0, ny)

	inputs := []models.CandidateEvent{
		candidate("Standup", "2024-03-01T09:00:00", "2024-03-01T09:45:00"),
		candidate("Monday planning", "2024-02-20T10:00:00Z", "2024-02-20T11:30:00Z"),
		candidate("Friday drinks", "2024-03-08T17:00:00", "2024-03-08T19:00:00"),
		candidate("Long offsite", "2024-03-10T08:00:00", "2024-03-11T08:00:00"),
	}
	tctx := temporal.NewContext(ref, ny)

	events, failures := n.Normalize(inputs, tctx)

	require.Empty(t, failures)
	require.Len(t, events, len(inputs))
	for i, e := range events {
		start, err := resolve("start", inputs[i].Start, ny)
		require.NoError(t, err)
		end, err := resolve("end", inputs[i].End, ny)
		require.NoError(t, err)

		assert.True(t, e.Start.After(ref), "event %d not in future", i)
		assert.Equal(t, end.Sub(start), e.Duration(), "event %d duration changed", i)
		assert.Equal(t, ny, e.Start.Location())
	}
	assert.Equal(t, time.Monday, events[1].Start.Weekday())
	assert.Equal(t, time.Friday, events[2].Start.Weekday())
	assert.Equal(t, 9, events[0].Start.Hour(), "wall clock kept across DST")
}

func TestNormalizeIsolatesTimestampFailures(t *testing.T) {
	n := newTestNormalizer()
	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	inputs := []models.CandidateEvent{
		candidate("Good one", "2024-02-01T09:00:00", "2024-02-01T10:00:00"),
		candidate("Bad start", "next tuesday", "2024-02-01T10:00:00"),
		{Summary: "No end", Start: &models.EventTime{DateTime: "2024-02-01T09:00:00"}},
		candidate("Good two", "2024-02-02T09:00:00", "2024-02-02T10:00:00"),
	}

	events, failures := n.Normalize(inputs, utcContext(ref))

	require.Len(t, events, 2)
	assert.Equal(t, "Good one", events[0].Summary)
	assert.Equal(t, "Good two", events[1].Summary)

	require.Len(t, failures, 2)
	assert.Equal(t, "Bad start", failures[0].Event.Summary)
	assert.True(t, errors.Is(failures[0].Err, ErrTimestamp))
	var tsErr *TimestampError
	require.True(t, errors.As(failures[1].Err, &tsErr))
	assert.Equal(t, "end", tsErr.Field)
}

func TestNormalizeKeepsEndBeforeStart(t *testing.T) {
	n := newTestNormalizer()
	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	event, err := n.NormalizeOne(candidate("Backwards", "2024-02-01T10:00:00", "2024-02-01T09:00:00"), utcContext(ref))

	require.NoError(t, err)
	assert.Equal(t, -time.Hour, event.Duration())
}

func TestRuleFor(t *testing.T) {
	fridayOnly, err := ParseWeekdayRules([]string{"fri"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		rules   []WeekdayRule
		summary string
		want    ProjectionRule
	}{
		{"friday default", nil, "Friday standup", WeekdayRule{Name: "Friday", Day: time.Friday}},
		{"case-insensitive", nil, "team sync on TUESDAY", WeekdayRule{Name: "Tuesday", Day: time.Tuesday}},
		{"no weekday", nil, "Dentist", DayStepRule{}},
		{"configured subset", fridayOnly, "Monday planning", DayStepRule{}},
		{"configured match", fridayOnly, "friday drinks", WeekdayRule{Name: "Friday", Day: time.Friday}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNormalizer(tt.rules...)
			assert.Equal(t, tt.want, n.RuleFor(tt.summary))
		})
	}
}

func TestWeekdayRuleDays(t *testing.T) {
	friday := WeekdayRule{Name: "Friday", Day: time.Friday}
	// 2024-01-01 is a Monday.
	monday := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 4, friday.Days(monday))
	assert.Equal(t, 7, friday.Days(monday.AddDate(0, 0, 4)))
	assert.Equal(t, 6, friday.Days(monday.AddDate(0, 0, 5)))
	assert.Equal(t, 1, DayStepRule{}.Days(monday))
}

func TestParseWeekdayRules(t *testing.T) {
	rules, err := ParseWeekdayRules([]string{"Friday", " mon ", ""})
	require.NoError(t, err)
	assert.Equal(t, []WeekdayRule{
		{Name: "Friday", Day: time.Friday},
		{Name: "Monday", Day: time.Monday},
	}, rules)

	_, err = ParseWeekdayRules([]string{"funday"})
	assert.Error(t, err)

	_, err = ParseWeekdayRules([]string{"fr"})
	assert.Error(t, err)
}

func TestNormalizeReportsDecodeErrors(t *testing.T) {
	n := newTestNormalizer()
	decodeErr := errors.New("json: cannot unmarshal number into Go struct field")
	broken := models.CandidateEvent{Summary: "Broken", DecodeErr: decodeErr}

	events, failures := n.Normalize([]models.CandidateEvent{
		candidate("Lunch", "2024-01-08T12:00:00", "2024-01-08T13:00:00"),
		broken,
	}, utcContext(time.Date(2024, 1, 6, 8, 0, 0, 0, time.UTC)))

	require.Len(t, events, 1)
	assert.Equal(t, "Lunch", events[0].Summary)
	require.Len(t, failures, 1)
	assert.Equal(t, "Broken", failures[0].Event.Summary)
	assert.ErrorIs(t, failures[0].Err, decodeErr)
}
