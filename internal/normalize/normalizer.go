package normalize

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chatcal/internal/models"
	"chatcal/internal/temporal"
)

// ErrTimestamp reports a missing or unparseable event timestamp.
var ErrTimestamp = errors.New("timestamp parse error")

// Layouts for timestamps that carry their own offset.
var awareLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
}

// Layouts for local clock readings without an offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// TimestampError is returned for an event whose start or end cannot be parsed.
type TimestampError struct {
	Field string // "start" or "end"
	Value string
	Err   error
}

func (e *TimestampError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s dateTime %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("missing %s dateTime", e.Field)
}

func (e *TimestampError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTimestamp}
	}
	return []error{ErrTimestamp, e.Err}
}

// Failure is a candidate event that could not be normalized.
type Failure struct {
	Event models.CandidateEvent
	Err   error
}

// Normalizer validates candidate events and rewrites their times into a temporal context.
type Normalizer struct {
	logger *slog.Logger
	rules  []WeekdayRule
}

// NewNormalizer creates a Normalizer. Without rules, DefaultWeekdayRules is used.
func NewNormalizer(logger *slog.Logger, rules ...WeekdayRule) *Normalizer {
	if len(rules) == 0 {
		rules = DefaultWeekdayRules()
	}
	return &Normalizer{logger: logger, rules: rules}
}

// RuleFor selects the projection rule for an event summary: the first weekday rule
// whose name appears in it (case-insensitively), otherwise DayStepRule.
func (n *Normalizer) RuleFor(summary string) ProjectionRule {
	lower := strings.ToLower(summary)
	for _, r := range n.rules {
		if strings.Contains(lower, strings.ToLower(r.Name)) {
			return r
		}
	}
	return DayStepRule{}
}

// Normalize converts each candidate independently. Events that fail validation are
// returned as failures and do not affect their siblings. Output preserves input order.
func (n *Normalizer) Normalize(events []models.CandidateEvent, tctx temporal.Context) ([]models.Event, []Failure) {
	var (
		normalized []models.Event
		failures   []Failure
	)
	for _, candidate := range events {
		event, err := n.NormalizeOne(candidate, tctx)
		if err != nil {
			n.logger.Error("Failed to normalize event", "title", candidate.Title(), "error", err)
			failures = append(failures, Failure{Event: candidate, Err: err})
			continue
		}
		normalized = append(normalized, event)
	}
	return normalized, failures
}

// NormalizeOne resolves a single candidate's zone and projects it into the future.
func (n *Normalizer) NormalizeOne(candidate models.CandidateEvent, tctx temporal.Context) (models.Event, error) {
	if candidate.DecodeErr != nil {
		return models.Event{}, candidate.DecodeErr
	}
	start, err := resolve("start", candidate.Start, tctx.Location)
	if err != nil {
		return models.Event{}, err
	}
	end, err := resolve("end", candidate.End, tctx.Location)
	if err != nil {
		return models.Event{}, err
	}

	if end.Before(start) {
		n.logger.Warn("Event ends before it starts", "title", candidate.Title(), "start", start, "end", end)
	}

	if !start.After(tctx.Reference) {
		rule := n.RuleFor(candidate.Summary)
		duration := end.Sub(start)
		for !start.After(tctx.Reference) {
			start = start.AddDate(0, 0, rule.Days(start))
		}
		end = start.Add(duration)
		n.logger.Debug("Projected past event forward", "title", candidate.Title(), "rule", rule.String(), "start", start)
	}

	return models.Event{
		Summary:     candidate.Summary,
		Description: candidate.Description,
		Start:       start,
		End:         end,
		TimeZone:    tctx.Zone,
	}, nil
}

// resolve parses an event time and expresses it in loc. A reading without an offset
// is taken literally as a loc wall clock; one with an offset keeps its instant.
func resolve(field string, et *models.EventTime, loc *time.Location) (time.Time, error) {
	if et == nil || strings.TrimSpace(et.DateTime) == "" {
		return time.Time{}, &TimestampError{Field: field}
	}
	value := strings.TrimSpace(et.DateTime)

	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.In(loc), nil
		}
	}

	var lastErr error
	for _, layout := range naiveLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, &TimestampError{Field: field, Value: value, Err: lastErr}
}
