package models

import (
	"strings"
	"time"
)

// DateTimeLayout is the ISO-8601 layout used when writing event instants back out.
// It always carries a numeric offset, so a UTC instant renders as +00:00 rather than Z.
const DateTimeLayout = "2006-01-02T15:04:05-07:00"

// UntitledSummary is shown for events whose summary is missing.
const UntitledSummary = "Untitled"

// EventTime is a start or end instant as exchanged with the completion service.
type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

// CandidateEvent is an event as decoded from generated text.
// Nothing about it has been validated yet; only the normalizer turns it into an Event.
type CandidateEvent struct {
	Summary     string     `json:"summary"`
	Start       *EventTime `json:"start"`
	End         *EventTime `json:"end"`
	Description string     `json:"description,omitempty"`

	// DecodeErr is set when the element was JSON but some field had the wrong type.
	// The fields that did decode are kept so the failure can be attributed.
	DecodeErr error `json:"-"`
}

// Title returns the summary, or UntitledSummary when it is blank.
func (c CandidateEvent) Title() string {
	if strings.TrimSpace(c.Summary) == "" {
		return UntitledSummary
	}
	return c.Summary
}

// Event is a normalized calendar event: both instants are zone-aware, expressed in
// TimeZone, and Start was strictly in the future when the event was normalized.
type Event struct {
	Summary     string    // Summary or title of the event
	Description string    // Optional free text
	Start       time.Time // Start instant, in the resolved zone
	End         time.Time // End instant, in the resolved zone
	TimeZone    string    // IANA zone identifier the instants are expressed in
}

// Title returns the summary, or UntitledSummary when it is blank.
func (e Event) Title() string {
	if strings.TrimSpace(e.Summary) == "" {
		return UntitledSummary
	}
	return e.Summary
}

// Duration is End minus Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// StartTime returns the start as an EventTime ready to be sent to a calendar.
func (e Event) StartTime() EventTime {
	return EventTime{DateTime: e.Start.Format(DateTimeLayout), TimeZone: e.TimeZone}
}

// EndTime returns the end as an EventTime ready to be sent to a calendar.
func (e Event) EndTime() EventTime {
	return EventTime{DateTime: e.End.Format(DateTimeLayout), TimeZone: e.TimeZone}
}

// Candidate renders the event back into the wire shape used by the completion service.
func (e Event) Candidate() CandidateEvent {
	start, end := e.StartTime(), e.EndTime()
	return CandidateEvent{
		Summary:     e.Summary,
		Start:       &start,
		End:         &end,
		Description: e.Description,
	}
}
