package models

import "fmt"

// OutcomeStatus tags a SchedulingOutcome.
type OutcomeStatus int

const (
	Created OutcomeStatus = iota
	Failed
)

// Outcome is the result of attempting to create one event.
// Link is set for Created outcomes, Message for Failed ones.
type Outcome struct {
	Status  OutcomeStatus
	Title   string
	Link    string
	Message string
}

// CreatedOutcome records a successful creation.
func CreatedOutcome(title, link string) Outcome {
	return Outcome{Status: Created, Title: title, Link: link}
}

// FailedOutcome records a failed creation.
func FailedOutcome(title, message string) Outcome {
	return Outcome{Status: Failed, Title: title, Message: message}
}

// OK reports whether the event was created.
func (o Outcome) OK() bool {
	return o.Status == Created
}

func (o Outcome) String() string {
	if o.OK() {
		return fmt.Sprintf("Event created: %s", o.Link)
	}
	return fmt.Sprintf("An error occurred: %s", o.Message)
}

// Calendar is an entry returned when enumerating a sink's calendars.
type Calendar struct {
	ID      string
	Summary string
	Primary bool
}
