package assistant

import (
	"context"
	"log/slog"

	"chatcal/internal/models"
)

// Sink is a calendar service that can create events.
type Sink interface {
	// InsertEvent creates event and returns a link to it.
	InsertEvent(ctx context.Context, event models.Event) (string, error)
}

// Lister enumerates the calendars a sink can see.
type Lister interface {
	ListCalendars(ctx context.Context) ([]models.Calendar, error)
}

// Submit creates events one at a time, in order. A failed event is recorded and
// submission carries on with the next one, so the outcomes line up with events.
func Submit(ctx context.Context, logger *slog.Logger, sink Sink, events []models.Event) []models.Outcome {
	outcomes := make([]models.Outcome, 0, len(events))
	for _, event := range events {
		link, err := sink.InsertEvent(ctx, event)
		if err != nil {
			logger.Error("Error creating event", "title", event.Title(), "error", err)
			outcomes = append(outcomes, models.FailedOutcome(event.Title(), err.Error()))
			continue
		}
		outcomes = append(outcomes, models.CreatedOutcome(event.Title(), link))
	}
	return outcomes
}
