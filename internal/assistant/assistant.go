package assistant

import (
	"context"
	"log/slog"

	"chatcal/internal/ai"
	"chatcal/internal/confirm"
	"chatcal/internal/extract"
	"chatcal/internal/models"
	"chatcal/internal/normalize"
	"chatcal/internal/temporal"
)

// FallbackReply is returned to the operator when the completion service fails.
const FallbackReply = "I'm sorry, but I'm having trouble processing your request right now. Can you please try again?"

// Completer is the text-generation service.
type Completer interface {
	Complete(ctx context.Context, messages []models.Message) (string, error)
}

// Turn is everything that happened during one chat exchange.
type Turn struct {
	Reply     string
	Events    []models.Event      // Normalized events detected in the reply
	Failures  []normalize.Failure // Candidates dropped during normalization
	Outcomes  []models.Outcome    // One per event, in order, when creation was attempted
	Confirmed bool
	DryRun    bool
}

// Cancelled reports whether events were detected but the operator declined them.
func (t Turn) Cancelled() bool {
	return len(t.Events) > 0 && !t.Confirmed
}

// Assistant runs chat turns through extraction, confirmation and submission.
type Assistant struct {
	logger     *slog.Logger
	completer  Completer
	clock      temporal.Provider
	parser     *extract.Parser
	normalizer *normalize.Normalizer
	confirmer  confirm.Confirmer
	sink       Sink
	dryRun     bool
	onReply    func(string)
}

// Options configures an Assistant.
type Options struct {
	Completer  Completer
	Clock      temporal.Provider
	Normalizer *normalize.Normalizer
	Confirmer  confirm.Confirmer
	Sink       Sink
	// DryRun logs the events that would be created instead of submitting them.
	DryRun bool
	// OnReply, if set, receives the reply before extraction starts.
	OnReply func(reply string)
}

// New creates an Assistant.
func New(logger *slog.Logger, opts Options) *Assistant {
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = normalize.NewNormalizer(logger)
	}
	return &Assistant{
		logger:     logger,
		completer:  opts.Completer,
		clock:      opts.Clock,
		parser:     extract.NewParser(logger),
		normalizer: normalizer,
		confirmer:  opts.Confirmer,
		sink:       opts.Sink,
		dryRun:     opts.DryRun,
		onReply:    opts.OnReply,
	}
}

// Chat answers userMessage in the context of transcript, schedules any events the
// answer describes, and returns the turn with the transcript extended by this exchange.
// transcript itself is never modified.
func (a *Assistant) Chat(ctx context.Context, transcript models.Transcript, userMessage string) (Turn, models.Transcript) {
	user := models.Message{Role: models.RoleUser, Content: userMessage}

	reply, err := a.completer.Complete(ctx, transcript.With(user))
	if err != nil {
		a.logger.Error("Error in chat with LLM", "error", err)
		reply = FallbackReply
	}
	if a.onReply != nil {
		a.onReply(reply)
	}
	turn := Turn{Reply: reply, DryRun: a.dryRun}
	next := transcript.With(user, models.Message{Role: models.RoleAssistant, Content: reply})
	if err != nil {
		return turn, next
	}

	turn.Events, turn.Failures = a.Extract(ctx, transcript, reply)
	if len(turn.Events) == 0 {
		return turn, next
	}

	turn.Confirmed, err = a.confirmer.Confirm(turn.Events)
	if err != nil {
		a.logger.Error("Confirmation failed", "error", err)
		turn.Confirmed = false
	}
	if !turn.Confirmed {
		a.logger.Info("Event creation cancelled", "count", len(turn.Events))
		return turn, next
	}

	turn.Outcomes = a.Schedule(ctx, turn.Events)
	return turn, next
}

// Extract asks the completion service to describe the events in reply as JSON and
// normalizes what comes back against a single temporal snapshot.
func (a *Assistant) Extract(ctx context.Context, transcript models.Transcript, reply string) ([]models.Event, []normalize.Failure) {
	tctx := a.clock.Now()

	raw, err := a.completer.Complete(ctx, ai.ExtractionMessages(reply, transcript, tctx))
	if err != nil {
		a.logger.Error("Error in extracting calendar events", "error", err)
		return nil, nil
	}
	a.logger.Debug("Extraction response", "content", raw)

	return a.normalizer.Normalize(a.parser.Parse(raw), tctx)
}

// Schedule submits events to the sink, or only logs them in dry-run mode.
func (a *Assistant) Schedule(ctx context.Context, events []models.Event) []models.Outcome {
	if a.dryRun {
		for _, e := range events {
			a.logger.Info("[DRY RUN] Would create event", "title", e.Title(), "start", e.StartTime().DateTime, "end", e.EndTime().DateTime)
		}
		return nil
	}
	return Submit(ctx, a.logger, a.sink, events)
}
