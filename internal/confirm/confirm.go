package confirm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"chatcal/internal/models"
)

// Confirmer decides whether normalized events may be created.
type Confirmer interface {
	Confirm(events []models.Event) (bool, error)
}

// Prompt asks an operator on a terminal-like reader/writer pair.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt creates a Prompt reading answers from in and writing the listing to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

// Confirm lists the events with their start and duration and waits for an answer.
// Only "yes" or "y" proceed; end of input counts as a refusal.
func (p *Prompt) Confirm(events []models.Event) (bool, error) {
	fmt.Fprintf(p.out, "\nDetected %d event(s) to schedule. The following events will be created:\n", len(events))
	for _, e := range events {
		fmt.Fprintf(p.out, "- %s on %s for %s\n", e.Title(), e.StartTime().DateTime, FormatDuration(e.Duration()))
	}
	fmt.Fprint(p.out, "Do you want to create these events? (yes/no): ")

	answer, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return IsAffirmative(answer), nil
}

// IsAffirmative reports whether an answer means yes.
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y":
		return true
	default:
		return false
	}
}

// Auto answers every confirmation with a fixed decision.
type Auto bool

// Confirm returns the fixed decision.
func (a Auto) Confirm([]models.Event) (bool, error) {
	return bool(a), nil
}

// FormatDuration renders d as whole hours and remaining whole minutes, truncating.
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%s%d hours and %d minutes", sign, hours, minutes)
}
