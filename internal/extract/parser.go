package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"chatcal/internal/models"
)

// ErrDecode reports generated text that is not a JSON object or array of objects.
var ErrDecode = errors.New("extraction decode error")

var (
	openingFence = regexp.MustCompile("^```[\\w+-]*")
	closingFence = regexp.MustCompile("```$")
)

// Parser decodes candidate events out of completion text.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a Parser that reports decode failures to logger.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// StripFences removes a leading Markdown fence marker, whatever its language tag,
// and a trailing one.
func StripFences(raw string) string {
	s := openingFence.ReplaceAllString(strings.TrimSpace(raw), "")
	s = closingFence.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.TrimSpace(s)
}

// Parse returns the candidate events in raw. It never fails: text that cannot be
// decoded is logged and yields no events.
func (p *Parser) Parse(raw string) []models.CandidateEvent {
	cleaned := StripFences(raw)
	events, err := Decode(cleaned)
	if err != nil {
		p.logger.Error("Failed to parse completion as events", "error", err, "content", cleaned)
		return nil
	}
	p.logger.Debug("Decoded candidate events", "count", len(events))
	return events
}

// Decode strictly decodes fence-free text as either one event object or a list of them.
// Each object is decoded on its own: one with a wrongly typed field comes back with
// DecodeErr set instead of failing its siblings.
func Decode(text string) ([]models.CandidateEvent, error) {
	data := bytes.TrimSpace([]byte(text))
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrDecode)
	}

	switch data[0] {
	case '{':
		return []models.CandidateEvent{decodeEvent(data)}, nil
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(data, &elements); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		events := make([]models.CandidateEvent, 0, len(elements))
		for i, element := range elements {
			element = bytes.TrimSpace(element)
			if len(element) == 0 || element[0] != '{' {
				return nil, fmt.Errorf("%w: element %d is not an object", ErrDecode, i)
			}
			events = append(events, decodeEvent(element))
		}
		return events, nil
	default:
		return nil, fmt.Errorf("%w: unexpected JSON structure %s", ErrDecode, data)
	}
}

// decodeEvent decodes one JSON object. encoding/json keeps going past a type
// mismatch, so whatever did decode stays on the returned candidate.
func decodeEvent(data []byte) models.CandidateEvent {
	var event models.CandidateEvent
	if err := json.Unmarshal(data, &event); err != nil {
		event.DecodeErr = fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return event
}
