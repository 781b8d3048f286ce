package normalize

import (
	"fmt"
	"strings"
	"time"
)

// ProjectionRule decides how far a past-dated event moves on each projection step.
type ProjectionRule interface {
	// Days returns the number of calendar days to advance an event starting at start.
	Days(start time.Time) int
	String() string
}

// WeekdayRule moves an event to the next occurrence of a weekday.
// It applies to events whose summary mentions Name.
type WeekdayRule struct {
	Name string
	Day  time.Weekday
}

// Days returns the offset to the next Day strictly after start's weekday; a start
// that already falls on Day moves a full week.
func (r WeekdayRule) Days(start time.Time) int {
	offset := (int(r.Day) - int(start.Weekday()) + 7) % 7
	if offset <= 0 {
		offset += 7
	}
	return offset
}

func (r WeekdayRule) String() string {
	return "next " + r.Name
}

// DayStepRule moves an event one calendar day at a time.
type DayStepRule struct{}

// Days always returns 1.
func (DayStepRule) Days(time.Time) int {
	return 1
}

func (DayStepRule) String() string {
	return "next day"
}

// DefaultWeekdayRules recognizes every English weekday name.
func DefaultWeekdayRules() []WeekdayRule {
	rules := make([]WeekdayRule, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		rules = append(rules, WeekdayRule{Name: d.String(), Day: d})
	}
	return rules
}

// ParseWeekdayRules builds rules from weekday names such as "friday" or "Mon".
// Names are matched against summaries in the order given.
func ParseWeekdayRules(names []string) ([]WeekdayRule, error) {
	var rules []WeekdayRule
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		day, err := parseWeekday(name)
		if err != nil {
			return nil, err
		}
		rules = append(rules, WeekdayRule{Name: day.String(), Day: day})
	}
	return rules, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	lower := strings.ToLower(name)
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if lower == full || (len(lower) >= 3 && strings.HasPrefix(full, lower)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday '%s'", name)
}
