package temporal

import (
	"fmt"
	"os"
	"time"
)

// Context is the reference frame used to resolve relative and past-dated times
// during one extraction call. It is a snapshot and never changes once taken.
type Context struct {
	Reference time.Time      // Current instant, expressed in Location
	Zone      string         // IANA identifier of Location
	Location  *time.Location // Local zone
}

// NewContext builds a Context for the given instant in loc.
func NewContext(now time.Time, loc *time.Location) Context {
	return Context{
		Reference: now.In(loc),
		Zone:      loc.String(),
		Location:  loc,
	}
}

// Provider supplies temporal contexts.
type Provider interface {
	Now() Context
}

// System reads the wall clock and expresses it in a fixed location.
type System struct {
	Location *time.Location
}

// Now returns a snapshot of the current instant.
func (s System) Now() Context {
	return NewContext(time.Now(), s.Location)
}

// Fixed always returns the same context.
type Fixed Context

// Now returns the fixed context.
func (f Fixed) Now() Context {
	return Context(f)
}

// LoadLocation resolves an IANA zone identifier.
// An empty name falls back to $TZ and then to UTC; time.Local is never used because
// its name ("Local") is not something a calendar service accepts.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = os.Getenv("TZ")
	}
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", name, err)
	}
	return loc, nil
}
