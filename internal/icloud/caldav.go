package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"chatcal/internal/models"
)

const (
	// Endpoint is the iCloud CalDAV server.
	Endpoint = "https://caldav.icloud.com/"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "chatcal/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient writes events to one calendar of a CalDAV server (iCloud by default).
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	endpoint     string
	calendarPath string
	newUID       func() string
}

// NewClient creates a CalDAVClient for iCloud and resolves calendarName to its collection.
func NewClient(ctx context.Context, logger *slog.Logger, username, password, calendarName string) (*CalDAVClient, error) {
	httpClient := &http.Client{Transport: &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}

	c, err := NewClientWithEndpoint(logger, httpClient, Endpoint, "")
	if err != nil {
		return nil, err
	}

	logger.Info("Finding iCloud calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found iCloud calendar", "path", calendarPath)

	return c, nil
}

// NewClientWithEndpoint creates a client against any CalDAV endpoint. calendarPath is the
// collection events are written to; it may be empty when the client only lists calendars.
func NewClientWithEndpoint(logger *slog.Logger, httpClient webdav.HTTPClient, endpoint, calendarPath string) (*CalDAVClient, error) {
	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	return &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     endpoint,
		calendarPath: calendarPath,
		newUID:       GenerateUID,
	}, nil
}

// InsertEvent stores event as a new iCalendar object and returns its URL.
func (c *CalDAVClient) InsertEvent(ctx context.Context, event models.Event) (string, error) {
	if c.calendarPath == "" {
		return "", fmt.Errorf("no calendar selected")
	}
	uid := c.newUID()
	c.logger.Debug("Creating event on CalDAV server", "title", event.Title(), "uid", uid)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//chatcal//EN")
	cal.Children = append(cal.Children, toICal(uid, event, time.Now()))

	eventPath := path.Join(c.calendarPath, uid+".ics")
	writer, err := c.webdavClient.Create(ctx, eventPath)
	if err != nil {
		return "", fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	c.logger.Info("Event created on CalDAV server", "title", event.Title(), "uid", uid)
	return strings.TrimSuffix(c.endpoint, "/") + eventPath, nil
}

// ListCalendars enumerates the calendars in the current user's home set.
func (c *CalDAVClient) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	calendars, err := c.discover(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Calendar, 0, len(calendars))
	for _, cal := range calendars {
		out = append(out, models.Calendar{
			ID:      cal.Path,
			Summary: cal.Name,
			Primary: c.calendarPath != "" && cal.Path == c.calendarPath,
		})
	}
	return out, nil
}

// toICal converts a normalized event to a VEVENT component.
func toICal(uid string, event models.Event, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, event.Title())
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.Start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.End)

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	return ve
}

// findCalendar returns the collection path of the calendar named name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	calendars, err := c.discover(ctx)
	if err != nil {
		return "", err
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

func (c *CalDAVClient) discover(ctx context.Context) ([]caldav.Calendar, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendars: %w", err)
	}
	return calendars, nil
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
