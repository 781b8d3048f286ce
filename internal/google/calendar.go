package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"chatcal/internal/models"
)

const (
	credentialsFile = "credentials.json"

	// PrimaryCalendarID addresses the account's main calendar.
	PrimaryCalendarID = "primary"
)

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service    *calendar.Service
	logger     *slog.Logger
	calendarID string
}

// NewClient creates a new Google Calendar client for the given account's stored token.
// Events are inserted into calendarID, or the primary calendar when it is empty.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName, calendarID string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := TokenFile(accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	return NewClientWithHTTP(ctx, logger, config.Client(ctx, token), calendarID)
}

// NewClientWithHTTP creates a client over an already authenticated HTTP client.
// Extra options are passed to the Calendar service, e.g. option.WithEndpoint.
func NewClientWithHTTP(ctx context.Context, logger *slog.Logger, client *http.Client, calendarID string, opts ...option.ClientOption) (*CalendarClient, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = PrimaryCalendarID
	}
	return &CalendarClient{service: service, logger: logger, calendarID: calendarID}, nil
}

// InsertEvent creates event in the configured calendar and returns its htmlLink.
func (c *CalendarClient) InsertEvent(ctx context.Context, event models.Event) (string, error) {
	body := toGoogleEvent(event)
	c.logger.Debug("Attempting to create event", "calendarID", c.calendarID, "title", event.Title(), "start", body.Start.DateTime)

	created, err := c.service.Events.Insert(c.calendarID, body).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}

	c.logger.Info("Event created in Google Calendar", "title", event.Title(), "id", created.Id)
	return created.HtmlLink, nil
}

// ListCalendars enumerates the calendars visible to the authenticated account.
func (c *CalendarClient) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	list, err := c.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	calendars := make([]models.Calendar, 0, len(list.Items))
	for _, item := range list.Items {
		calendars = append(calendars, models.Calendar{
			ID:      item.Id,
			Summary: item.Summary,
			Primary: item.Primary,
		})
	}
	return calendars, nil
}

// toGoogleEvent converts a normalized event to the Calendar API body.
// No calendarId is carried in the body; the calendar is addressed by the request path.
func toGoogleEvent(event models.Event) *calendar.Event {
	start, end := event.StartTime(), event.EndTime()
	return &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start:       &calendar.EventDateTime{DateTime: start.DateTime, TimeZone: start.TimeZone},
		End:         &calendar.EventDateTime{DateTime: end.DateTime, TimeZone: end.TimeZone},
	}
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the working directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// TokenFile names the token file stored for an account.
func TokenFile(accountName string) string {
	return "token-" + accountName + ".json"
}

// SaveToken saves a token to a file path, readable only by the owner.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// GetTokenAccounts lists the accounts that have a token file in dir.
func GetTokenAccounts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
