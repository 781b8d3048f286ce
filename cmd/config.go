package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"chatcal/internal/assistant"
	"chatcal/internal/google"
	"chatcal/internal/icloud"
	"chatcal/internal/normalize"
	"chatcal/internal/temporal"
)

// calendarService is a sink that can also enumerate its calendars.
type calendarService interface {
	assistant.Sink
	assistant.Lister
}

var (
	googleClientIDFlag = &cli.StringFlag{
		Name:    "google-client-id",
		EnvVars: []string{"GOOGLE_CLIENT_ID"},
		Usage:   "OAuth client ID; credentials.json is used when unset.",
	}
	googleClientSecretFlag = &cli.StringFlag{
		Name:    "google-client-secret",
		EnvVars: []string{"GOOGLE_CLIENT_SECRET"},
		Usage:   "OAuth client secret.",
	}
)

func sinkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "sink", Value: "google", EnvVars: []string{"CALENDAR_SINK"}, Usage: "Calendar service to write to: google or icloud."},
		googleClientIDFlag,
		googleClientSecretFlag,
		&cli.StringFlag{Name: "account", EnvVars: []string{"GOOGLE_ACCOUNT"}, Usage: "Name given to the account during auth; optional when only one is stored."},
		&cli.StringFlag{Name: "calendar-id", Value: google.PrimaryCalendarID, EnvVars: []string{"GOOGLE_CALENDAR_ID"}, Usage: "Google calendar events are created in."},
		&cli.StringFlag{Name: "icloud-username", EnvVars: []string{"ICLOUD_USERNAME"}},
		&cli.StringFlag{Name: "icloud-password", EnvVars: []string{"ICLOUD_APP_SPECIFIC_PASSWORD"}, Usage: "App-specific password."},
		&cli.StringFlag{Name: "icloud-calendar", EnvVars: []string{"ICLOUD_CALENDAR_NAME"}, Usage: "iCloud calendar events are created in."},
	}
}

func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "timezone", EnvVars: []string{"PRIMARY_TIMEZONE"}, Usage: "IANA zone events are resolved in; defaults to $TZ, then UTC."},
		&cli.StringSliceFlag{Name: "weekdays", EnvVars: []string{"ASSISTANT_WEEKDAYS"}, Usage: "Weekday names that move past events to that weekday; all seven when unset."},
	}
}

// newPipeline builds the temporal context provider and normalizer from flags.
func newPipeline(c *cli.Context, logger *slog.Logger) (temporal.Provider, *normalize.Normalizer, error) {
	loc, err := temporal.LoadLocation(c.String("timezone"))
	if err != nil {
		return nil, nil, err
	}

	rules, err := normalize.ParseWeekdayRules(c.StringSlice("weekdays"))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid --weekdays: %w", err)
	}

	logger.Debug("Pipeline configured", "timezone", loc.String(), "weekday_rules", len(rules))
	return temporal.System{Location: loc}, normalize.NewNormalizer(logger, rules...), nil
}

// newSink connects to the calendar service selected by --sink.
func newSink(c *cli.Context, logger *slog.Logger) (calendarService, error) {
	switch c.String("sink") {
	case "google":
		account, err := resolveAccount(c.String("account"))
		if err != nil {
			return nil, err
		}
		client, err := google.NewClient(c.Context, logger, c.String("google-client-id"), c.String("google-client-secret"), account, c.String("calendar-id"))
		if err != nil {
			return nil, fmt.Errorf("failed to create google client for account %s: %w", account, err)
		}
		return client, nil
	case "icloud":
		client, err := icloud.NewClient(c.Context, logger, c.String("icloud-username"), c.String("icloud-password"), c.String("icloud-calendar"))
		if err != nil {
			return nil, fmt.Errorf("failed to create icloud client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown sink '%s', expected google or icloud", c.String("sink"))
	}
}

// resolveAccount picks the stored Google account to use.
func resolveAccount(account string) (string, error) {
	if account != "" {
		return account, nil
	}
	accounts, err := google.GetTokenAccounts(".")
	if err != nil {
		return "", fmt.Errorf("could not find any google accounts, did you run auth command? %w", err)
	}
	switch len(accounts) {
	case 0:
		return "", fmt.Errorf("no google accounts found. Run the 'auth' command first")
	case 1:
		return accounts[0], nil
	default:
		return "", fmt.Errorf("several google accounts found %v, choose one with --account", accounts)
	}
}
