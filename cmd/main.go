package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"chatcal/internal/ai"
	"chatcal/internal/assistant"
	"chatcal/internal/confirm"
	"chatcal/internal/extract"
	"chatcal/internal/google"
	"chatcal/internal/models"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "chatcal",
		Usage: "Chat with an assistant that turns conversations into calendar events.",
		Commands: []*cli.Command{
			authCommand(),
			calendarsCommand(),
			chatCommand(),
			extractCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Flags: []cli.Flag{googleClientIDFlag, googleClientSecretFlag},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))
			logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(c.String("google-client-id"), c.String("google-client-secret"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			if accountName == "" {
				accountName = "default"
			}
			tokenFile := google.TokenFile(accountName)

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func calendarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendars",
		Usage: "List the calendars available in the configured calendar service.",
		Flags: sinkFlags(),
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))
			sink, err := newSink(c, logger)
			if err != nil {
				return err
			}
			return printCalendars(c.Context, os.Stdout, sink)
		},
	}
}

func chatCommand() *cli.Command {
	flags := append(sinkFlags(), pipelineFlags()...)
	flags = append(flags,
		&cli.StringFlag{Name: "openai-api-key", EnvVars: []string{"OPENAI_API_KEY"}, Usage: "API key for the completion service."},
		&cli.StringFlag{Name: "openai-base-url", EnvVars: []string{"OPENAI_BASE_URL"}, Usage: "Base URL of an OpenAI-compatible API."},
		&cli.StringFlag{Name: "model", Value: ai.DefaultConfig().Model, EnvVars: []string{"OPENAI_MODEL"}, Usage: "Chat model used for replies and extraction."},
		&cli.BoolFlag{Name: "yes", Usage: "Create detected events without asking for confirmation."},
		&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be created without making changes."},
	)

	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive conversation.",
		Flags: flags,
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No events will be created.")
			}

			clock, normalizer, err := newPipeline(c, logger)
			if err != nil {
				return err
			}

			completer, err := ai.NewCompleter(logger, &ai.Config{
				BaseURL: c.String("openai-base-url"),
				APIKey:  c.String("openai-api-key"),
				Model:   c.String("model"),
			})
			if err != nil {
				return fmt.Errorf("failed to create completion client: %w", err)
			}

			sink, err := newSink(c, logger)
			if err != nil {
				return err
			}

			in := bufio.NewReader(os.Stdin)
			var confirmer confirm.Confirmer = confirm.NewPrompt(in, os.Stdout)
			if c.Bool("yes") {
				confirmer = confirm.Auto(true)
			}

			a := assistant.New(logger, assistant.Options{
				Completer:  completer,
				Clock:      clock,
				Normalizer: normalizer,
				Confirmer:  confirmer,
				Sink:       sink,
				DryRun:     c.Bool("dry-run"),
				OnReply: func(reply string) {
					fmt.Printf("Assistant: %s\n", reply)
				},
			})

			fmt.Println("Welcome to the Chat Calendar Assistant!")
			fmt.Println("You can chat normally, and if you mention scheduling, I'll help you create events.")
			fmt.Println("Type 'exit', 'quit', or 'bye' to end the conversation.")
			fmt.Println()

			if err := printCalendars(c.Context, os.Stdout, sink); err != nil {
				logger.Error("Could not list calendars", "error", err)
			}
			fmt.Println()

			return chatLoop(c.Context, in, os.Stdout, a)
		},
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Parse and normalize generated event JSON read from stdin, without calling any service.",
		Flags: pipelineFlags(),
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))
			clock, normalizer, err := newPipeline(c, logger)
			if err != nil {
				return err
			}

			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			candidates := extract.NewParser(logger).Parse(string(raw))
			events, failures := normalizer.Normalize(candidates, clock.Now())
			for _, f := range failures {
				fmt.Fprintf(os.Stderr, "Skipped %q: %v\n", f.Event.Title(), f.Err)
			}

			out := make([]models.CandidateEvent, 0, len(events))
			for _, e := range events {
				out = append(out, e.Candidate())
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

// chatLoop reads operator messages until an exit word or end of input.
func chatLoop(ctx context.Context, in *bufio.Reader, out io.Writer, a *assistant.Assistant) error {
	var transcript models.Transcript
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(out, "You: ")
		line, err := in.ReadString('\n')
		message := strings.TrimSpace(line)
		if err != nil && message == "" {
			fmt.Fprintln(out)
			return nil
		}
		if message == "" {
			continue
		}
		if isExitWord(message) {
			fmt.Fprintln(out, "Assistant: Goodbye!")
			return nil
		}

		var turn assistant.Turn
		turn, transcript = a.Chat(ctx, transcript, message)
		printTurn(out, turn)
	}
}

func isExitWord(message string) bool {
	switch strings.ToLower(message) {
	case "exit", "quit", "bye":
		return true
	default:
		return false
	}
}

func printTurn(out io.Writer, turn assistant.Turn) {
	for _, f := range turn.Failures {
		fmt.Fprintf(out, "Skipped %q: %v\n", f.Event.Title(), f.Err)
	}

	switch {
	case len(turn.Events) == 0:
		fmt.Fprintln(out, "No events detected for scheduling.")
	case turn.Cancelled():
		fmt.Fprintln(out, "Event creation cancelled.")
	case turn.DryRun:
		fmt.Fprintf(out, "Dry run: %d event(s) not created.\n", len(turn.Events))
	default:
		fmt.Fprintln(out, "Scheduling results:")
		for _, o := range turn.Outcomes {
			fmt.Fprintln(out, o.String())
		}
	}
	fmt.Fprintln(out)
}

func printCalendars(ctx context.Context, out io.Writer, lister assistant.Lister) error {
	calendars, err := lister.ListCalendars(ctx)
	if err != nil {
		return fmt.Errorf("an error occurred while listing calendars: %w", err)
	}
	if len(calendars) == 0 {
		fmt.Fprintln(out, "No calendars found.")
		return nil
	}

	fmt.Fprintln(out, "Available calendars:")
	for _, cal := range calendars {
		primary := ""
		if cal.Primary {
			primary = "Primary"
		}
		fmt.Fprintf(out, "%s (%s) %s\n", cal.Summary, cal.ID, primary)
	}
	return nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	default:
		// Chat output shares the terminal, so only errors are shown unless asked.
		logLevel = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
