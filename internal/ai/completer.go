package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"

	"chatcal/internal/models"
)

// Config holds the completion service configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
	Timeout    time.Duration
	// RetryBase is the first back-off wait; later attempts double it.
	RetryBase time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:      openai.GPT4,
		MaxRetries: 3,
		Timeout:    60 * time.Second,
		RetryBase:  time.Second,
	}
}

// Completer turns a message sequence into one text completion.
type Completer struct {
	client *openai.Client
	config *Config
	logger *slog.Logger
}

// NewCompleter creates a Completer. Unset config values take their defaults.
func NewCompleter(logger *slog.Logger, cfg *Config) (*Completer, error) {
	config := DefaultConfig()
	if cfg != nil {
		config.BaseURL = cfg.BaseURL
		config.APIKey = cfg.APIKey
		if cfg.Model != "" {
			config.Model = cfg.Model
		}
		if cfg.MaxRetries > 0 {
			config.MaxRetries = cfg.MaxRetries
		}
		if cfg.Timeout > 0 {
			config.Timeout = cfg.Timeout
		}
		if cfg.RetryBase > 0 {
			config.RetryBase = cfg.RetryBase
		}
	}
	if config.APIKey == "" {
		return nil, errors.New("API key is required, set OPENAI_API_KEY environment variable")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Completer{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

// Complete performs a chat completion over messages and returns the first choice.
func (c *Completer) Complete(ctx context.Context, messages []models.Message) (string, error) {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	req := openai.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: llmMessages,
	}

	var result string
	err := c.doWithRetry(ctx, func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}

	c.logger.Debug("Completion received", "model", c.config.Model, "length", len(result))
	return result, nil
}

// doWithRetry runs fn with a per-attempt timeout and exponential back-off between attempts.
func (c *Completer) doWithRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < c.config.MaxRetries-1 {
			wait := time.Duration(math.Pow(2, float64(attempt))) * c.config.RetryBase
			c.logger.Debug("Completion request failed, retrying",
				"attempt", attempt+1,
				"wait_time", wait,
				"error", err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}
