// Package summarizer provides AI-powered text completion backends used to
// generate article summaries. It includes adapters for Claude (Anthropic)
// and OpenAI with reliability patterns (circuit breaker, retry) and
// Prometheus observability; the word-count protocol that turns a raw
// completion into a bounded, cached summary lives in
// internal/usecase/summarize.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"kynewsroom/internal/resilience/circuitbreaker"
	"kynewsroom/internal/resilience/retry"
)

// ClaudeConfig holds configuration parameters for the Claude text generator.
type ClaudeConfig struct {
	// Model is the Claude API model identifier to use.
	Model string

	// MaxTokens is the maximum number of output tokens for a completion.
	MaxTokens int64

	// Temperature controls sampling randomness; kept low for consistent,
	// fact-bound summaries.
	Temperature float64

	// Timeout is the maximum duration for a single generation call.
	Timeout time.Duration
}

// LoadClaudeConfig loads configuration from environment variables, falling
// back to the defaults the summarization protocol was tuned against.
//
// Environment variables:
//   - SUMMARIZER_MODEL: Claude model identifier (default: claude-3-5-haiku)
func LoadClaudeConfig() ClaudeConfig {
	model := os.Getenv("SUMMARIZER_MODEL")
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}

	return ClaudeConfig{
		Model:       model,
		MaxTokens:   900,
		Temperature: 0.2,
		Timeout:     60 * time.Second,
	}
}

// Claude implements Generator using Anthropic's Claude API. It includes
// circuit breaker and retry logic for improved reliability.
type Claude struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         ClaudeConfig
}

// NewClaude creates a new Claude generator with the given API key.
func NewClaude(apiKey string, config ClaudeConfig) *Claude {
	slog.Info("initialized claude summarizer backend",
		slog.String("model", config.Model),
		slog.Int64("max_tokens", config.MaxTokens))

	return &Claude{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		config:         config,
	}
}

// Generate produces a single completion for prompt, wrapped in retry and
// circuit breaker logic.
func (c *Claude) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doGenerate(ctx, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("claude api circuit breaker open, request rejected",
					slog.String("service", "claude-api"),
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		return "", fmt.Errorf("claude generate failed after retries: %w", retryErr)
	}

	return result, nil
}

func (c *Claude) doGenerate(ctx context.Context, prompt string) (string, error) {
	requestID := uuid.New().String()

	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.Model),
		MaxTokens:   c.config.MaxTokens,
		Temperature: anthropic.Float(c.config.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "claude generation failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("claude api error: %w", err)
	}

	if len(message.Content) == 0 {
		slog.ErrorContext(ctx, "claude api returned empty response",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return "", fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		slog.ErrorContext(ctx, "claude api returned unexpected response type",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	slog.InfoContext(ctx, "claude generation completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration))

	return textBlock.Text, nil
}
