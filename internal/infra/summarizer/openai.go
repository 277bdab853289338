package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"kynewsroom/internal/resilience/circuitbreaker"
	"kynewsroom/internal/resilience/retry"
)

// OpenAIConfig holds configuration parameters for the OpenAI text generator.
type OpenAIConfig struct {
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// LoadOpenAIConfig loads configuration from environment variables.
//
// Environment variables:
//   - SUMMARIZER_OPENAI_MODEL: model identifier (default: gpt-4o-mini)
func LoadOpenAIConfig() OpenAIConfig {
	model := os.Getenv("SUMMARIZER_OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4oMini
	}

	return OpenAIConfig{
		Model:       model,
		MaxTokens:   900,
		Temperature: 0.2,
		Timeout:     60 * time.Second,
	}
}

// OpenAI implements Generator using OpenAI's chat completions API. It
// includes circuit breaker and retry logic for improved reliability.
type OpenAI struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         OpenAIConfig
}

// NewOpenAI creates a new OpenAI generator with the given API key.
func NewOpenAI(apiKey string, config OpenAIConfig) *OpenAI {
	slog.Info("initialized openai summarizer backend",
		slog.String("model", config.Model),
		slog.Int("max_tokens", config.MaxTokens))

	return &OpenAI{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		config:         config,
	}
}

// Generate produces a single completion for prompt, wrapped in retry and
// circuit breaker logic.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	var result string

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doGenerate(ctx, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("service", "openai-api"),
					slog.String("state", o.circuitBreaker.State().String()))
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		return "", fmt.Errorf("openai generate failed after retries: %w", retryErr)
	}

	return result, nil
}

func (o *OpenAI) doGenerate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.config.Model,
		MaxTokens:   o.config.MaxTokens,
		Temperature: o.config.Temperature,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "openai generation failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		slog.ErrorContext(ctx, "openai api returned empty response",
			slog.Duration("duration", duration))
		return "", fmt.Errorf("openai api returned empty response")
	}

	slog.InfoContext(ctx, "openai generation completed",
		slog.Duration("duration", duration))

	return resp.Choices[0].Message.Content, nil
}
