package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// SummarizerConfig holds configuration for the AI summarization integration.
type SummarizerConfig struct {
	// Backend selects which summarizer implementation is used.
	// Valid values: "claude", "openai". Default: "claude".
	Backend string

	// Model is the backend-specific model identifier.
	Model string

	// Enabled controls whether summarization runs at all. When false, items
	// are inserted without a summary and queued for manual review.
	Enabled bool

	// RequestTimeout bounds a single summarize call.
	RequestTimeout time.Duration

	// MinWords/MaxWords bound the accepted summary length.
	MinWords int
	MaxWords int

	// RepairAttempts is how many times the summarizer retries a
	// too-short/too-long summary with a corrective follow-up prompt before
	// giving up and routing the item to the review queue.
	RepairAttempts int

	// SummaryCacheTTL controls how long a generated summary is considered
	// fresh for a given content hash before regeneration is allowed.
	SummaryCacheTTL time.Duration

	CircuitBreaker CircuitBreakerConfig
	Observability  ObservabilityConfig
}

// ObservabilityConfig holds logging and tracing settings.
type ObservabilityConfig struct {
	EnableTracing   bool
	TracingEndpoint string
	LogLevel        string
	EnableMetrics   bool
}

// CircuitBreakerConfig for AI service resilience.
type CircuitBreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// LoadSummarizerConfig loads summarizer configuration from environment
// variables, returning defaults for anything unset.
func LoadSummarizerConfig() (*SummarizerConfig, error) {
	cfg := &SummarizerConfig{
		Backend:         getEnvOrDefault("SUMMARIZER_TYPE", "claude"),
		Model:           getEnvOrDefault("AI_MODEL", "claude-3-5-sonnet-latest"),
		Enabled:         getEnvBool("SUMMARIZER_ENABLED", true),
		RequestTimeout:  getEnvDuration("SUMMARIZER_TIMEOUT", 30*time.Second),
		MinWords:        getEnvInt("SUMMARY_MIN_WORDS", 200),
		MaxWords:        getEnvInt("SUMMARY_MAX_WORDS", 400),
		RepairAttempts:  getEnvInt("SUMMARY_REPAIR_ATTEMPTS", 1),
		SummaryCacheTTL: getEnvDuration("SUMMARY_CACHE_TTL_SECONDS", 24*time.Hour),
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      uint32(getEnvInt("AI_CB_MAX_REQUESTS", 3)),
			Interval:         getEnvDuration("AI_CB_INTERVAL", 10*time.Second),
			Timeout:          getEnvDuration("AI_CB_TIMEOUT", 30*time.Second),
			FailureThreshold: 0.6,
			MinRequests:      5,
		},
		Observability: ObservabilityConfig{
			EnableTracing:   getEnvBool("AI_TRACING_ENABLED", false),
			TracingEndpoint: getEnvOrDefault("AI_TRACING_ENDPOINT", "localhost:4317"),
			LogLevel:        getEnvOrDefault("AI_LOG_LEVEL", "info"),
			EnableMetrics:   getEnvBool("AI_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid summarizer configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration correctness.
func (c *SummarizerConfig) Validate() error {
	if c.Backend != "claude" && c.Backend != "openai" {
		return fmt.Errorf("SUMMARIZER_TYPE must be 'claude' or 'openai', got %q", c.Backend)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("SUMMARIZER_TIMEOUT must be positive")
	}

	if c.MinWords <= 0 || c.MaxWords <= c.MinWords {
		return fmt.Errorf("SUMMARY_MIN_WORDS/SUMMARY_MAX_WORDS must form a positive range")
	}

	if c.RepairAttempts < 0 || c.RepairAttempts > 5 {
		return fmt.Errorf("SUMMARY_REPAIR_ATTEMPTS must be between 0 and 5")
	}

	if c.SummaryCacheTTL <= 0 {
		return fmt.Errorf("SUMMARY_CACHE_TTL_SECONDS must be positive")
	}

	if c.CircuitBreaker.MaxRequests == 0 {
		return fmt.Errorf("AI_CB_MAX_REQUESTS must be positive")
	}

	if c.CircuitBreaker.Interval <= 0 {
		return fmt.Errorf("AI_CB_INTERVAL must be positive")
	}

	if c.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("AI_CB_TIMEOUT must be positive")
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool parses boolean environment variable with default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt parses integer environment variable with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration parses duration environment variable with default.
// Supports formats like "30s", "1m", "2h".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
