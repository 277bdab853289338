package http

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"kynewsroom/pkg/ratelimit"
)

// DefaultCleanupInterval is the default cleanup sweep interval.
const DefaultCleanupInterval = 5 * time.Minute

// StartRateLimitCleanup starts a background goroutine that periodically
// prunes expired entries from a rate limit store.
//
// Both InMemoryRateLimitStore and RedisRateLimitStore already evict expired
// entries lazily on read (and, for Redis, via per-key TTL), so this sweep is
// a safety net for keys that see no further traffic after being rate
// limited — without it they'd sit in memory/Redis until their own
// mechanism catches up. The cleanup runs in a loop with the specified
// interval and stops gracefully when the context is cancelled (e.g., during
// server shutdown).
//
// Parameters:
//   - ctx: Context for cancellation (typically server's context)
//   - store: The rate limit store to clean up
//   - interval: How often to run cleanup (e.g., 5 minutes)
//   - windowDuration: The rate limit window duration for calculating cutoff
//   - limiterType: Type of rate limiter for logging (e.g., "read", "write", "admin")
func StartRateLimitCleanup(
	ctx context.Context,
	store ratelimit.RateLimitStore,
	interval time.Duration,
	windowDuration time.Duration,
	limiterType string,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("rate limit cleanup started",
		slog.String("limiter_type", limiterType),
		slog.Duration("interval", interval),
		slog.Duration("window_duration", windowDuration))

	for {
		select {
		case <-ctx.Done():
			slog.Info("rate limit cleanup stopped",
				slog.String("limiter_type", limiterType))
			return

		case <-ticker.C:
			runCleanupPass(ctx, store, windowDuration, limiterType)
		}
	}
}

func runCleanupPass(ctx context.Context, store ratelimit.RateLimitStore, windowDuration time.Duration, limiterType string) {
	// 2x window so timestamps that are still relevant to a concurrent
	// sliding-window check are never pruned out from under it.
	cutoff := time.Now().Add(-2 * windowDuration)

	activeKeysBefore, err := store.KeyCount(ctx)
	if err != nil {
		slog.Error("failed to get key count before cleanup",
			slog.String("limiter_type", limiterType),
			slog.Any("error", err))
		return
	}

	if err := store.Cleanup(ctx, cutoff); err != nil {
		slog.Error("rate limit cleanup failed",
			slog.String("limiter_type", limiterType),
			slog.Any("error", err))
		return
	}

	activeKeysAfter, err := store.KeyCount(ctx)
	if err != nil {
		slog.Error("failed to get key count after cleanup",
			slog.String("limiter_type", limiterType),
			slog.Any("error", err))
		return
	}

	slog.Debug("rate limit cleanup completed",
		slog.String("limiter_type", limiterType),
		slog.Int("active_keys_before", activeKeysBefore),
		slog.Int("active_keys_after", activeKeysAfter),
		slog.Int("keys_removed", activeKeysBefore-activeKeysAfter),
		slog.Time("cutoff_time", cutoff))
}

// CleanupConfig holds configuration for rate limit cleanup.
type CleanupConfig struct {
	// Interval specifies how often to run cleanup.
	// Default: 5 minutes
	Interval time.Duration
}

// LoadCleanupConfigFromEnv loads cleanup configuration from environment variables.
//
// Environment variables:
//   - RATELIMIT_CLEANUP_INTERVAL_SECONDS: Cleanup interval in seconds
//     Default: 300 (5 minutes)
//
// If parsing fails or the value is invalid, the default is used instead of failing.
func LoadCleanupConfigFromEnv() CleanupConfig {
	cfg := CleanupConfig{Interval: DefaultCleanupInterval}

	if v := os.Getenv("RATELIMIT_CLEANUP_INTERVAL_SECONDS"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			cfg.Interval = time.Duration(seconds) * time.Second
		}
	}

	return cfg
}
