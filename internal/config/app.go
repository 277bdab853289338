package config

import (
	"fmt"
	"strings"
	"time"
)

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the response-cache/rate-limiter Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MediaStoreConfig holds the S3-compatible object storage settings for the
// hero-image mirror.
type MediaStoreConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicURLBase   string
}

// CacheConfig holds the read-path response-cache settings.
type CacheConfig struct {
	TTL   time.Duration
	Stale time.Duration
}

// RateLimitConfig holds the per-bucket rate-limit budgets and the bot-score
// gate. Buckets mirror the three trust tiers the API distinguishes: plain
// reads, mutating/write requests, and admin paths.
type RateLimitConfig struct {
	ReadPerMinute  int
	WritePerMinute int
	AdminPerMinute int
	// BotScoreMin is a Cloudflare-style 0-99 score; requests scoring below
	// it on a guarded path (admin, non-GET, open-proxy) are rejected.
	BotScoreMin int
}

// AdminAuthConfig holds the admin/editor authentication collaborator stub
// settings: a static bearer token plus allow-lists of admin/editor emails.
type AdminAuthConfig struct {
	Token        string
	AdminEmails  []string
	EditorEmails []string
}

// RetentionConfig holds the bounded-retention windows for operational data.
type RetentionConfig struct {
	LogTTL         time.Duration
	ErrorEventTTL  time.Duration
}

// AppConfig aggregates every environment-driven setting the worker and API
// processes share.
type AppConfig struct {
	Database    DatabaseConfig
	Redis       RedisConfig
	MediaStore  MediaStoreConfig
	Cache       CacheConfig
	RateLimit   RateLimitConfig
	AdminAuth   AdminAuthConfig
	Retention   RetentionConfig
}

// LoadAppConfig loads the shared application configuration from environment
// variables, following the same read-with-default idiom as LoadSummarizerConfig.
func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Database: DatabaseConfig{
			DSN:             getEnvOrDefault("DATABASE_URL", "postgres://localhost:5432/kynewsroom?sslmode=disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		MediaStore: MediaStoreConfig{
			Bucket:          getEnvOrDefault("MEDIA_BUCKET", "kynewsroom-media"),
			Region:          getEnvOrDefault("MEDIA_REGION", "us-east-2"),
			Endpoint:        getEnvOrDefault("MEDIA_ENDPOINT", ""),
			AccessKeyID:     getEnvOrDefault("MEDIA_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnvOrDefault("MEDIA_SECRET_ACCESS_KEY", ""),
			PublicURLBase:   getEnvOrDefault("MEDIA_PUBLIC_URL_BASE", ""),
		},
		Cache: CacheConfig{
			TTL:   getEnvDuration("API_CACHE_TTL_SECONDS", 60*time.Second),
			Stale: getEnvDuration("API_CACHE_STALE_SECONDS", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			ReadPerMinute:  getEnvInt("RATE_LIMIT_READ_PER_MIN", 240),
			WritePerMinute: getEnvInt("RATE_LIMIT_WRITE_PER_MIN", 60),
			AdminPerMinute: getEnvInt("RATE_LIMIT_ADMIN_PER_MIN", 90),
			BotScoreMin:    getEnvInt("BOT_SCORE_MIN", 18),
		},
		AdminAuth: AdminAuthConfig{
			Token:        getEnvOrDefault("ADMIN_TOKEN", ""),
			AdminEmails:  splitCSV(getEnvOrDefault("ADMIN_EMAILS", "")),
			EditorEmails: splitCSV(getEnvOrDefault("EDITOR_EMAILS", "")),
		},
		Retention: RetentionConfig{
			LogTTL:        getEnvDuration("LOG_TTL_SECONDS", 7*24*time.Hour),
			ErrorEventTTL: time.Duration(getEnvInt("ERROR_EVENT_TTL_DAYS", 30)) * 24 * time.Hour,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration correctness.
func (c *AppConfig) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL cannot be empty")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("API_CACHE_TTL_SECONDS must be positive")
	}
	if c.RateLimit.ReadPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_READ_PER_MIN must be positive")
	}
	if c.RateLimit.WritePerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_WRITE_PER_MIN must be positive")
	}
	if c.RateLimit.AdminPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_ADMIN_PER_MIN must be positive")
	}
	if c.RateLimit.BotScoreMin < 0 || c.RateLimit.BotScoreMin > 99 {
		return fmt.Errorf("BOT_SCORE_MIN must be between 0 and 99")
	}
	return nil
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
