// Package pagination provides the keyset-pagination framework shared by the
// read-path item listing and search endpoints.
package pagination

import (
	"os"
	"strconv"
)

// Config holds pagination configuration settings. These values can be
// loaded from environment variables or config files.
type Config struct {
	DefaultLimit int // Default items per page
	MaxLimit     int // Maximum allowed items per page
	DefaultHours int // Default lookback window, in hours
	MaxHours     int // Maximum lookback window, in hours
}

// DefaultConfig returns the default pagination configuration: limit=30
// (max 100), hours=2 (max 24*365, i.e. one year).
func DefaultConfig() Config {
	return Config{
		DefaultLimit: 30,
		MaxLimit:     100,
		DefaultHours: 2,
		MaxHours:     24 * 365,
	}
}

// LoadFromEnv loads pagination config from environment variables, falling
// back to DefaultConfig() values.
//
// Supported environment variables:
//   - PAGINATION_DEFAULT_LIMIT
//   - PAGINATION_MAX_LIMIT
//   - PAGINATION_DEFAULT_HOURS
//   - PAGINATION_MAX_HOURS
func LoadFromEnv() Config {
	d := DefaultConfig()
	return Config{
		DefaultLimit: getEnvAsInt("PAGINATION_DEFAULT_LIMIT", d.DefaultLimit),
		MaxLimit:     getEnvAsInt("PAGINATION_MAX_LIMIT", d.MaxLimit),
		DefaultHours: getEnvAsInt("PAGINATION_DEFAULT_HOURS", d.DefaultHours),
		MaxHours:     getEnvAsInt("PAGINATION_MAX_HOURS", d.MaxHours),
	}
}

// getEnvAsInt retrieves an environment variable and parses it as an integer.
// Returns the default value if the variable is not set or cannot be parsed.
func getEnvAsInt(key string, defaultValue int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}
