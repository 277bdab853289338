package pagination

import "fmt"

// Validate validates pagination parameters against the configuration.
func (p Params) Validate(config Config) error {
	if p.Limit < 1 || p.Limit > config.MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d", config.MaxLimit)
	}
	if p.Hours < 1 || p.Hours > config.MaxHours {
		return fmt.Errorf("hours must be between 1 and %d", config.MaxHours)
	}
	return nil
}

// WithDefaults applies default values from config to Params.
//
// Rules:
//   - If limit <= 0, set to config.DefaultLimit
//   - If limit > config.MaxLimit, cap to config.MaxLimit
//   - If hours <= 0, set to config.DefaultHours
//   - If hours > config.MaxHours, cap to config.MaxHours
func (p Params) WithDefaults(config Config) Params {
	if p.Limit <= 0 {
		p.Limit = config.DefaultLimit
	}
	if p.Limit > config.MaxLimit {
		p.Limit = config.MaxLimit
	}
	if p.Hours <= 0 {
		p.Hours = config.DefaultHours
	}
	if p.Hours > config.MaxHours {
		p.Hours = config.MaxHours
	}
	return p
}
