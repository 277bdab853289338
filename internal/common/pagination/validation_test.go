package pagination_test

import (
	"testing"

	"kynewsroom/internal/common/pagination"
)

func TestParams_Validate(t *testing.T) {
	t.Parallel()

	config := pagination.Config{DefaultLimit: 30, MaxLimit: 100, DefaultHours: 2, MaxHours: 8760}

	tests := []struct {
		name      string
		params    pagination.Params
		wantError bool
	}{
		{name: "valid params", params: pagination.Params{Limit: 30, Hours: 2}},
		{name: "limit at max", params: pagination.Params{Limit: 100, Hours: 2}},
		{name: "limit at min", params: pagination.Params{Limit: 1, Hours: 2}},
		{name: "invalid limit (zero)", params: pagination.Params{Limit: 0, Hours: 2}, wantError: true},
		{name: "invalid limit (exceeds max)", params: pagination.Params{Limit: 101, Hours: 2}, wantError: true},
		{name: "invalid hours (zero)", params: pagination.Params{Limit: 30, Hours: 0}, wantError: true},
		{name: "invalid hours (exceeds max)", params: pagination.Params{Limit: 30, Hours: 9000}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate(config)
			if tt.wantError && err == nil {
				t.Errorf("Validate() error = nil, wantError = true")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Validate() error = %v, wantError = false", err)
			}
		})
	}
}

func TestParams_WithDefaults(t *testing.T) {
	t.Parallel()

	config := pagination.Config{DefaultLimit: 30, MaxLimit: 100, DefaultHours: 2, MaxHours: 8760}

	tests := []struct {
		name   string
		params pagination.Params
		want   pagination.Params
	}{
		{
			name:   "valid params unchanged",
			params: pagination.Params{Limit: 50, Hours: 6},
			want:   pagination.Params{Limit: 50, Hours: 6},
		},
		{
			name:   "zero limit gets default",
			params: pagination.Params{Limit: 0, Hours: 6},
			want:   pagination.Params{Limit: 30, Hours: 6},
		},
		{
			name:   "limit exceeds max gets capped",
			params: pagination.Params{Limit: 500, Hours: 6},
			want:   pagination.Params{Limit: 100, Hours: 6},
		},
		{
			name:   "zero hours gets default",
			params: pagination.Params{Limit: 50, Hours: 0},
			want:   pagination.Params{Limit: 50, Hours: 2},
		},
		{
			name:   "hours exceeds max gets capped",
			params: pagination.Params{Limit: 50, Hours: 999999},
			want:   pagination.Params{Limit: 50, Hours: 8760},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.params.WithDefaults(config)
			if got.Limit != tt.want.Limit {
				t.Errorf("WithDefaults() Limit = %d, want %d", got.Limit, tt.want.Limit)
			}
			if got.Hours != tt.want.Hours {
				t.Errorf("WithDefaults() Hours = %d, want %d", got.Hours, tt.want.Hours)
			}
		})
	}
}
