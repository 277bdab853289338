package pagination_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"kynewsroom/internal/common/pagination"
)

func TestParseQueryParams(t *testing.T) {
	t.Parallel()

	config := pagination.Config{
		DefaultLimit: 30,
		MaxLimit:     100,
		DefaultHours: 2,
		MaxHours:     24 * 365,
	}

	tests := []struct {
		name      string
		query     string
		want      pagination.Params
		wantError bool
	}{
		{
			name:  "valid parameters",
			query: "limit=50&hours=6&cursor=abc123",
			want:  pagination.Params{Cursor: "abc123", Limit: 50, Hours: 6},
		},
		{
			name:  "no parameters (use defaults)",
			query: "",
			want:  pagination.Params{Limit: 30, Hours: 2},
		},
		{
			name:  "only limit parameter",
			query: "limit=10",
			want:  pagination.Params{Limit: 10, Hours: 2},
		},
		{
			name:      "invalid limit (zero)",
			query:     "limit=0",
			wantError: true,
		},
		{
			name:      "invalid limit (exceeds max)",
			query:     "limit=101",
			wantError: true,
		},
		{
			name:      "invalid limit (non-integer)",
			query:     "limit=xyz",
			wantError: true,
		},
		{
			name:      "invalid hours (zero)",
			query:     "hours=0",
			wantError: true,
		},
		{
			name:      "invalid hours (exceeds max)",
			query:     "hours=999999",
			wantError: true,
		},
		{
			name:  "limit at maximum valid",
			query: "limit=100",
			want:  pagination.Params{Limit: 100, Hours: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			got, err := pagination.ParseQueryParams(req, config)

			if tt.wantError {
				if err == nil {
					t.Errorf("ParseQueryParams() error = nil, wantError = true")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseQueryParams() error = %v, wantError = false", err)
			}
			if got != tt.want {
				t.Errorf("ParseQueryParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
