package pagination

import (
	"fmt"
	"net/http"
	"strconv"
)

// Params represents the keyset pagination query parameters from an HTTP
// request.
type Params struct {
	Cursor string // opaque token from a previous response's NextCursor, "" for the first page
	Limit  int    // items per page
	Hours  int    // lookback window applied to the sort timestamp
}

// ParseQueryParams parses pagination parameters from the HTTP request query
// string, returning defaults for any parameter that's absent.
//
// Query parameters:
//   - cursor: opaque pagination token
//   - limit: items per page (1..config.MaxLimit)
//   - hours: lookback window in hours (1..config.MaxHours)
func ParseQueryParams(r *http.Request, config Config) (Params, error) {
	params := Params{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  config.DefaultLimit,
		Hours:  config.DefaultHours,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > config.MaxLimit {
			return params, fmt.Errorf("invalid query parameter: limit must be between 1 and %d", config.MaxLimit)
		}
		params.Limit = limit
	}

	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours < 1 || hours > config.MaxHours {
			return params, fmt.Errorf("invalid query parameter: hours must be between 1 and %d", config.MaxHours)
		}
		params.Hours = hours
	}

	return params, nil
}
