package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PaginationStrategy defines an interface for different pagination
// strategies, so handler/usecase code doesn't need to know the on-wire
// cursor encoding.
type PaginationStrategy interface {
	// CalculateQuery decodes the request's opaque cursor into query
	// parameters.
	CalculateQuery(params Params) (QueryParams, error)

	// BuildMetadata constructs the response pagination metadata from the
	// last item returned (nil last means the page came back empty, so
	// there's nothing further to page through).
	BuildMetadata(params Params, lastSortTime time.Time, lastID string, hasMore bool) Metadata
}

// QueryParams represents the calculated query parameters for a keyset
// database query.
type QueryParams struct {
	Limit  int
	Cursor *Cursor // decoded from Params.Cursor; nil means start from the newest item
}

// Cursor is the decoded form of an opaque pagination token: items
// sorted past SortTime/ID, in the query's sort order, come next.
type Cursor struct {
	SortTime time.Time
	ID       string
}

// CursorStrategy implements keyset pagination with an opaque, base64
// "sortTime|id" token, the only strategy this package wires into production
// routes.
type CursorStrategy struct{}

// CalculateQuery decodes params.Cursor, if present.
func (s CursorStrategy) CalculateQuery(params Params) (QueryParams, error) {
	qp := QueryParams{Limit: params.Limit}
	if params.Cursor == "" {
		return qp, nil
	}
	cursor, err := DecodeCursor(params.Cursor)
	if err != nil {
		return qp, err
	}
	qp.Cursor = cursor
	return qp, nil
}

// BuildMetadata encodes the last item's sort key as the next cursor, or
// leaves NextCursor nil when the caller reports no further results.
func (s CursorStrategy) BuildMetadata(params Params, lastSortTime time.Time, lastID string, hasMore bool) Metadata {
	md := Metadata{Limit: params.Limit}
	if hasMore {
		token := EncodeCursor(lastSortTime, lastID)
		md.NextCursor = &token
	}
	return md
}

// EncodeCursor builds the opaque pagination token for an item's sort
// timestamp and id: base64(unixNano|id).
func EncodeCursor(sortTime time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", sortTime.UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid cursor")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	return &Cursor{SortTime: time.Unix(0, nanos).UTC(), ID: parts[1]}, nil
}
