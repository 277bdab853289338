package pagination

// Metadata contains keyset pagination metadata included in API responses.
// There's no total/page count in keyset pagination: NextCursor is nil once
// the caller has reached the end of the result set.
type Metadata struct {
	NextCursor *string `json:"nextCursor"`
	Limit      int     `json:"limit"`
}
