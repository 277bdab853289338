package entity

import "time"

// MinSummaryWords and MaxSummaryWords bound every auto-generated summary.
const (
	MinSummaryWords = 200
	MaxSummaryWords = 400
)

// AISummary is the cached, length-bound summary produced for an Item.
// SourceHash pins the cache to the exact article text it was generated
// from: a re-fetch that changes the text invalidates the cache entry.
type AISummary struct {
	ItemID      string
	Summary     string
	Model       string
	SourceHash  string
	GeneratedAt time.Time
}

// Validate validates the AISummary entity's required fields.
func (s *AISummary) Validate() error {
	if s.ItemID == "" {
		return &ValidationError{Field: "item_id", Message: "item_id is required"}
	}
	if s.Summary == "" {
		return &ValidationError{Field: "summary", Message: "summary is required"}
	}
	if s.SourceHash == "" {
		return &ValidationError{Field: "source_hash", Message: "source_hash is required"}
	}
	return nil
}

// WordCountInRange reports whether the summary's word count still falls
// within [MinSummaryWords, MaxSummaryWords]. Policy bounds can change after
// a summary was cached, so this is re-checked on every cache read rather
// than only at generation time.
func (s *AISummary) WordCountInRange() bool {
	n := len(splitWords(s.Summary))
	return n >= MinSummaryWords && n <= MaxSummaryWords
}

func splitWords(s string) []string {
	var words []string
	inWord := false
	start := 0
	for i, r := range s {
		isSpace := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if !isSpace && !inWord {
			start = i
			inWord = true
		} else if isSpace && inWord {
			words = append(words, s[start:i])
			inWord = false
		}
	}
	if inWord {
		words = append(words, s[start:])
	}
	return words
}
