// Package summarize turns a raw AI text completion into a cached,
// length-bounded article summary: it owns the cache-hit check, the
// repair-pass retry, the sentence-boundary trim, and the review-queue
// escalation when neither lands the summary in bounds.
package summarize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"kynewsroom/internal/domain/entity"
	"kynewsroom/internal/infra/summarizer"
	"kynewsroom/internal/repository"
)

const (
	minWords = entity.MinSummaryWords
	maxWords = entity.MaxSummaryWords

	// sourceHashChars bounds how much of the article text feeds the cache
	// key; two articles differing only past this point hash identically,
	// which is an acceptable tradeoff against hashing arbitrarily long text.
	sourceHashChars = 20000
)

// Reasons an item lands in the review queue instead of getting a cached
// summary.
const (
	ReasonGenerationFailed = "auto_generated"
	ReasonTooShort         = "summary_too_short"
	ReasonTooLong          = "summary_too_long"
)

// Service implements ingest.Summarizer: cache-or-generate, backed by a
// Generator text-completion backend and the summary/review-queue
// repositories.
type Service struct {
	generator       summarizer.Generator
	summaries       repository.AISummaryRepository
	reviews         repository.ReviewQueueRepository
	model           string
	metricsRecorder summarizer.SummaryMetricsRecorder
}

// NewService creates a Service wired to the given generator and
// repositories. model is recorded on the cached AISummary for provenance.
func NewService(generator summarizer.Generator, summaries repository.AISummaryRepository, reviews repository.ReviewQueueRepository, model string) *Service {
	return &Service{
		generator:       generator,
		summaries:       summaries,
		reviews:         reviews,
		model:           model,
		metricsRecorder: summarizer.NewPrometheusSummaryMetrics(),
	}
}

// Summarize returns a cached summary when the item's content hash still
// matches and the cached summary still meets the word-count bounds;
// otherwise it generates a fresh one, repairing and trimming as needed, and
// falls back to a review-queue entry (returning a nil summary, nil error)
// when neither repair nor trim can land it in bounds.
func (s *Service) Summarize(ctx context.Context, itemID, title, content string) (*entity.AISummary, error) {
	hash := sourceHash(content)

	cached, err := s.summaries.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if cached != nil && cached.SourceHash == hash && cached.WordCountInRange() {
		return cached, nil
	}

	start := time.Now()

	raw, genErr := s.generator.Generate(ctx, buildPrompt(title, content))
	if genErr != nil {
		slog.WarnContext(ctx, "summary generation failed",
			slog.String("item_id", itemID), slog.String("error", genErr.Error()))
		return nil, s.flagForReview(ctx, itemID, ReasonGenerationFailed, genErr.Error())
	}

	summaryText := cleanCompletion(raw)
	words := len(strings.Fields(summaryText))

	if words < minWords || words > maxWords {
		repaired, repairErr := s.generator.Generate(ctx, buildRepairPrompt(title, content, summaryText, words))
		if repairErr == nil {
			candidate := cleanCompletion(repaired)
			if n := len(strings.Fields(candidate)); n >= minWords && n <= maxWords {
				summaryText = candidate
				words = n
			} else if words < minWords && n > words {
				// Still short, but the repair pass at least improved it;
				// keep it and let the in-range check below send it to review.
				summaryText = candidate
				words = n
			}
		}
	}

	if words > maxWords {
		summaryText = trimToSentenceBoundary(summaryText, maxWords)
		words = len(strings.Fields(summaryText))
	}

	duration := time.Since(start)
	s.metricsRecorder.RecordDuration(duration)
	s.metricsRecorder.RecordLength(words)

	inRange := words >= minWords && words <= maxWords
	s.metricsRecorder.RecordCompliance(inRange)

	if !inRange {
		s.metricsRecorder.RecordLimitExceeded()
		reason := ReasonTooShort
		if words > maxWords {
			reason = ReasonTooLong
		}
		note := summaryText
		if genErr := s.flagForReview(ctx, itemID, reason, note); genErr != nil {
			return nil, genErr
		}
		return nil, nil
	}

	summary := &entity.AISummary{
		ItemID:      itemID,
		Summary:     summaryText,
		Model:       s.model,
		SourceHash:  hash,
		GeneratedAt: time.Now(),
	}
	if err := s.summaries.Upsert(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) flagForReview(ctx context.Context, itemID, reason, note string) error {
	entry := &entity.ReviewQueueEntry{
		ItemID: itemID,
		Status: entity.ReviewStatusPending,
		Reason: reason,
		Note:   note,
	}
	return s.reviews.Create(ctx, entry)
}

// sourceHash pins the cache to a prompt version and a bounded prefix of the
// article text, so a prompt change or a re-fetched article with different
// text both invalidate the cached entry.
func sourceHash(content string) string {
	text := content
	if len(text) > sourceHashChars {
		text = text[:sourceHashChars]
	}
	sum := sha256.Sum256([]byte(promptVersion + ":" + text))
	return hex.EncodeToString(sum[:])
}

// cleanCompletion strips a short preamble line the model sometimes prepends
// ("Here is a summary:") before the actual prose.
func cleanCompletion(raw string) string {
	text := strings.TrimSpace(raw)
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) == 2 {
		first := strings.TrimSpace(lines[0])
		if len(first) < 80 && strings.HasSuffix(first, ":") {
			return strings.TrimSpace(lines[1])
		}
	}
	return text
}

// trimToSentenceBoundary cuts text down to at most maxWords words, then
// backs off to the last sentence-ending punctuation within that window so
// the result doesn't end mid-sentence.
func trimToSentenceBoundary(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	truncated := strings.Join(words[:maxWords], " ")

	lastEnd := -1
	for i, r := range truncated {
		if r == '.' || r == '!' || r == '?' {
			lastEnd = i
		}
	}
	if lastEnd == -1 {
		return truncated + "."
	}
	return strings.TrimSpace(truncated[:lastEnd+1])
}
