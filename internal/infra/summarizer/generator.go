package summarizer

import "context"

// Generator produces a raw AI text completion from a single prompt. It knows
// nothing about word-count bounds, caching, or the repair pass — that
// protocol lives one layer up, in internal/usecase/summarize, so the same
// orchestration logic runs unchanged whichever backend is configured.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
