package summarize

import "fmt"

// promptVersion pins the cache key (see sourceHash) to the exact wording of
// the prompt: changing it below invalidates every cached summary on next
// read, since the source hash will no longer match.
const promptVersion = "v1"

const basePrompt = `Summarize the following news article in plain English prose, with no bullet points, headings, or markdown formatting. Write between %d and %d words. Do not invent facts, quotes, or figures that are not present in the article. If the article lacks enough detail to reach %d words, summarize what is there as thoroughly as possible rather than padding with generic statements.

Title: %s

Article:
%s`

const repairPrompt = `Your previous summary did not meet the required length. Rewrite it to fall between %d and %d words, in plain English prose with no bullet points or headings. Cover more of the article's detail to reach the minimum length, but do not invent facts, quotes, or figures that are not present in the article.

Title: %s

Article:
%s

Previous attempt (%d words):
%s`

func buildPrompt(title, content string) string {
	return fmt.Sprintf(basePrompt, minWords, maxWords, minWords, title, content)
}

func buildRepairPrompt(title, content, prior string, priorWords int) string {
	return fmt.Sprintf(repairPrompt, minWords, maxWords, title, content, priorWords, prior)
}
