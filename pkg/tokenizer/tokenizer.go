// Package tokenizer estimates LLM token counts for prompt budgeting.
package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// EstimateTokens provides a rough token count estimate.
// Uses the heuristic of ~4 characters per token for English text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	chars := utf8.RuneCountInString(text)

	wordEstimate := int(float64(words) * 1.3) // ~1.3 tokens per word
	charEstimate := chars / 4                 // ~4 chars per token

	return (wordEstimate + charEstimate) / 2
}

// TruncateToTokenBudget truncates text to approximately fit within a token
// budget, cutting at a word boundary when one is close.
func TruncateToTokenBudget(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if EstimateTokens(text) <= budget {
		return text
	}

	runes := []rune(text)
	maxChars := budget * 4
	if maxChars >= len(runes) {
		return text
	}

	truncated := string(runes[:maxChars])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > len(truncated)/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}

// JoinWithBudget joins items with sep until the next one would exceed the
// budget. It returns the joined string and how many items fit.
func JoinWithBudget(items []string, sep string, budget int) (string, int) {
	if budget <= 0 || len(items) == 0 {
		return "", 0
	}

	var b strings.Builder
	used, count := 0, 0
	sepTokens := EstimateTokens(sep) + 1
	for _, it := range items {
		cost := EstimateTokens(it) + sepTokens
		if used+cost > budget {
			break
		}
		if count > 0 {
			b.WriteString(sep)
		}
		b.WriteString(it)
		used += cost
		count++
	}
	return b.String(), count
}
