package extraction

import (
	"strings"
	"unicode/utf8"
)

// charsPerToken is the rough character-to-token ratio used for budgeting.
const charsPerToken = 4

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}

// truncateToBudget trims text so its estimated token count fits maxTokens.
// The cut lands on the last sentence boundary that fits, so re-running the
// extraction on the same transcript always sends identical input. If not
// even the first sentence fits, the text is cut mid-sentence at the budget.
func truncateToBudget(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || EstimateTokens(text) <= maxTokens {
		return text, false
	}

	budget := maxTokens * charsPerToken
	// Back up to a rune start so a mid-sentence cut never splits a
	// multibyte character.
	for budget > 0 && !utf8.RuneStart(text[budget]) {
		budget--
	}
	cut := text[:budget]
	if idx := strings.LastIndex(cut, ". "); idx >= 0 {
		cut = cut[:idx+1]
	}
	return strings.TrimSpace(cut), true
}
