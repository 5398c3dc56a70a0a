package contextwindow

import "unicode/utf8"

// TokenEstimateRatio estimates ~4 characters per token (conservative
// estimate for latin-script text).
const TokenEstimateRatio = 4

// EstimateTokens approximates the token cost of a text blob as
// ceil(runes/4). It is pure: the budget invariants in the builder depend
// on the same input always producing the same count.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	return (runes + TokenEstimateRatio - 1) / TokenEstimateRatio
}
