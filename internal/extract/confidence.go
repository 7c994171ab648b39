package extract

import (
	"regexp"
	"strings"
)

var (
	reDate     = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b|\b\d{4}-\d{2}-\d{2}\b`)
	reAmount   = regexp.MustCompile(`\b\d{1,3}(\.\d{3})*,\d{2}\b|\b\d+[.,]\d{2}\b|[€$£]`)
	rePlatform = regexp.MustCompile(`\b(airbnb|booking|vrbo|expedia|hometogo)\b`)
	reGuests   = regexp.MustCompile(`h[óo]spedes|guests|pax`)
)

func hasDatePattern(s string) bool     { return reDate.MatchString(s) }
func hasAmountPattern(s string) bool   { return reAmount.MatchString(s) }
func hasPlatformPattern(s string) bool { return rePlatform.MatchString(s) }
func hasGuestPattern(s string) bool    { return reGuests.MatchString(s) }

// naive heuristic confidence based on decoded text characteristics
func heuristicConfidence(txt string) float32 {
	// boost if we see common reservation artifacts
	// (date-ish, amount-ish, platform-ish). Each adds a slice.
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if hasDatePattern(txtL) {
		score += 0.25
	}
	if hasAmountPattern(txtL) {
		score += 0.15
	}
	if hasPlatformPattern(txtL) {
		score += 0.15
	}
	if hasGuestPattern(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
