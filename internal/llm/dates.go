package llm

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Accepted date layouts, tried in order. Documents here are predominantly
// Portuguese, so day-first layouts come before month-first.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2 January 2006",
	"January 2, 2006",
}

var ptMonths = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"março":     time.March,
	"marco":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

var rePTDate = regexp.MustCompile(`(?i)^(\d{1,2})\s+de\s+(\p{L}+)(?:\s+de\s+(\d{4}))?$`)

// NormalizeDate converts a date written in any accepted input format to an
// ISO 8601 calendar date (no time component). Returns an error when the
// input cannot be interpreted as a date at all.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	// Portuguese natural language: "21 de março de 2025"
	if m := rePTDate.FindStringSubmatch(s); m != nil {
		month, ok := ptMonths[strings.ToLower(m[2])]
		if ok {
			year := time.Now().Year()
			if m[3] != "" {
				fmt.Sscanf(m[3], "%d", &year)
			}
			var day int
			fmt.Sscanf(m[1], "%d", &day)
			t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			if t.Day() == day {
				return t.Format("2006-01-02"), nil
			}
		}
	}
	return "", fmt.Errorf("unrecognized date format: %q", s)
}
