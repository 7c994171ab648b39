package llm

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Envelope is the expected top-level shape of a parse_reservation response.
type Envelope struct {
	Reservations []ReservationFields `json:"reservations"`
}

// Record is one not-yet-normalized reservation object as the provider wrote
// it; key synonyms and value types are cleaned up by NormalizeRecord.
type Record = map[string]any

// RepairTier records which recovery level produced a usable structure.
type RepairTier int

const (
	TierFailed    RepairTier = 0 // nothing worked; empty result returned
	TierStrict    RepairTier = 1
	TierFence     RepairTier = 2
	TierSyntactic RepairTier = 3
	TierIsolate   RepairTier = 4
	TierScavenge  RepairTier = 5
)

func (t RepairTier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierFence:
		return "fence"
	case TierSyntactic:
		return "syntactic"
	case TierIsolate:
		return "isolate"
	case TierScavenge:
		return "scavenge"
	}
	return "failed"
}

// Repair converts a provider's raw text into a list of reservation records.
// It never fails: each tier is tried in order and the worst case is an empty
// list. The winning tier is returned for observability; callers use it as a
// quality signal on the upstream model.
func Repair(raw string, logger *slog.Logger) ([]Record, RepairTier) {
	if logger == nil {
		logger = slog.Default()
	}

	type tier struct {
		id RepairTier
		fn func(string) ([]Record, bool)
	}
	tiers := []tier{
		{TierStrict, parseStrict},
		{TierFence, func(s string) ([]Record, bool) { return parseStrict(StripCodeFences(s)) }},
		{TierSyntactic, func(s string) ([]Record, bool) { return parseStrict(applySyntacticRepairs(StripCodeFences(s))) }},
		{TierIsolate, isolateReservationsArray},
		{TierScavenge, scavengeFields},
	}
	for _, t := range tiers {
		if recs, ok := t.fn(raw); ok {
			logger.Info("llm.repair.tier", "tier", t.id.String(), "reservations", len(recs))
			return recs, t.id
		}
	}
	logger.Warn("llm.repair.exhausted", "raw_bytes", len(raw))
	return []Record{}, TierFailed
}

// parseStrict accepts the envelope shape, a bare reservation object, or a
// bare array of reservation objects.
func parseStrict(s string) ([]Record, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]any:
		if arr, ok := t["reservations"].([]any); ok {
			return toRecords(arr), true
		}
		// a bare object is a single reservation
		return []Record{t}, true
	case []any:
		return toRecords(t), true
	}
	return nil, false
}

func toRecords(arr []any) []Record {
	recs := make([]Record, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			recs = append(recs, m)
		}
	}
	return recs
}

var reFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// StripCodeFences removes surrounding markdown code-fence markers, if present.
func StripCodeFences(s string) string {
	if m := reFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	// unbalanced fence: drop fence lines outright
	if strings.Contains(s, "```") {
		lines := strings.Split(s, "\n")
		kept := lines[:0]
		for _, ln := range lines {
			if strings.HasPrefix(strings.TrimSpace(ln), "```") {
				continue
			}
			kept = append(kept, ln)
		}
		return strings.Join(kept, "\n")
	}
	return s
}

var (
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)
	reAdjacentObjs  = regexp.MustCompile(`}(\s*){`)
)

// applySyntacticRepairs applies the fixed repair sequence all together:
// trailing commas, missing commas between adjacent objects, doubled quotes,
// and string values split across a newline.
func applySyntacticRepairs(s string) string {
	s = RemoveTrailingCommas(s)
	s = InsertMissingCommas(s)
	s = CollapseDoubledQuotes(s)
	s = JoinSplitStrings(s)
	return s
}

// RemoveTrailingCommas drops a comma that directly precedes a closing
// bracket or brace.
func RemoveTrailingCommas(s string) string {
	return reTrailingComma.ReplaceAllString(s, "$1")
}

// InsertMissingCommas inserts the comma between two adjacent }{ pairs;
// that adjacency is never valid JSON.
func InsertMissingCommas(s string) string {
	return reAdjacentObjs.ReplaceAllString(s, "},$1{")
}

// CollapseDoubledQuotes rewrites "" into a single quote except where it is a
// legitimate empty string value.
func CollapseDoubledQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' && i+1 < len(s) && s[i+1] == '"' {
			prev := lastNonSpace(s[:i])
			next := nextNonSpace(s[i+2:])
			// an empty value ("" after : , or [) stays as-is
			if (prev == ':' || prev == ',' || prev == '[') && (next == ',' || next == '}' || next == ']' || next == 0) {
				b.WriteString(`""`)
			} else {
				b.WriteByte('"')
			}
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// JoinSplitStrings replaces a raw newline inside a quoted string with a space.
func JoinSplitStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '\n':
				b.WriteByte(' ')
				continue
			}
		} else if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}

// isolateReservationsArray locates the bracketed array following the
// "reservations" key and parses it in isolation, wrapping it back into the
// expected envelope shape.
func isolateReservationsArray(s string) ([]Record, bool) {
	idx := strings.Index(s, `"reservations"`)
	if idx < 0 {
		return nil, false
	}
	open := strings.Index(s[idx:], "[")
	if open < 0 {
		return nil, false
	}
	open += idx
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				candidate := applySyntacticRepairs(s[open : i+1])
				var arr []any
				if err := json.Unmarshal([]byte(candidate), &arr); err == nil {
					return toRecords(arr), true
				}
				return nil, false
			}
		}
	}
	return nil, false
}

// Field scavenging patterns: last resort, pulled individually from prose.
// Fields not found are omitted, never guessed.
var scavengePatterns = map[string]*regexp.Regexp{
	"guest_name":    regexp.MustCompile(`(?i)"?guest[-_ ]?name"?\s*:?\s*"([^"]+)"`),
	"property_name": regexp.MustCompile(`(?i)"?property[-_ ]?name"?\s*:?\s*"([^"]+)"`),
	"checkin_date":  regexp.MustCompile(`(?i)"?check[-_ ]?in[-_ ]?(?:date)?"?\s*:?\s*"(\d{4}-\d{2}-\d{2})"`),
	"checkout_date": regexp.MustCompile(`(?i)"?check[-_ ]?out[-_ ]?(?:date)?"?\s*:?\s*"(\d{4}-\d{2}-\d{2})"`),
}

func scavengeFields(s string) ([]Record, bool) {
	rec := Record{}
	for field, re := range scavengePatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			rec[field] = strings.TrimSpace(m[1])
		}
	}
	if len(rec) == 0 {
		return nil, false
	}
	return []Record{rec}, true
}

func lastNonSpace(s string) byte {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return s[i]
	}
	return 0
}

func nextNonSpace(s string) byte {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return s[i]
	}
	return 0
}
