package catalog

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rentalops/reservations-tracker/internal/common"
)

// MatchTier identifies which matching tier resolved a property; earlier
// tiers carry more confidence (exact > alias > normalized > partial).
type MatchTier int

const (
	TierExact MatchTier = iota + 1
	TierAlias
	TierNormalized
	TierPartial
)

func (t MatchTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierAlias:
		return "alias"
	case TierNormalized:
		return "normalized"
	case TierPartial:
		return "partial"
	}
	return "none"
}

// Confidence maps a tier to a 0..1 score used on the reservation draft.
func (t MatchTier) Confidence() float32 {
	switch t {
	case TierExact:
		return 1.0
	case TierAlias:
		return 0.95
	case TierNormalized:
		return 0.85
	case TierPartial:
		return 0.70
	}
	return 0
}

// Match is a successful resolution of a raw property mention.
type Match struct {
	PropertyID int64
	Name       string // canonical name
	RawName    string // as written in the document
	Tier       MatchTier
}

// Resolve matches a free-text property name against the catalog, walking
// tiers and returning at the first that yields exactly one candidate.
// Ambiguity at the normalized or partial tier fails with
// common.ErrAmbiguousProperty rather than guessing; no candidate at all
// fails with common.ErrUnresolvedProperty. Pure function of its inputs:
// resolving the same name twice gives the same tier and id.
func Resolve(rawName string, entries []Entry, logger *slog.Logger) (Match, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw := strings.TrimSpace(rawName)
	if raw == "" {
		return Match{}, common.NewAppError("PROPERTY", "empty property name", common.ErrUnresolvedProperty)
	}
	lower := strings.ToLower(raw)

	// tier 1: exact canonical name, case-insensitive
	if m, n := matchOne(entries, func(e Entry) bool {
		return strings.ToLower(strings.TrimSpace(e.Name)) == lower
	}); n == 1 {
		return found(m, raw, TierExact, logger), nil
	}

	// tier 2: exact alias
	if m, n := matchOne(entries, func(e Entry) bool {
		for _, a := range e.Aliases {
			if strings.ToLower(strings.TrimSpace(a)) == lower {
				return true
			}
		}
		return false
	}); n == 1 {
		return found(m, raw, TierAlias, logger), nil
	}

	// tier 3: diacritics stripped, whitespace/hyphens collapsed
	normRaw := NormalizeName(raw)
	m, n := matchOne(entries, func(e Entry) bool {
		if NormalizeName(e.Name) == normRaw {
			return true
		}
		for _, a := range e.Aliases {
			if NormalizeName(a) == normRaw {
				return true
			}
		}
		return false
	})
	if n == 1 {
		return found(m, raw, TierNormalized, logger), nil
	}
	if n > 1 {
		logger.Warn("catalog.resolve.ambiguous", "raw", raw, "tier", "normalized", "candidates", n)
		return Match{}, common.NewAppError("PROPERTY", "ambiguous at normalized tier", common.ErrAmbiguousProperty)
	}

	// tier 4: partial containment either way (suffixes like "— Casa de Férias")
	m, n = matchOne(entries, func(e Entry) bool {
		if containsEither(normRaw, NormalizeName(e.Name)) {
			return true
		}
		for _, a := range e.Aliases {
			if containsEither(normRaw, NormalizeName(a)) {
				return true
			}
		}
		return false
	})
	if n == 1 {
		return found(m, raw, TierPartial, logger), nil
	}
	if n > 1 {
		logger.Warn("catalog.resolve.ambiguous", "raw", raw, "tier", "partial", "candidates", n)
		return Match{}, common.NewAppError("PROPERTY", "ambiguous at partial tier", common.ErrAmbiguousProperty)
	}

	logger.Info("catalog.resolve.miss", "raw", raw)
	return Match{}, common.NewAppError("PROPERTY", "no catalog match for "+raw, common.ErrUnresolvedProperty)
}

func matchOne(entries []Entry, pred func(Entry) bool) (Entry, int) {
	var hit Entry
	count := 0
	for _, e := range entries {
		if pred(e) {
			hit = e
			count++
		}
	}
	return hit, count
}

func found(e Entry, raw string, tier MatchTier, logger *slog.Logger) Match {
	logger.Info("catalog.resolve.ok", "raw", raw, "property_id", e.ID, "tier", tier.String())
	return Match{PropertyID: e.ID, Name: e.Name, RawName: raw, Tier: tier}
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

var (
	stripMarks   = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	reNameJoiner = regexp.MustCompile(`[\s\-–—_]+`)
)

// NormalizeName lowercases, strips diacritics, and collapses internal
// whitespace and hyphens so "São João-2" and "sao joao 2" compare equal.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)
	s = reNameJoiner.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
