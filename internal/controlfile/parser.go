package controlfile

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rentalops/reservations-tracker/constants"
	"github.com/rentalops/reservations-tracker/internal/llm"
)

// Control sheets are fixed-layout tabular documents listing many
// reservations for one property. Header detection and row parsing are
// data-driven so a new sheet layout is a new table entry, not new code.

// headerTokenGroups lists label alternatives; a document is a control sheet
// only when every group has at least one hit.
var headerTokenGroups = [][]string{
	{"entrada", "check-in", "checkin"},
	{"saída", "saida", "check-out", "checkout"},
	{"hóspedes", "hospedes", "pax", "guests"},
	{"site", "plataforma", "platform"},
}

// rowPattern maps one positional row layout onto draft fields via capture
// group indexes.
type rowPattern struct {
	name   string
	re     *regexp.Regexp
	fields map[string]int
}

var rowPatterns = []rowPattern{
	{
		// 21/03/2025 23/03/2025 2 Camila Silva 4 Portugal Airbnb
		name: "standard",
		re: regexp.MustCompile(
			`^(\d{1,2}/\d{1,2}/\d{4})\s+(\d{1,2}/\d{1,2}/\d{4})\s+(\d+)\s+(\p{L}[\p{L} .'-]*?)\s+(\d+)\s+(\p{L}[\p{L} ]*?)\s+(\S+)$`),
		fields: map[string]int{
			"checkin":  1,
			"checkout": 2,
			"nights":   3,
			"guest":    4,
			"guests":   5,
			"country":  6,
			"platform": 7,
		},
	},
	{
		// layout without the night-count column
		name: "no-nights",
		re: regexp.MustCompile(
			`^(\d{1,2}/\d{1,2}/\d{4})\s+(\d{1,2}/\d{1,2}/\d{4})\s+(\p{L}[\p{L} .'-]*?)\s+(\d+)\s+(\p{L}[\p{L} ]*?)\s+(\S+)$`),
		fields: map[string]int{
			"checkin":  1,
			"checkout": 2,
			"guest":    3,
			"guests":   4,
			"country":  5,
			"platform": 6,
		},
	},
}

var reControloName = regexp.MustCompile(`(?i)controlo[_ -]+(.+)$`)

// Result is a parsed control sheet: zero or more drafts sharing one
// property reference plus row-level warnings.
type Result struct {
	Drafts   []llm.ReservationFields
	Warnings []string
}

type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Detect reports whether the text looks like a control sheet: every header
// token group must be present. When it declines, the orchestrator falls
// through to the language-model path.
func (p *Parser) Detect(text string) bool {
	lower := strings.ToLower(text)
	for _, group := range headerTokenGroups {
		hit := false
		for _, token := range group {
			if strings.Contains(lower, token) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Parse scans line by line for rows matching a known positional pattern.
// A line immediately following a matched row that does not itself match any
// pattern becomes the previous row's note. The property name is derived
// once per document from the file name, never re-derived per row.
func (p *Parser) Parse(text, fileName string) Result {
	property := PropertyFromFileName(fileName)
	var res Result

	lines := strings.Split(text, "\n")
	lastDraft := -1
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			lastDraft = -1
			continue
		}

		matched := false
		for _, pat := range rowPatterns {
			m := pat.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			draft, warns := p.buildDraft(pat, m, property)
			res.Drafts = append(res.Drafts, draft)
			res.Warnings = append(res.Warnings, warns...)
			lastDraft = len(res.Drafts) - 1
			matched = true
			break
		}
		if matched {
			continue
		}

		// free-text note for the preceding row
		if lastDraft >= 0 && !looksLikeHeader(line) {
			d := &res.Drafts[lastDraft]
			if d.Notes == "" {
				d.Notes = line
			} else {
				d.Notes += " " + line
			}
		}
		lastDraft = -1
	}

	p.logger.Info("controlfile.parsed",
		"file_name", fileName,
		"property", property,
		"rows", len(res.Drafts),
		"warnings", len(res.Warnings),
	)
	return res
}

// buildDraft maps capture groups onto a draft. A date that fails to parse is
// dropped with a warning; the row is still emitted.
func (p *Parser) buildDraft(pat rowPattern, m []string, property string) (llm.ReservationFields, []string) {
	var warns []string
	get := func(field string) string {
		idx, ok := pat.fields[field]
		if !ok || idx >= len(m) {
			return ""
		}
		return strings.TrimSpace(m[idx])
	}

	draft := llm.ReservationFields{
		GuestName:    get("guest"),
		PropertyName: property,
		Country:      get("country"),
	}

	if raw := get("checkin"); raw != "" {
		if iso, err := llm.NormalizeDate(raw); err == nil {
			draft.CheckinDate = iso
		} else {
			warns = append(warns, "row "+draft.GuestName+": bad check-in date "+raw)
		}
	}
	if raw := get("checkout"); raw != "" {
		if iso, err := llm.NormalizeDate(raw); err == nil {
			draft.CheckoutDate = iso
		} else {
			warns = append(warns, "row "+draft.GuestName+": bad check-out date "+raw)
		}
	}
	if raw := get("guests"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			draft.NumGuests = n
		}
	}
	if raw := get("platform"); raw != "" {
		if plat, ok := constants.CanonicalizePlatform(raw); ok {
			draft.Platform = string(plat)
		} else {
			draft.Platform = string(constants.UnknownSite)
		}
	}
	return draft, warns
}

// PropertyFromFileName derives the property name from the control-sheet
// file-name convention "Controlo_<PropertyName>.pdf"; underscores separate
// words. Returns "" when the convention does not apply.
func PropertyFromFileName(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	m := reControloName.FindStringSubmatch(base)
	if m == nil {
		return ""
	}
	name := strings.ReplaceAll(m[1], "_", " ")
	name = strings.TrimSpace(name)
	return name
}

func looksLikeHeader(line string) bool {
	lower := strings.ToLower(line)
	hits := 0
	for _, group := range headerTokenGroups {
		for _, token := range group {
			if strings.Contains(lower, token) {
				hits++
				break
			}
		}
	}
	return hits >= 2
}
