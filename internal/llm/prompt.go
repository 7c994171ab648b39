package llm

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// BuildParseSystemPrompt composes the system message for parse_reservation:
// output contract, date/platform rules, and formatting hygiene.
func BuildParseSystemPrompt(req ParseRequest) string {
	var siteLine string
	if len(req.Platforms) > 0 {
		siteLine = "The 'platform' value MUST be exactly one of: " + strings.Join(req.Platforms, ", ") + ". " +
			"If the booking site is not listed, use 'unknown'. "
	} else {
		siteLine = "The 'platform' value must be a short lowercase site label. "
	}

	defCur := strings.TrimSpace(req.DefaultCurrency)
	if defCur == "" {
		defCur = "EUR"
	}

	parts := []string{
		"You are a reservation parser for vacation rental documents. Return ONLY JSON that matches the provided JSON Schema.",
		"The top-level object has a single 'reservations' array; emit one entry per distinct reservation found.",
		"Use ISO-8601 dates (YYYY-MM-DD). Source documents often write dates as DD/MM/YYYY or in Portuguese.",
		"Currency must be a 3-letter ISO 4217 code; default to " + defCur + " if uncertain.",
		siteLine,
		"'property_name' is the lodging's name exactly as written in the document; never invent or translate it.",
		"'total_amount' is the reservation total as a non-negative decimal string.",
		"Put any free-text remarks (late arrival, cot request, etc.) in 'notes'.",
		// formatting hygiene:
		"Never output null. If a field is not present in the document, omit it; do not guess.",
	}
	return strings.Join(parts, " ")
}

// BuildParseUserPrompt packages the document text and filename hint.
func BuildParseUserPrompt(req ParseRequest) string {
	var b strings.Builder
	if filename := strings.TrimSpace(req.FilenameHint); filename != "" {
		b.WriteString("Filename: ")
		b.WriteString(filename)
		b.WriteString("\n")
	}
	b.WriteString("\nDocument text (first ~6k chars):\n")
	b.WriteString(truncateRunes(req.Text, 6000))
	return b.String()
}

// truncateRunes cuts s at or below max bytes without splitting a UTF-8 rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// BuildExtractTextPrompt asks a provider to transcribe a document verbatim.
func BuildExtractTextPrompt(doc string) string {
	return "Transcribe the following document content as plain text, preserving line breaks. " +
		"Do not summarize, translate, or add commentary.\n\n" + doc
}

func MustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
