package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/rentalops/reservations-tracker/constants"
)

// NormalizeRecord
// - Renames known key synonyms (guestName -> guest_name, check_in -> checkin_date, ...)
// - Drops null/empty optionals
// - Coerces numeric -> string for money fields and string -> int for guest counts
// - Normalizes dates to ISO 8601 and platform labels to the canonical enum
// - Removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeRecord(rec Record, logger *slog.Logger) (Record, []string) {
	if logger == nil {
		logger = slog.Default()
	}

	m := maps.Clone(rec)
	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite an existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms onto the schema keys, in precedence order
	for _, syn := range keySynonyms {
		renamed(syn.from, syn.to)
	}

	// 2) coerce money and count fields
	if v, ok := m["total_amount"]; ok {
		switch t := v.(type) {
		case float64:
			if t < 0 {
				delete(m, "total_amount")
				dropped = append(dropped, "total_amount(negative)")
			} else {
				m["total_amount"] = fmt.Sprintf("%.2f", t)
			}
		case string:
			s := cleanAmount(t)
			if s == "" {
				delete(m, "total_amount")
				dropped = append(dropped, "total_amount(empty)")
			} else {
				m["total_amount"] = s
			}
		case nil:
			delete(m, "total_amount")
			dropped = append(dropped, "total_amount(null)")
		default:
			delete(m, "total_amount")
			dropped = append(dropped, "total_amount(type)")
		}
	}
	if v, ok := m["num_guests"]; ok {
		switch t := v.(type) {
		case float64:
			m["num_guests"] = int(t)
		case string:
			var n int
			if _, err := fmt.Sscanf(strings.TrimSpace(t), "%d", &n); err == nil && n > 0 {
				m["num_guests"] = n
			} else {
				delete(m, "num_guests")
				dropped = append(dropped, "num_guests(unparseable)")
			}
		case nil:
			delete(m, "num_guests")
			dropped = append(dropped, "num_guests(null)")
		}
	}

	// 3) dates to ISO; an unparseable date is dropped, not guessed
	for _, k := range []string{"checkin_date", "checkout_date"} {
		if v, ok := m[k].(string); ok {
			iso, err := NormalizeDate(v)
			if err != nil {
				delete(m, k)
				dropped = append(dropped, k+"(unparseable)")
			} else {
				m[k] = iso
			}
		}
	}

	// 4) platform to the canonical enum; currency upper-cased
	if v, ok := m["platform"].(string); ok {
		if p, ok := constants.CanonicalizePlatform(v); ok {
			m["platform"] = string(p)
		} else {
			delete(m, "platform")
			dropped = append(dropped, "platform(unknown)")
		}
	}
	if v, ok := m["currency_code"].(string); ok {
		s := strings.ToUpper(strings.TrimSpace(v))
		if len(s) != 3 {
			delete(m, "currency_code")
			dropped = append(dropped, "currency_code(shape)")
		} else {
			m["currency_code"] = s
		}
	}

	// 5) remove unknown keys (everything not in the schema set)
	for k := range maps.Clone(m) {
		if _, ok := allowedKeys[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	// 6) trim obvious strings; empty optionals go away
	for _, k := range []string{"guest_name", "property_name", "country", "notes"} {
		if v, ok := m[k].(string); ok {
			s := strings.TrimSpace(v)
			if s == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = s
			}
		}
	}

	if len(dropped) > 0 {
		logger.Warn("llm.sanitize.normalized", "dropped", dropped)
	}
	return m, dropped
}

// DecodeRecords normalizes a repaired record list, validates it against the
// reservation schema, and decodes it into typed fields. Records that still
// fail schema validation after sanitizing are skipped with a warning rather
// than failing the whole response.
func DecodeRecords(recs []Record, platforms []string, logger *slog.Logger) []ReservationFields {
	if logger == nil {
		logger = slog.Default()
	}
	schema := BuildReservationJSONSchema(platforms)

	out := make([]ReservationFields, 0, len(recs))
	for i, rec := range recs {
		clean, _ := NormalizeRecord(rec, logger)
		doc, err := json.Marshal(map[string]any{"reservations": []any{clean}})
		if err != nil {
			logger.Warn("llm.decode.marshal_failed", "index", i, "error", err)
			continue
		}
		if err := ValidateJSONAgainstSchema(schema, doc); err != nil {
			logger.Warn("llm.decode.schema_rejected", "index", i, "error", err)
			continue
		}
		var env Envelope
		if err := json.Unmarshal(doc, &env); err != nil || len(env.Reservations) == 0 {
			logger.Warn("llm.decode.unmarshal_failed", "index", i, "error", err)
			continue
		}
		out = append(out, env.Reservations[0])
	}
	return out
}

// keySynonyms lists model output keys and the schema keys they rename to.
// Order is precedence: when a record carries two synonyms of the same schema
// key, the earlier entry's value wins.
var keySynonyms = []struct{ from, to string }{
	{"guestName", "guest_name"},
	{"guest", "guest_name"},
	{"name", "guest_name"},
	{"propertyName", "property_name"},
	{"property", "property_name"},
	{"propertyId", "property_name"},
	{"checkIn", "checkin_date"},
	{"check_in", "checkin_date"},
	{"checkInDate", "checkin_date"},
	{"check_in_date", "checkin_date"},
	{"checkOut", "checkout_date"},
	{"check_out", "checkout_date"},
	{"checkOutDate", "checkout_date"},
	{"check_out_date", "checkout_date"},
	{"guests", "num_guests"},
	{"numGuests", "num_guests"},
	{"guest_count", "num_guests"},
	{"total", "total_amount"},
	{"totalAmount", "total_amount"},
	{"amount", "total_amount"},
	{"price", "total_amount"},
	{"currency", "currency_code"},
	{"currencyCode", "currency_code"},
	{"site", "platform"},
	{"source", "platform"},
	{"note", "notes"},
	{"comments", "notes"},
}

var allowedKeys = map[string]struct{}{
	"guest_name": {}, "property_name": {}, "checkin_date": {}, "checkout_date": {},
	"num_guests": {}, "total_amount": {}, "currency_code": {}, "platform": {},
	"country": {}, "notes": {},
	"confidence": {},
}

// cleanAmount strips currency symbols and thousand separators and settles on
// a dot decimal point; returns "" when nothing numeric remains or the value
// is negative.
func cleanAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "€$£ ")
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") {
		return ""
	}
	// European style "1.234,56" -> "1234.56"
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%f", &f); err != nil || f < 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", f)
}
