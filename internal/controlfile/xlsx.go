package controlfile

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rentalops/reservations-tracker/constants"
	"github.com/rentalops/reservations-tracker/internal/llm"
)

// xlsx control sheets carry the same columns as the PDF layout, addressed
// by header label instead of position.
var xlsxColumns = map[string][]string{
	"checkin":  {"entrada", "check-in", "checkin"},
	"checkout": {"saída", "saida", "check-out", "checkout"},
	"nights":   {"noites", "nights"},
	"guest":    {"nome", "hóspede", "hospede", "guest", "name"},
	"guests":   {"n.º hóspedes", "hóspedes", "hospedes", "pax", "guests"},
	"country":  {"país", "pais", "country"},
	"platform": {"site", "plataforma", "platform"},
	"notes":    {"notas", "observações", "observacoes", "notes"},
}

// ParseXLSX reads an xlsx control sheet from raw bytes. The first sheet's
// first row must be a header naming at least the date, guest and site
// columns; rows below it follow the same semantics as the PDF layout.
func (p *Parser) ParseXLSX(content []byte, fileName string) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return Result{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			p.logger.Warn("controlfile.xlsx.close_error", "error", cerr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return Result{}, fmt.Errorf("xlsx has no data rows")
	}

	colIdx := mapColumns(rows[0])
	if _, ok := colIdx["checkin"]; !ok {
		return Result{}, fmt.Errorf("xlsx header does not look like a control sheet")
	}

	property := PropertyFromFileName(fileName)
	var res Result
	for _, row := range rows[1:] {
		cell := func(field string) string {
			idx, ok := colIdx[field]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if cell("guest") == "" && cell("checkin") == "" {
			continue // blank or decorative row
		}

		draft := llm.ReservationFields{
			GuestName:    cell("guest"),
			PropertyName: property,
			Country:      cell("country"),
			Notes:        cell("notes"),
		}
		if raw := cell("checkin"); raw != "" {
			if iso, derr := llm.NormalizeDate(raw); derr == nil {
				draft.CheckinDate = iso
			} else {
				res.Warnings = append(res.Warnings, "row "+draft.GuestName+": bad check-in date "+raw)
			}
		}
		if raw := cell("checkout"); raw != "" {
			if iso, derr := llm.NormalizeDate(raw); derr == nil {
				draft.CheckoutDate = iso
			} else {
				res.Warnings = append(res.Warnings, "row "+draft.GuestName+": bad check-out date "+raw)
			}
		}
		if raw := cell("guests"); raw != "" {
			if n, aerr := strconv.Atoi(raw); aerr == nil && n > 0 {
				draft.NumGuests = n
			}
		}
		if raw := cell("platform"); raw != "" {
			if plat, ok := constants.CanonicalizePlatform(raw); ok {
				draft.Platform = string(plat)
			} else {
				draft.Platform = string(constants.UnknownSite)
			}
		}
		res.Drafts = append(res.Drafts, draft)
	}

	p.logger.Info("controlfile.xlsx.parsed",
		"file_name", fileName,
		"property", property,
		"rows", len(res.Drafts),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

func mapColumns(header []string) map[string]int {
	colIdx := map[string]int{}
	for i, h := range header {
		label := strings.ToLower(strings.TrimSpace(h))
		if label == "" {
			continue
		}
		field := fieldForLabel(label)
		if field == "" {
			continue
		}
		if _, taken := colIdx[field]; taken {
			continue
		}
		colIdx[field] = i
	}
	return colIdx
}

// fieldForLabel picks the single field a header label belongs to. A label can
// contain tokens of more than one field ("Hóspedes" contains the guest token
// "hóspede"), so the longest matching token decides, with the field name as a
// tie break to keep the mapping deterministic.
func fieldForLabel(label string) string {
	var best string
	bestLen := 0
	for field, names := range xlsxColumns {
		for _, name := range names {
			if !strings.Contains(label, name) {
				continue
			}
			if len(name) > bestLen || (len(name) == bestLen && field < best) {
				best = field
				bestLen = len(name)
			}
		}
	}
	return best
}
