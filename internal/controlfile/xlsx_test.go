package controlfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, name, cell))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	content := buildSheet(t, [][]string{
		{"Entrada", "Saída", "Noites", "Nome", "Hóspedes", "País", "Site", "Notas"},
		{"21/03/2025", "23/03/2025", "2", "Camila Silva", "4", "Portugal", "Airbnb", "chegada tardia"},
		{"02/08/2025", "09/08/2025", "7", "John Baker", "2", "England", "Booking.com", ""},
	})

	p := NewParser(nil)
	res, err := p.ParseXLSX(content, "Controlo_Sete_Rios.xlsx")
	require.NoError(t, err)
	require.Len(t, res.Drafts, 2)

	first := res.Drafts[0]
	assert.Equal(t, "Camila Silva", first.GuestName)
	assert.Equal(t, "Sete Rios", first.PropertyName)
	assert.Equal(t, "2025-03-21", first.CheckinDate)
	assert.Equal(t, "2025-03-23", first.CheckoutDate)
	assert.Equal(t, 4, first.NumGuests)
	assert.Equal(t, "airbnb", first.Platform)
	assert.Equal(t, "chegada tardia", first.Notes)

	second := res.Drafts[1]
	assert.Equal(t, "booking", second.Platform)
	assert.Empty(t, second.Notes)
}

func TestParseXLSXGuestCountBeforeName(t *testing.T) {
	content := buildSheet(t, [][]string{
		{"Entrada", "Saída", "Hóspedes", "Nome", "Site"},
		{"21/03/2025", "23/03/2025", "4", "Camila Silva", "Airbnb"},
	})

	p := NewParser(nil)
	res, err := p.ParseXLSX(content, "Controlo_Sete_Rios.xlsx")
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)

	draft := res.Drafts[0]
	assert.Equal(t, "Camila Silva", draft.GuestName)
	assert.Equal(t, 4, draft.NumGuests)
}

func TestFieldForLabel(t *testing.T) {
	assert.Equal(t, "guests", fieldForLabel("hóspedes"))
	assert.Equal(t, "guests", fieldForLabel("n.º hóspedes"))
	assert.Equal(t, "guest", fieldForLabel("nome"))
	assert.Equal(t, "guest", fieldForLabel("nome do hóspede"))
	assert.Equal(t, "", fieldForLabel("total"))
}

func TestParseXLSXSkipsBlankRows(t *testing.T) {
	content := buildSheet(t, [][]string{
		{"Entrada", "Saída", "Nome", "Hóspedes", "Site"},
		{"", "", "", "", ""},
		{"05/06/2025", "08/06/2025", "Ana Costa", "3", "Vrbo"},
	})

	p := NewParser(nil)
	res, err := p.ParseXLSX(content, "Controlo_Sete_Rios.xlsx")
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)
	assert.Equal(t, "Ana Costa", res.Drafts[0].GuestName)
}

func TestParseXLSXRejectsNonControlSheet(t *testing.T) {
	content := buildSheet(t, [][]string{
		{"Invoice", "Total"},
		{"123", "45.00"},
	})

	p := NewParser(nil)
	_, err := p.ParseXLSX(content, "invoice.xlsx")
	assert.Error(t, err)
}

func TestParseXLSXRejectsGarbage(t *testing.T) {
	p := NewParser(nil)
	_, err := p.ParseXLSX([]byte("not an xlsx archive"), "x.xlsx")
	assert.Error(t, err)
}
