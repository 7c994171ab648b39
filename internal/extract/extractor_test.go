package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentalops/reservations-tracker/constants"
	"github.com/rentalops/reservations-tracker/internal/common"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "crlf to lf", in: "a\r\nb", want: "a\nb"},
		{name: "control chars stripped", in: "a\x00b\x07c", want: "abc"},
		{name: "tab kept as space", in: "a\tb", want: "a b"},
		{name: "space runs collapsed", in: "a    b", want: "a b"},
		{name: "blank lines collapsed", in: "a\n\n\n\nb", want: "a\nb"},
		{name: "trailing spaces trimmed", in: "a  \nb", want: "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := "Data entrada: 21/03/2025\r\n\r\n\r\nNome:\tCamila  Silva\x0c"
	once := Normalize(in)
	assert.Equal(t, once, Normalize(once))
}

func TestExtract_PlainText(t *testing.T) {
	e := NewExtractor(nil)

	got, err := e.Extract(context.Background(), RawDocument{
		Content:  []byte("Data entrada: 21/03/2025\nSite: Airbnb\nTotal: 431,00 €"),
		Kind:     constants.TEXT,
		FileName: "reserva.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "plain-text", got.Method)
	assert.Equal(t, 1, got.Pages)
	assert.Contains(t, got.Text, "Airbnb")
	assert.Greater(t, got.Confidence, float32(0.5))
}

func TestExtract_EmptyDocumentIsFatal(t *testing.T) {
	e := NewExtractor(nil)

	_, err := e.Extract(context.Background(), RawDocument{Content: []byte("   ")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnreadableDocument))
}

func TestExtract_CorruptPDFIsFatal(t *testing.T) {
	e := NewExtractor(nil)

	_, err := e.Extract(context.Background(), RawDocument{
		Content: []byte("%PDF-1.7 garbage"),
		Kind:    constants.PDF,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnreadableDocument))
}

func TestExtract_SniffsPDFMagic(t *testing.T) {
	e := NewExtractor(nil)

	// no declared kind: %PDF- prefix routes to the pdf path, which fails
	// fatally on a truncated stream rather than passing garbage through.
	_, err := e.Extract(context.Background(), RawDocument{Content: []byte("%PDF-1.4")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnreadableDocument))
}
