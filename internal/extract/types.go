package extract

import (
	"time"

	"github.com/rentalops/reservations-tracker/constants"
)

// RawDocument is a submitted source document. It is immutable; the pipeline
// discards it once extraction completes or fails.
type RawDocument struct {
	Content  []byte
	Kind     constants.DocumentKind // empty = sniff
	FileName string                 // optional; weak property signal on the control-file path
}

// ExtractedText is normalized text plus provenance. Owned exclusively by the
// extraction run that created it.
type ExtractedText struct {
	Text       string
	Pages      int
	Method     string // "pdf-text" | "plain-text"
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}
