package extract

import (
	"bytes"
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/rentalops/reservations-tracker/constants"
	"github.com/rentalops/reservations-tracker/internal/common"
)

var pdfMagic = []byte("%PDF-")

type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract turns a raw document into normalized text. Fails with
// common.ErrUnreadableDocument when the source cannot be decoded at all;
// that is fatal for the run and never retried.
func (e *Extractor) Extract(ctx context.Context, doc RawDocument) (ExtractedText, error) {
	start := time.Now()

	if len(bytes.TrimSpace(doc.Content)) == 0 {
		e.logger.Error("extract.empty_document", "file_name", doc.FileName)
		return ExtractedText{}, common.NewAppError("UNREADABLE", "empty document", common.ErrUnreadableDocument)
	}
	if err := ctx.Err(); err != nil {
		return ExtractedText{}, err
	}

	kind := doc.Kind
	if kind == "" {
		kind = sniffKind(doc.Content)
	}

	var (
		text     string
		pages    int
		method   string
		warnings []string
		err      error
	)
	switch kind {
	case constants.PDF:
		text, pages, warnings, err = pdfToText(doc.Content)
		method = "pdf-text"
		if err != nil {
			e.logger.Error("extract.pdf.failed", "file_name", doc.FileName, "error", err)
			return ExtractedText{}, common.NewAppError("UNREADABLE", "pdf decode failed", common.ErrUnreadableDocument)
		}
	default:
		if !utf8.Valid(doc.Content) {
			e.logger.Error("extract.text.invalid_encoding", "file_name", doc.FileName)
			return ExtractedText{}, common.NewAppError("UNREADABLE", "not valid utf-8 text", common.ErrUnreadableDocument)
		}
		text = string(doc.Content)
		pages = 1
		method = "plain-text"
	}

	normalized := Normalize(text)
	if normalized == "" {
		e.logger.Error("extract.no_text", "file_name", doc.FileName, "method", method)
		return ExtractedText{}, common.NewAppError("UNREADABLE", "document yielded no text", common.ErrUnreadableDocument)
	}

	out := ExtractedText{
		Text:       normalized,
		Pages:      pages,
		Method:     method,
		Duration:   time.Since(start),
		Warnings:   warnings,
		Confidence: heuristicConfidence(normalized),
	}
	e.logger.Info("extract.ok",
		"file_name", doc.FileName,
		"method", method,
		"pages", pages,
		"bytes", len(normalized),
		"confidence", out.Confidence,
		"elapsed_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

func sniffKind(content []byte) constants.DocumentKind {
	if bytes.HasPrefix(content, pdfMagic) {
		return constants.PDF
	}
	return constants.TEXT
}
