package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfToText pulls plain text out of a PDF byte stream, page by page.
// Pages that fail to decode are skipped with a warning; the document is
// unreadable only when no page yields any text at all.
func pdfToText(content []byte) (text string, pages int, warnings []string, err error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, nil, fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	var warns []string
	pages = reader.NumPage()
	for pageNum := 1; pageNum <= pages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			warns = append(warns, fmt.Sprintf("page %d: null object", pageNum))
			continue
		}
		content, perr := page.GetPlainText(nil)
		if perr != nil {
			warns = append(warns, fmt.Sprintf("page %d: %v", pageNum, perr))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(content)
	}

	text = b.String()
	if strings.TrimSpace(text) == "" {
		return "", pages, warns, fmt.Errorf("no text content in pdf")
	}
	return text, pages, warns, nil
}
