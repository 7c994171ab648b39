package constants

import "strings"

// DocumentKind is the declared content kind of a submitted document.
type DocumentKind string

const (
	PDF  DocumentKind = "PDF"
	TEXT DocumentKind = "TEXT"
	XLSX DocumentKind = "XLSX"
)

// AllowedExtensions holds the default allowed file extensions for document ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"txt":  {},
	"xlsx": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToKind maps a file extension to a DocumentKind; empty when unknown.
func MapExtToKind(ext string) DocumentKind {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "txt", "text":
		return TEXT
	case "xlsx":
		return XLSX
	}
	return ""
}
