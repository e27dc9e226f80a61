package ingest

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Extractor converts raw file content to plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ContentType identifies the MIME type of content for extraction.
type ContentType string

const (
	TypePlainText ContentType = "text/plain"
	TypePDF       ContentType = "application/pdf"
)

// ContentTypeFromPath maps a file's extension (case-insensitive) to a
// supported content type. ok is false for anything other than .txt and .pdf.
func ContentTypeFromPath(path string) (ct ContentType, ok bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return TypePlainText, true
	case ".pdf":
		return TypePDF, true
	default:
		return "", false
	}
}

// IsSupported reports whether path has an extension the loader accepts.
func IsSupported(path string) bool {
	_, ok := ContentTypeFromPath(path)
	return ok
}

// PlainTextExtractor decodes content as UTF-8, replacing invalid byte
// sequences with U+FFFD.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	return strings.ToValidUTF8(string(content), "\uFFFD"), nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}
