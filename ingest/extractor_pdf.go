package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var _ Extractor = (*PDFExtractor)(nil)

// PDFExtractor extracts the text layer of a PDF document page by page.
// Pages are joined with a blank line; pages without extractable text, or
// whose content stream fails to decode, are skipped.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

// Extract returns the document text. The underlying parser panics on some
// malformed inputs; those panics are returned as errors.
func (e *PDFExtractor) Extract(content []byte) (text string, err error) {
	if len(content) == 0 {
		return "", errors.New("empty PDF content")
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, ok := pageText(page)
		if !ok {
			continue
		}
		pages = append(pages, t)
	}
	return strings.Join(pages, "\n\n"), nil
}

// pageText extracts one page, treating decode failures and panics as an
// empty page so a single bad page does not sink the document.
func pageText(page pdf.Page) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()
	raw, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
