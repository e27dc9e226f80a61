package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// paragraphBreak matches two or more newlines, allowing blank lines that
// contain only spaces or tabs.
var paragraphBreak = regexp.MustCompile(`\n(?:[ \t]*\n)+`)

const paragraphPlaceholder = "\x00"

// Normalize canonicalizes extracted text: CRLF and CR become LF, the text
// is NFC-normalized, runs of blank lines collapse to one paragraph break,
// remaining single newlines become spaces, and surrounding whitespace is
// trimmed.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, paragraphPlaceholder, "")
	text = paragraphBreak.ReplaceAllString(text, paragraphPlaceholder)
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, paragraphPlaceholder, "\n\n")
	return strings.TrimSpace(text)
}
