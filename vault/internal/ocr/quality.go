package ocr

import (
	"strings"
	"unicode"
)

// textQuality captures metrics about a PDF's native text layer, used to
// decide whether the document is a real text PDF or a scan that needs OCR.
type textQuality struct {
	PageCount      int
	CharsPerPage   float64
	PrintableRatio float64
	WordlikeRatio  float64
	HasImages      bool
}

// needsOCR reports whether the native text layer is too thin or too garbled
// to trust. Scanned invoices typically have almost no text but carry a
// full-page image per page.
func (q *textQuality) needsOCR() bool {
	return (q.CharsPerPage < 50 && q.HasImages) || q.PrintableRatio < 0.85
}

// confidence estimates how trustworthy the native text layer is, on [0,1].
func (q *textQuality) confidence() float64 {
	c := (q.PrintableRatio + q.WordlikeRatio) / 2
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// printableRatio returns the ratio of printable characters in text.
// Excludes PUA U+E000-U+F8FF, control chars < U+0020 (except \n\r\t), U+FFFD.
func printableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total := 0
	printable := 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	// Private Use Area
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	// Replacement character
	if r == 0xFFFD {
		return true
	}
	// Control chars except whitespace
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// wordlikeRatio returns the ratio of word-like tokens (length 2-15) to total
// tokens. Garbled extractions produce either single glyphs or long runs.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		n := len([]rune(f))
		if n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}
