package extract

import "unicode"

// ExtractionQuality captures metrics about PDF text extraction quality.
// Invoices with an embedded text layer score high; scanned invoices come
// out almost empty and need the OCR fallback.
type ExtractionQuality struct {
	PageCount       int
	CharsPerPage    float64
	PrintableRatio  float64
	HasImageStreams bool
}

// NeedsOCR reports whether the text layer is too thin or too garbled to
// feed the engine directly.
func (q ExtractionQuality) NeedsOCR() bool {
	return (q.CharsPerPage < 50 && q.HasImageStreams) || q.PrintableRatio < 0.85
}

// printableRatio returns the ratio of printable characters in text.
// Excludes the Private Use Area, control chars (except \n\r\t) and U+FFFD,
// which all show up when a PDF's font encoding cannot be mapped back.
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
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}
