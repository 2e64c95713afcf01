package engine

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/peerapong/invoice-reader/constants"
)

// AmountHints carries per-platform tuning for amount resolution.
type AmountHints struct {
	// Min is the smallest absolute value accepted as a monetary candidate.
	// Smaller numbers are treated as stray quantities or identifiers unless
	// they are the only candidate in the segment.
	Min decimal.Decimal
}

// PlatformAdapter captures the per-platform quirks of segmentation and
// amount extraction. The engine stays platform-agnostic: the classifier
// selects one adapter and threads it through the rest of the pipeline.
type PlatformAdapter interface {
	Platform() constants.Platform

	// TableBounds locates the consumption-table region as a half-open line
	// range [start, end). ok=false means no section marker was found and the
	// caller must fall back to whole-document treatment.
	TableBounds(lines []string) (start, end int, ok bool)

	// RowStart reports whether a line opens a new row segment.
	RowStart(line string) bool

	// Terminator reports whether a line closes the table region
	// (subtotal/total markers). The line itself belongs to no segment.
	Terminator(line string) bool

	AmountHints() AmountHints

	// DocumentTotal extracts the document-level total independently of row
	// parsing, for the whole-document fallback and for reconciliation.
	DocumentTotal(text string) (decimal.Decimal, bool)

	// InvoiceID extracts the invoice identifier from text, falling back to
	// the filename stem.
	InvoiceID(text, filename string) string
}

// AdapterFor returns the adapter for a platform. Unknown has no adapter.
func AdapterFor(p constants.Platform) (PlatformAdapter, bool) {
	switch p {
	case constants.PlatformGoogle:
		return googleAdapter{}, true
	case constants.PlatformMeta:
		return metaAdapter{}, true
	case constants.PlatformTikTok:
		return tiktokAdapter{}, true
	default:
		return nil, false
	}
}

var defaultMinAmount = decimal.New(1, 0) // 1.00

func filenameStem(filename string) string {
	base := filename
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "฿", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func firstMatchAmount(text string, patterns []*regexp.Regexp) (decimal.Decimal, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if d, ok := parseAmount(m[1]); ok {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

// ---------------------------------------------------------------------------
// Google Ads

type googleAdapter struct{}

var (
	googleTableStart = regexp.MustCompile(`คำ\s?อธิบาย|Description`)
	googleTableEnd   = regexp.MustCompile(`ยอดรวม|จำนวนเงินรวม|Subtotal|Total amount`)
	googleInvoiceID  = []*regexp.Regexp{
		regexp.MustCompile(`หมายเลขใบแจ้งหนี้:\s*(\d+)`),
		regexp.MustCompile(`Invoice number:\s*(\d+)`),
	}
	googleTotals = []*regexp.Regexp{
		regexp.MustCompile(`จำนวนเงินรวมที่ต้องชำระในสกุลเงิน\s+THB\s*(-?฿?[\d,]+\.\d{2})`),
		regexp.MustCompile(`ยอดรวมในสกุลเงิน\s+THB\s*(-?฿?[\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)Total amount.*?THB.*?(-?[\d,]+\.\d{2})`),
	}
)

func (googleAdapter) Platform() constants.Platform { return constants.PlatformGoogle }

func (googleAdapter) TableBounds(lines []string) (int, int, bool) {
	start := -1
	for i, line := range lines {
		if googleTableStart.MatchString(line) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		// Fragmented Google invoices sometimes lose the table header; any
		// campaign code in the body still marks an extractable region.
		for i, line := range lines {
			if strings.Contains(line, "pk|") {
				return i, len(lines), true
			}
		}
		return 0, 0, false
	}
	for i := start; i < len(lines); i++ {
		if googleTableEnd.MatchString(lines[i]) {
			return start, i, true
		}
	}
	return start, len(lines), true
}

func (googleAdapter) RowStart(line string) bool {
	return strings.Contains(line, "pk|")
}

func (googleAdapter) Terminator(line string) bool {
	return googleTableEnd.MatchString(line)
}

func (googleAdapter) AmountHints() AmountHints { return AmountHints{Min: defaultMinAmount} }

func (googleAdapter) DocumentTotal(text string) (decimal.Decimal, bool) {
	return firstMatchAmount(text, googleTotals)
}

func (googleAdapter) InvoiceID(text, filename string) string {
	for _, re := range googleInvoiceID {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return filenameStem(filename)
}

// ---------------------------------------------------------------------------
// Meta (Facebook/Instagram)

type metaAdapter struct{}

var (
	metaOrdinal   = regexp.MustCompile(`^\d{1,3}$`)
	metaTableEnd  = regexp.MustCompile(`(?i)^(subtotal|total|amount due|ยอดรวม)`)
	metaInvoiceID = regexp.MustCompile(`Invoice\s+[Nn]umber[\s:]*(\d{9})`)
	metaTotals    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)amount due[\s:]*(-?[\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)^total[\s:]+(-?[\d,]+\.\d{2})`),
	}
)

func (metaAdapter) Platform() constants.Platform { return constants.PlatformMeta }

func (m metaAdapter) TableBounds(lines []string) (int, int, bool) {
	start := -1
	for i, line := range lines {
		if strings.Contains(line, "ar@meta.com") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		// AP layouts have no billing-contact marker; the first row ordinal
		// opens the table.
		for i, line := range lines {
			if metaOrdinal.MatchString(strings.TrimSpace(line)) {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	for i := start; i < len(lines); i++ {
		if m.Terminator(lines[i]) {
			return start, i, true
		}
	}
	return start, len(lines), true
}

func (metaAdapter) RowStart(line string) bool {
	t := strings.TrimSpace(line)
	if !metaOrdinal.MatchString(t) {
		return false
	}
	// 0 is never a row ordinal.
	return t != "0" && t != "00" && t != "000"
}

func (metaAdapter) Terminator(line string) bool {
	return metaTableEnd.MatchString(strings.TrimSpace(line))
}

func (metaAdapter) AmountHints() AmountHints { return AmountHints{Min: defaultMinAmount} }

func (metaAdapter) DocumentTotal(text string) (decimal.Decimal, bool) {
	for _, line := range strings.Split(text, "\n") {
		if d, ok := firstMatchAmount(strings.TrimSpace(line), metaTotals); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

func (metaAdapter) InvoiceID(text, filename string) string {
	if m := metaInvoiceID.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return filenameStem(filename)
}

// ---------------------------------------------------------------------------
// TikTok (ByteDance)

type tiktokAdapter struct{}

var (
	tiktokRowStarts = []*regexp.Regexp{
		regexp.MustCompile(`^ST\d+`),
		regexp.MustCompile(`^\d{2}[A-Z]+\s*-\s*`),
		regexp.MustCompile(`^\d+AP\s*-\s*`),
		regexp.MustCompile(`\d+pk\|`),
		regexp.MustCompile(`^pk\|`),
	}
	tiktokStopWords = []string{"total in thb", "please note that", "subtotal before margin"}
	tiktokInvoiceID = regexp.MustCompile(`Invoice No[.:]?\s*([A-Z0-9-]+)`)
	tiktokTotals    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)total\s+in\s+thb[\s:]*(-?[\d,]+\.\d{2})`),
		regexp.MustCompile(`(?i)total[:\s]+(-?[\d,]+\.\d{2})`),
	}
)

func (tiktokAdapter) Platform() constants.Platform { return constants.PlatformTikTok }

func (t tiktokAdapter) TableBounds(lines []string) (int, int, bool) {
	start := -1
	for i, line := range lines {
		if strings.Contains(line, "Consumption Details:") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	for i := start; i < len(lines); i++ {
		if t.Terminator(lines[i]) {
			return start, i, true
		}
	}
	return start, len(lines), true
}

func (tiktokAdapter) RowStart(line string) bool {
	t := strings.TrimSpace(line)
	for _, re := range tiktokRowStarts {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

func (tiktokAdapter) Terminator(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	for _, stop := range tiktokStopWords {
		if strings.Contains(l, stop) {
			return true
		}
	}
	return false
}

func (tiktokAdapter) AmountHints() AmountHints { return AmountHints{Min: defaultMinAmount} }

func (tiktokAdapter) DocumentTotal(text string) (decimal.Decimal, bool) {
	return firstMatchAmount(text, tiktokTotals)
}

func (tiktokAdapter) InvoiceID(text, filename string) string {
	if m := tiktokInvoiceID.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return filenameStem(filename)
}
