package engine

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// reMoney matches decimal-looking substrings: optional sign, thousands
// separators, exactly two fraction digits. Scanning left to right also
// splits the concatenated gross/voucher/net runs some layouts emit
// ("18,550.720.0018,550.72" yields three candidates).
var reMoney = regexp.MustCompile(`-?฿?\d{1,3}(?:,\d{3})*\.\d{2}`)

// ResolveAmount extracts the monetary amount of one row segment, or nil
// when no candidate survives. Callers must drop amountless rows instead of
// emitting zeros.
//
// Disambiguation, in priority order:
//  1. exactly three candidates with a zero in the middle form a
//     (gross, voucher, net) triplet; the net value wins
//  2. a single candidate wins outright
//  3. otherwise the candidate nearest the end of the segment wins
//     (amounts are conventionally right-aligned/trailing)
//
// Candidates below hints.Min in magnitude are filtered out first, unless
// that would leave none.
func ResolveAmount(seg RowSegment, hints AmountHints) *decimal.Decimal {
	var candidates []decimal.Decimal
	for _, line := range seg.RawLines {
		for _, m := range reMoney.FindAllString(line, -1) {
			if d, ok := parseAmount(m); ok {
				candidates = append(candidates, d)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	if len(candidates) == 3 && candidates[1].IsZero() {
		net := candidates[2]
		return &net
	}

	filtered := candidates
	if !hints.Min.IsZero() {
		kept := candidates[:0:0]
		for _, d := range candidates {
			if d.Abs().Cmp(hints.Min) >= 0 {
				kept = append(kept, d)
			}
		}
		if len(kept) > 0 {
			filtered = kept
		}
	}

	last := filtered[len(filtered)-1]
	return &last
}
