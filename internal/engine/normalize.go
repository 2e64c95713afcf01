package engine

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultFragmentThreshold is the fraction of short lines above which a
// document is treated as character-fragmented. Some extraction paths emit
// the consumption table one or two characters per line; 30% was calibrated
// on the observed corpus.
const DefaultFragmentThreshold = 0.3

// shortLineMax is the rune length at or below which a line counts as a
// fragment candidate.
const shortLineMax = 2

// fragmentFixes repairs domain marker tokens that fragmentation splits with
// stray spaces after concatenation.
var fragmentFixes = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`p\s*k\s*\|`), "pk|"},
	{regexp.MustCompile(`S\s+D\s+H\s*_`), "SDH_"},
	{regexp.MustCompile(`T\s*r\s*a\s*f\s*f\s*i\s*c`), "Traffic"},
	{regexp.MustCompile(`R\s*e\s*s\s*p\s*o\s*n\s*s\s*i\s*v\s*e`), "Responsive"},
	{regexp.MustCompile(`G\s+D\s+N\s+Q`), "GDNQ"},
	{regexp.MustCompile(`\[\s*S\s*T\s*\]`), "[ST]"},
}

// zero-width and BOM code points that some PDF producers inject between
// every character.
func isInvisible(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return false
}

// Normalizer cleans raw document text and repairs character-by-character
// fragmentation. The zero value uses DefaultFragmentThreshold.
type Normalizer struct {
	FragmentThreshold float64
}

// Normalize strips invisible and control characters, then detects and
// repairs fragmented text. It is pure and never fails: the worst case is
// the cleaned input returned unchanged with WasFragmented=false.
func (n Normalizer) Normalize(raw RawDocument) NormalizedText {
	threshold := n.FragmentThreshold
	if threshold <= 0 {
		threshold = DefaultFragmentThreshold
	}

	cleaned := cleanRunes(raw.Text())
	lines := strings.Split(cleaned, "\n")

	fragmented := fragmentRatio(lines) > threshold
	if fragmented {
		lines = reconstructLines(lines)
	}

	return NormalizedText{
		Text:          strings.Join(lines, "\n"),
		Lines:         lines,
		WasFragmented: fragmented,
	}
}

func cleanRunes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isInvisible(r) {
			continue
		}
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// fragmentRatio returns the fraction of non-empty lines that are short
// enough to be character fragments.
func fragmentRatio(lines []string) float64 {
	short, total := 0, 0
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		total++
		if utf8.RuneCountInString(t) <= shortLineMax {
			short++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(short) / float64(total)
}

// reconstructLines buffers runs of consecutive short lines and concatenates
// them into a single logical line, closing the buffer when a line of normal
// length (or a blank line) is reached. The closing normal line joins the
// buffered fragments: "p","k","|","40109" becomes "pk|40109".
func reconstructLines(lines []string) []string {
	var out []string
	var fragment []string

	flush := func() {
		if len(fragment) > 0 {
			out = append(out, fixFragmentPatterns(strings.Join(fragment, "")))
			fragment = fragment[:0]
		}
	}

	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			flush()
			continue
		}
		if utf8.RuneCountInString(t) <= shortLineMax {
			fragment = append(fragment, t)
			continue
		}
		if len(fragment) > 0 {
			fragment = append(fragment, t)
			flush()
			continue
		}
		out = append(out, fixFragmentPatterns(t))
	}
	flush()

	return out
}

func fixFragmentPatterns(line string) string {
	for _, f := range fragmentFixes {
		line = f.re.ReplaceAllString(line, f.with)
	}
	return line
}
