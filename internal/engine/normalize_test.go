package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_PassthroughCleanText(t *testing.T) {
	raw := NewRawDocument("Invoice number: 5298000001\nDescription\nSome row\n", "5298000001.pdf")

	got := Normalizer{}.Normalize(raw)

	assert.False(t, got.WasFragmented)
	assert.Contains(t, got.Text, "Invoice number: 5298000001")
}

func TestNormalize_StripsInvisibleRunes(t *testing.T) {
	raw := NewRawDocument("p​k​|​40109", "x.pdf")

	got := Normalizer{}.Normalize(raw)

	assert.Equal(t, "pk|40109", got.Text)
}

func TestNormalize_ReconstructsFragmentedLines(t *testing.T) {
	// One token per line, the way some extraction paths emit the table.
	frag := []string{
		"p", "k", "|", "40", "10", "9", "|", "SD", "H_", "pk",
		"_t", "h-", "si", "ng", "le", "-d", "et", "ac", "he", "d_",
		"none_Traffic_GDNQ2Y25_[ST]|2089P22",
	}
	raw := NewRawDocument(strings.Join(frag, "\n"), "5298528895.pdf")

	got := Normalizer{}.Normalize(raw)

	require.True(t, got.WasFragmented)
	require.Len(t, got.Lines, 1)
	assert.True(t, strings.HasPrefix(got.Lines[0], "pk|40109"), "got %q", got.Lines[0])
	assert.Contains(t, got.Lines[0], "[ST]|2089P22")
}

func TestNormalize_FixesSplitMarkerTokens(t *testing.T) {
	frag := []string{"p", "k", "|", "40109 [ S T ]|2089P22"}
	raw := NewRawDocument(strings.Join(frag, "\n"), "x.pdf")

	got := Normalizer{}.Normalize(raw)

	require.True(t, got.WasFragmented)
	assert.Contains(t, got.Text, "[ST]|2089P22")
}

func TestNormalize_ThresholdKeepsShortDocsIntact(t *testing.T) {
	// Two short lines out of ten: below the 30% threshold, no rebuild.
	lines := []string{
		"a", "b",
		"a normal length line 1", "a normal length line 2",
		"a normal length line 3", "a normal length line 4",
		"a normal length line 5", "a normal length line 6",
		"a normal length line 7", "a normal length line 8",
	}
	raw := NewRawDocument(strings.Join(lines, "\n"), "x.pdf")

	got := Normalizer{}.Normalize(raw)

	assert.False(t, got.WasFragmented)
	assert.Len(t, got.Lines, 10)
}

func TestFragmentRatio_IgnoresBlankLines(t *testing.T) {
	ratio := fragmentRatio([]string{"", "  ", "ab", "a long enough line"})
	assert.InDelta(t, 0.5, ratio, 1e-9)
}
