package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(lines ...string) RowSegment {
	return RowSegment{RawLines: lines}
}

func TestResolveAmount_TripletPicksNet(t *testing.T) {
	got := ResolveAmount(seg("ST100001 pk|40109|... 18,550.72 0.00 18,550.72"), AmountHints{})

	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("18550.72")))
}

func TestResolveAmount_ConcatenatedTriplet(t *testing.T) {
	// Column boundaries vanish in some text layers; the run still splits
	// into three candidates.
	got := ResolveAmount(seg("ST100002 pk|60029|... 18,550.720.0018,550.72"), AmountHints{})

	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("18550.72")))
}

func TestResolveAmount_SingleCandidate(t *testing.T) {
	got := ResolveAmount(seg("1", "Instagram - pk|40110|...", "1,234.56"), AmountHints{})

	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("1234.56")))
}

func TestResolveAmount_TrailingCandidateWins(t *testing.T) {
	got := ResolveAmount(seg("Clicks 1,000.00 impressions 52,000.00 charge 7,756.04"), AmountHints{})

	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("7756.04")))
}

func TestResolveAmount_MinFilterDropsNoise(t *testing.T) {
	// Sub-threshold per-unit rates must not shadow the trailing row amount.
	got := ResolveAmount(seg("CPC 0.42 total 3,120.00 rate 0.15"), AmountHints{Min: decimal.RequireFromString("1.00")})

	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("3120.00")))
}

func TestResolveAmount_MinFilterNeverEmptiesSet(t *testing.T) {
	got := ResolveAmount(seg("adjustment 0.37"), AmountHints{Min: decimal.RequireFromString("1.00")})

	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("0.37")))
}

func TestResolveAmount_NegativeAmount(t *testing.T) {
	got := ResolveAmount(seg("Credit memo -฿6,284.42"), AmountHints{})

	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("-6284.42")))
}

func TestResolveAmount_TripletBeatsMinFilter(t *testing.T) {
	// The voucher zero would be filtered out by hints.Min, destroying the
	// triplet shape; triplet detection runs on the raw candidates.
	got := ResolveAmount(seg("ST100003 pk|... 4,000.00 0.00 4,000.00"), AmountHints{Min: decimal.RequireFromString("1.00")})

	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("4000.00")))
}

func TestResolveAmount_NoCandidates(t *testing.T) {
	assert.Nil(t, ResolveAmount(seg("Consumption Details:"), AmountHints{}))
	assert.Nil(t, ResolveAmount(seg(), AmountHints{}))
}
