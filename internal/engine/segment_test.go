package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tiktokConsumption = `TikTok Pte. Ltd.
Invoice No: THTT2025060001
Consumption Details:
Statement Advertiser Campaign ID Campaign Name Target Country Period Total Consumption Voucher Cash
ST100001 59ZP - Prakit 1234567890123 pk|40109|SDH_pk_th-centro_none_Traffic_Q2Y25_[ST]|2089P22 TH 2025-06-01 ~ 2025-06-30 1,500.00 0.00 1,500.00
ST100002 59ZP - Prakit 1234567890124 pk|60029|CD_pk_th-rhythm_none_View_Q2Y25_[ST]|1972P04 TH 2025-06-01 ~ 2025-06-30 2,500.00 0.00 2,500.00
Total in THB: 4,000.00
Please note that this is not a tax invoice.
`

func TestSegment_TikTokConsumptionTable(t *testing.T) {
	text := normalized(tiktokConsumption)
	segs := Segment(text, tiktokAdapter{})

	require.Len(t, segs, 2)
	assert.Contains(t, segs[0].Joined(), "ST100001")
	assert.Contains(t, segs[1].Joined(), "ST100002")
	// Header and terminator lines belong to no segment.
	for _, seg := range segs {
		assert.NotContains(t, seg.Joined(), "Total Consumption")
		assert.NotContains(t, seg.Joined(), "Total in THB")
	}
}

func TestSegment_SegmentsAreOrderedAndDisjoint(t *testing.T) {
	text := normalized(tiktokConsumption)
	segs := Segment(text, tiktokAdapter{})

	require.Len(t, segs, 2)
	assert.Less(t, segs[0].StartOffset, segs[0].EndOffset)
	assert.LessOrEqual(t, segs[0].EndOffset, segs[1].StartOffset)
}

func TestSegment_NoSectionMarkerReturnsNil(t *testing.T) {
	text := normalized("TikTok Pte. Ltd.\nInvoice No: THTT1\nTotal: 100.00\n")
	assert.Nil(t, Segment(text, tiktokAdapter{}))
}

func TestSegment_MetaRowOrdinals(t *testing.T) {
	doc := strings.Join([]string{
		"Meta Platforms, Inc.",
		"Invoice Number: 247001234",
		"1",
		"Instagram - pk|40109|SDH_pk_th-centro_none_Traffic_Q2Y25_[ST]|2089P22",
		"18,550.72",
		"2",
		"Facebook - Boosted posts",
		"1,200.00",
		"Subtotal",
		"19,750.72",
	}, "\n")

	segs := Segment(normalized(doc), metaAdapter{})

	require.Len(t, segs, 2)
	assert.Contains(t, segs[0].Joined(), "pk|40109")
	assert.Contains(t, segs[0].Joined(), "18,550.72")
	assert.Contains(t, segs[1].Joined(), "Boosted posts")
	assert.NotContains(t, segs[1].Joined(), "Subtotal")
}

func TestSegment_SingleRowWithoutMarker(t *testing.T) {
	// One row, no visible row-start marker: the whole region is the row.
	doc := strings.Join([]string{
		"Google Asia Pacific",
		"Invoice number: 5298000001",
		"Description",
		"Google Ads charge for June",
		"7,756.04",
		"ยอดรวม 7,756.04",
	}, "\n")

	segs := Segment(normalized(doc), googleAdapter{})

	require.Len(t, segs, 1)
	assert.Contains(t, segs[0].Joined(), "Google Ads charge for June")
	assert.NotContains(t, segs[0].Joined(), "ยอดรวม")
}
