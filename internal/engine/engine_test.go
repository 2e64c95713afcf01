package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerapong/invoice-reader/constants"
	"github.com/peerapong/invoice-reader/internal/common"
)

const tiktokInvoiceDoc = `TikTok Pte. Ltd.
Invoice No: THTT2025060001
Consumption Details:
Statement Advertiser Consumption Voucher Net
ST100001 pk|40109|SDH_pk_th-single-detached-house-centro-ratchapruek-3_none_Traffic_Responsive_GDNQ2Y25_[ST]|2089P22 18,550.72 0.00 18,550.72
ST100002 pk|CD_pk_60029|CD_pk_th-condominium-rhythm-ekkamai_none_Traffic_tiktok_VDO_TTQ2Y25_[ST]|1972P04 4,000.00 0.00 4,000.00
Total in THB: 22,550.72`

func TestExtract_TikTokAttributed(t *testing.T) {
	e := New(nil, Options{})

	items, res, err := e.Extract(context.Background(), tiktokInvoiceDoc, "THTT2025060001.pdf", nil)

	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, constants.PlatformTikTok, first.Platform)
	assert.Equal(t, constants.InvoiceAttributed, first.InvoiceType)
	assert.Equal(t, "THTT2025060001", first.InvoiceID)
	assert.Equal(t, 1, first.LineNumber)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("18550.72")))
	require.NotNil(t, first.Attribution)
	assert.Equal(t, "40109", first.Attribution.ProjectID)
	assert.Equal(t, "2089P22", first.Attribution.CampaignID)
	assert.Contains(t, first.Description, "pk|40109")

	second := items[1]
	assert.Equal(t, 2, second.LineNumber)
	assert.True(t, second.Amount.Equal(decimal.RequireFromString("4000.00")))
	require.NotNil(t, second.Attribution)
	assert.Equal(t, "60029", second.Attribution.ProjectID)

	assert.True(t, res.WithinTolerance)
	require.NotNil(t, res.ExpectedTotal)
	assert.True(t, res.ExpectedTotal.Equal(decimal.RequireFromString("22550.72")))
	assert.True(t, res.ComputedTotal.Equal(decimal.RequireFromString("22550.72")))
}

func TestExtract_MetaDowngradesWithoutCampaignCodes(t *testing.T) {
	// Row markers plus a pk| delimiter classify as attributed, but no row
	// actually parses a full campaign code, so the flavor drops to plain.
	doc := `Meta Platforms Ireland Limited
Invoice Number: 123456789
ar@meta.com
1
Instagram - pk|40110|CD_pk_th-life-bangna_none_Awareness_JUN25
1,200.00
Amount Due: 1,200.00`

	e := New(nil, Options{})
	items, res, err := e.Extract(context.Background(), doc, "241234567890.pdf", nil)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, constants.PlatformMeta, items[0].Platform)
	assert.Equal(t, constants.InvoicePlain, items[0].InvoiceType)
	assert.Equal(t, "123456789", items[0].InvoiceID)
	assert.Nil(t, items[0].Attribution)
	assert.True(t, items[0].Amount.Equal(decimal.RequireFromString("1200.00")))
	assert.True(t, res.WithinTolerance)
}

func TestExtract_SummaryFallbackWhenNoRows(t *testing.T) {
	doc := `Google Ads
Invoice number: 5298528895
Summary for June 2025`

	expected := decimal.RequireFromString("7756.04")
	e := New(nil, Options{})
	items, res, err := e.Extract(context.Background(), doc, "5298528895.pdf", &expected)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, constants.PlatformGoogle, items[0].Platform)
	assert.Equal(t, "5298528895", items[0].InvoiceID)
	assert.True(t, items[0].Amount.Equal(expected))
	assert.True(t, res.WithinTolerance)
	assert.True(t, res.ComputedTotal.Equal(expected))
}

func TestExtract_GoogleCreditNote(t *testing.T) {
	doc := `Google Asia Pacific Pte. Ltd.
หมายเลขใบแจ้งหนี้: 5297692790
ใบลดหนี้
จำนวนเงินรวมที่ต้องชำระในสกุลเงิน THB -฿6,284.42`

	e := New(nil, Options{})
	items, res, err := e.Extract(context.Background(), doc, "5297692790.pdf", nil)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, constants.InvoiceAdjustment, items[0].InvoiceType)
	assert.True(t, items[0].Amount.Equal(decimal.RequireFromString("-6284.42")))
	assert.True(t, res.WithinTolerance)
}

func TestExtract_UnknownPlatform(t *testing.T) {
	e := New(nil, Options{})

	items, res, err := e.Extract(context.Background(), "Office supplies invoice 99.99", "random.pdf", nil)

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.True(t, res.ComputedTotal.IsZero())
	assert.True(t, res.WithinTolerance)
}

func TestExtract_EmptyInput(t *testing.T) {
	e := New(nil, Options{})

	_, _, err := e.Extract(context.Background(), "   \n\t ", "empty.pdf", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrEmptyInput)
}

func TestExtract_Idempotent(t *testing.T) {
	e := New(nil, Options{})

	first, res1, err1 := e.Extract(context.Background(), tiktokInvoiceDoc, "THTT2025060001.pdf", nil)
	second, res2, err2 := e.Extract(context.Background(), tiktokInvoiceDoc, "THTT2025060001.pdf", nil)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.Equal(t, res1, res2)
}

func TestExtract_MinAmountOption(t *testing.T) {
	doc := `Consumption Details:
ST100001 pk|40109|SDH_pk_th-centro_none_Traffic_Q2Y25_[ST]|2089P22 rate 0.42 total 3,120.00
Total in THB: 3,120.00
TikTok advertising`

	e := New(nil, Options{MinAmount: decimal.RequireFromString("1.00")})
	items, _, err := e.Extract(context.Background(), doc, "statement.pdf", nil)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Amount.Equal(decimal.RequireFromString("3120.00")))
}
