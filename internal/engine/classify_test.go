package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peerapong/invoice-reader/constants"
)

func normalized(text string) NormalizedText {
	return Normalizer{}.Normalize(NewRawDocument(text, ""))
}

func TestClassify_PlatformByFilenamePrefix(t *testing.T) {
	tests := []struct {
		filename string
		want     constants.Platform
	}{
		{"THTT2025060001.pdf", constants.PlatformTikTok},
		{"5298528895.pdf", constants.PlatformGoogle},
		{"247001234.pdf", constants.PlatformMeta},
		{"uploads/5298528895.pdf", constants.PlatformGoogle},
	}
	for _, tt := range tests {
		got := Classify(normalized("no brand keywords here"), tt.filename)
		assert.Equal(t, tt.want, got.Platform, tt.filename)
	}
}

func TestClassify_PlatformByContentKeyword(t *testing.T) {
	tests := []struct {
		name string
		text string
		want constants.Platform
	}{
		{"bytedance", "ByteDance Pte. Ltd.\nConsumption Details:", constants.PlatformTikTok},
		{"meta", "Meta Platforms Ireland Limited\nInvoice", constants.PlatformMeta},
		{"google", "Google Asia Pacific Pte. Ltd.\nInvoice number: 5", constants.PlatformGoogle},
		{"unknown", "Some Other Vendor Co.\nInvoice", constants.PlatformUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(normalized(tt.text), "invoice.pdf")
			assert.Equal(t, tt.want, got.Platform)
		})
	}
}

func TestClassify_FilenamePrefixWinsOverContent(t *testing.T) {
	// Priority order is deterministic: prefix rule first.
	got := Classify(normalized("Google Asia Pacific"), "THTT2025060001.pdf")
	assert.Equal(t, constants.PlatformTikTok, got.Platform)
}

func TestClassify_AttributedRequiresBothTokens(t *testing.T) {
	withBoth := "Meta Platforms\n1\npk|40109|SDH_x_[ST]|2089P22\n1,000.00\n"
	withoutCode := "Meta Platforms\n1\nGeneric boost charge\n1,000.00\n"
	withoutMarker := "Meta Platforms\nGeneric charge pk missing pipes\n1,000.00\n"

	assert.Equal(t, constants.InvoiceAttributed, Classify(normalized(withBoth), "x.pdf").Flavor)
	assert.Equal(t, constants.InvoicePlain, Classify(normalized(withoutCode), "x.pdf").Flavor)
	assert.Equal(t, constants.InvoicePlain, Classify(normalized(withoutMarker), "x.pdf").Flavor)
}

func TestClassify_NegativeTotalIsAdjustment(t *testing.T) {
	text := "Google Asia Pacific\nใบลดหนี้\nจำนวนเงินรวมที่ต้องชำระในสกุลเงิน THB -6,284.42\n"
	got := Classify(normalized(text), "5297692790.pdf")

	assert.Equal(t, constants.PlatformGoogle, got.Platform)
	assert.Equal(t, constants.InvoiceAdjustment, got.Flavor)
}

func TestClassify_UnknownPlatformIsPlain(t *testing.T) {
	got := Classify(normalized("nothing recognizable"), "invoice.pdf")
	assert.Equal(t, constants.PlatformUnknown, got.Platform)
	assert.Equal(t, constants.InvoicePlain, got.Flavor)
}
