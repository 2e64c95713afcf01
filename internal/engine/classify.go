package engine

import (
	"strings"

	"github.com/peerapong/invoice-reader/constants"
)

// campaignDelimiter is the start of every campaign-code token.
const campaignDelimiter = "pk|"

// attributionMarker is the bracketed literal that closes a campaign-code
// head and introduces the campaign id.
const attributionMarker = "[ST]"

// Classify decides platform and flavor for a normalized document.
//
// Platform is a pure priority list: filename prefix convention first, then
// a brand keyword in the content, then Unknown. Flavor is a decision table:
// Attributed when a row-start marker and the campaign-code delimiter
// co-occur; Adjustment when the independently extracted document total is
// negative and no attributable row exists; Plain otherwise.
func Classify(text NormalizedText, filename string) InvoiceClassification {
	platform := classifyPlatform(text.Text, filename)

	adapter, ok := AdapterFor(platform)
	if !ok {
		return InvoiceClassification{Platform: constants.PlatformUnknown, Flavor: constants.InvoicePlain}
	}

	return InvoiceClassification{
		Platform: platform,
		Flavor:   classifyFlavor(text, adapter),
	}
}

func classifyPlatform(text, filename string) constants.Platform {
	base := filename
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	switch {
	case strings.HasPrefix(base, "THTT"):
		return constants.PlatformTikTok
	case strings.HasPrefix(base, "5"):
		return constants.PlatformGoogle
	case strings.HasPrefix(base, "24"):
		return constants.PlatformMeta
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "tiktok") || strings.Contains(lower, "bytedance"):
		return constants.PlatformTikTok
	case strings.Contains(lower, "facebook") || strings.Contains(lower, "meta platforms") || strings.Contains(lower, "instagram"):
		return constants.PlatformMeta
	case strings.Contains(lower, "google"):
		return constants.PlatformGoogle
	}
	return constants.PlatformUnknown
}

func classifyFlavor(text NormalizedText, adapter PlatformAdapter) constants.InvoiceType {
	hasDelimiter := strings.Contains(text.Text, campaignDelimiter)
	hasRowMarker := strings.Contains(text.Text, attributionMarker)
	if !hasRowMarker {
		for _, line := range text.Lines {
			if adapter.RowStart(line) {
				hasRowMarker = true
				break
			}
		}
	}
	if hasRowMarker && hasDelimiter {
		return constants.InvoiceAttributed
	}

	if total, ok := adapter.DocumentTotal(text.Text); ok && total.IsNegative() {
		return constants.InvoiceAdjustment
	}
	return constants.InvoicePlain
}
