package constants

// Platform identifies the advertising platform that issued an invoice.
type Platform string

// Stable values (store these exact strings in DB and API payloads).
const (
	PlatformGoogle  Platform = "GoogleAds"
	PlatformMeta    Platform = "MetaAds"
	PlatformTikTok  Platform = "TikTokAds"
	PlatformUnknown Platform = "Unknown"
)

// InvoiceType is the flavor of an invoice document.
type InvoiceType string

const (
	// InvoiceAttributed carries campaign-coded (AP) line items.
	InvoiceAttributed InvoiceType = "Attributed"
	// InvoicePlain carries generic, unattributed charges (Non-AP).
	InvoicePlain InvoiceType = "Plain"
	// InvoiceAdjustment is a credit/refund note, generally net-negative.
	InvoiceAdjustment InvoiceType = "Adjustment"
)
