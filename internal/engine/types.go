// Package engine implements the invoice line-item extraction and
// reconciliation pipeline: text normalization, platform/flavor
// classification, row segmentation, campaign-code parsing, amount
// resolution and total reconciliation.
//
// A pipeline run owns all of its intermediate values; nothing here keeps
// state between documents, so runs for different documents may execute
// concurrently without coordination.
package engine

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/peerapong/invoice-reader/constants"
)

// RawDocument is the immutable input of a pipeline run: the concatenated
// text of one uploaded document plus the original filename used for
// platform-hint heuristics.
type RawDocument struct {
	Filename     string
	PlatformHint string
	Pages        []string
}

// NewRawDocument splits extracted text into pages on form feeds.
// Extractors that emit plain newlines as page breaks yield one page,
// which is fine: nothing downstream requires page boundaries.
func NewRawDocument(text, filename string) RawDocument {
	pages := strings.Split(text, "\f")
	return RawDocument{Filename: filename, Pages: pages}
}

// Text returns the document text with pages rejoined.
func (d RawDocument) Text() string {
	return strings.Join(d.Pages, "\n")
}

// NormalizedText is the cleaned, reconstructed document text.
type NormalizedText struct {
	Text          string
	Lines         []string
	WasFragmented bool
}

// InvoiceClassification is the platform/flavor decision for a document.
type InvoiceClassification struct {
	Platform constants.Platform
	Flavor   constants.InvoiceType
}

// RowSegment is the contiguous span of normalized lines belonging to one
// billable row of the consumption table. Offsets are line indexes into
// NormalizedText.Lines; segments never overlap and appear in document order.
type RowSegment struct {
	RawLines    []string
	StartOffset int
	EndOffset   int
}

// Joined returns the segment lines joined with single spaces.
func (s RowSegment) Joined() string {
	return strings.Join(s.RawLines, " ")
}

// CampaignAttribution holds the structured fields parsed from one
// campaign-code token. Empty fields were not present in the code; they are
// never guessed. Confidence is a weighted sum over populated fields.
type CampaignAttribution struct {
	Agency      string  `json:"agency,omitempty"`
	ProjectID   string  `json:"projectId,omitempty"`
	ProjectName string  `json:"projectName,omitempty"`
	Objective   string  `json:"objective,omitempty"`
	Period      string  `json:"period,omitempty"`
	CampaignID  string  `json:"campaignId,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// LineItem is the terminal entity of a pipeline run. Amount is signed:
// credits and refunds are negative. LineNumber is 1-based and strictly
// increasing in emission order. Items are immutable once constructed.
type LineItem struct {
	Platform    constants.Platform
	InvoiceID   string
	InvoiceType constants.InvoiceType
	LineNumber  int
	Amount      decimal.Decimal
	Description string
	Attribution *CampaignAttribution
}

// Record is the flat key/value serialization of a LineItem consumed by the
// API and export layers.
type Record struct {
	Platform    string `json:"platform"`
	InvoiceID   string `json:"invoiceId"`
	InvoiceType string `json:"invoiceType"`
	LineNumber  int    `json:"lineNumber"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Agency      string `json:"agency,omitempty"`
	ProjectID   string `json:"projectId,omitempty"`
	ProjectName string `json:"projectName,omitempty"`
	Objective   string `json:"objective,omitempty"`
	Period      string `json:"period,omitempty"`
	CampaignID  string `json:"campaignId,omitempty"`
}

// Record flattens the item for serialization.
func (li LineItem) Record() Record {
	r := Record{
		Platform:    string(li.Platform),
		InvoiceID:   li.InvoiceID,
		InvoiceType: string(li.InvoiceType),
		LineNumber:  li.LineNumber,
		Amount:      li.Amount.StringFixed(2),
		Description: li.Description,
	}
	if a := li.Attribution; a != nil {
		r.Agency = a.Agency
		r.ProjectID = a.ProjectID
		r.ProjectName = a.ProjectName
		r.Objective = a.Objective
		r.Period = a.Period
		r.CampaignID = a.CampaignID
	}
	return r
}

// ReconciliationResult reports the computed total against the expected one.
// It is advisory only: it never removes or rescales line items.
type ReconciliationResult struct {
	ComputedTotal   decimal.Decimal  `json:"computedTotal"`
	ExpectedTotal   *decimal.Decimal `json:"expectedTotal,omitempty"`
	WithinTolerance bool             `json:"withinTolerance"`
	Delta           decimal.Decimal  `json:"delta"`
}
