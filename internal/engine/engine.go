package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/peerapong/invoice-reader/constants"
	"github.com/peerapong/invoice-reader/internal/common"
)

// Engine is the per-document extraction pipeline. It is stateless and safe
// for concurrent use; every Extract call owns its intermediate values.
type Engine struct {
	normalizer Normalizer
	minAmount  decimal.Decimal
	logger     *slog.Logger
}

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	FragmentThreshold float64
	MinAmount         decimal.Decimal
}

func New(logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		normalizer: Normalizer{FragmentThreshold: opts.FragmentThreshold},
		minAmount:  opts.MinAmount,
		logger:     logger,
	}
}

// reCampaignDesc recovers the canonical campaign-code string for use as a
// line-item description.
var reCampaignDesc = regexp.MustCompile(`pk\|.*?\[ST\](\|[A-Z0-9]+)?`)

// Extract runs the full pipeline on one document and returns the line
// items together with the reconciliation result. All recoverable
// conditions (no table, rows without amounts, grammar mismatches,
// reconciliation mismatches) are handled locally and logged; the only hard
// failure is empty input.
func (e *Engine) Extract(ctx context.Context, rawText, filename string, expected *decimal.Decimal) ([]LineItem, ReconciliationResult, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ReconciliationResult{WithinTolerance: true}, fmt.Errorf("extract %q: %w", filename, common.ErrEmptyInput)
	}

	raw := NewRawDocument(rawText, filename)
	norm := e.normalizer.Normalize(raw)
	if norm.WasFragmented {
		e.logger.DebugContext(ctx, "engine.normalize.reconstructed", "filename", filename)
	}

	cls := Classify(norm, filename)
	e.logger.InfoContext(ctx, "engine.classify",
		"filename", filename,
		"platform", cls.Platform,
		"flavor", cls.Flavor,
	)

	adapter, ok := AdapterFor(cls.Platform)
	if !ok {
		// Unclassifiable: empty output, zero total, no error.
		e.logger.WarnContext(ctx, "engine.classify.unknown", "filename", filename)
		return nil, Reconcile(nil, nil), nil
	}

	invoiceID := adapter.InvoiceID(norm.Text, filename)

	exp := expected
	if exp == nil {
		if total, found := adapter.DocumentTotal(norm.Text); found {
			exp = &total
		}
	}

	segments := Segment(norm, adapter)
	if segments == nil {
		e.logger.DebugContext(ctx, "engine.segment.no_table", "filename", filename)
	}

	items := make([]LineItem, 0, len(segments))
	attributed := false
	hints := adapter.AmountHints()
	if !e.minAmount.IsZero() {
		hints.Min = e.minAmount
	}

	for _, seg := range segments {
		amount := ResolveAmount(seg, hints)
		if amount == nil {
			e.logger.DebugContext(ctx, "engine.row.no_amount",
				"filename", filename, "start", seg.StartOffset, "end", seg.EndOffset)
			continue
		}

		attr := ParseCampaignCode(seg.Joined())
		if attr != nil {
			attributed = true
		}

		items = append(items, LineItem{
			Platform:    cls.Platform,
			InvoiceID:   invoiceID,
			InvoiceType: cls.Flavor,
			LineNumber:  len(items) + 1,
			Amount:      *amount,
			Description: rowDescription(seg, attr),
			Attribution: attr,
		})
	}

	// Attributed requires at least one row with a valid campaign code.
	if cls.Flavor == constants.InvoiceAttributed && !attributed {
		e.logger.DebugContext(ctx, "engine.classify.downgrade", "filename", filename)
		cls.Flavor = constants.InvoicePlain
		for i := range items {
			items[i].InvoiceType = constants.InvoicePlain
		}
	}

	// Graceful degradation: a document that produced no detailed rows but
	// has a known total is emitted as a single summary item rather than
	// being dropped.
	if len(items) == 0 && exp != nil {
		e.logger.InfoContext(ctx, "engine.fallback.summary_item",
			"filename", filename, "total", exp.StringFixed(2))
		items = append(items, LineItem{
			Platform:    cls.Platform,
			InvoiceID:   invoiceID,
			InvoiceType: cls.Flavor,
			LineNumber:  1,
			Amount:      *exp,
			Description: fmt.Sprintf("%s %s invoice total", cls.Platform, cls.Flavor),
		})
	}

	result := Reconcile(items, exp)
	if !result.WithinTolerance {
		e.logger.WarnContext(ctx, "engine.reconcile.mismatch",
			"filename", filename,
			"computed", result.ComputedTotal.StringFixed(2),
			"expected", exp.StringFixed(2),
			"delta", result.Delta.StringFixed(2),
		)
	}

	return items, result, nil
}

func rowDescription(seg RowSegment, attr *CampaignAttribution) string {
	joined := reSpaces.ReplaceAllString(seg.Joined(), " ")
	if attr != nil {
		collapsed := strings.ReplaceAll(joined, " |", "|")
		collapsed = strings.ReplaceAll(collapsed, "| ", "|")
		if code := reCampaignDesc.FindString(collapsed); code != "" {
			return code
		}
	}
	// Strip trailing amount columns from plain descriptions.
	desc := strings.TrimSpace(reMoney.ReplaceAllString(joined, ""))
	return truncate(desc, 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
