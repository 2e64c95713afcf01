// Package pipeline coordinates the two-stage document flow: text
// extraction (PDF text layer, OCR fallback) and line-item parsing with
// reconciliation. Each stage advances the document's extract job so a
// crashed run leaves an inspectable status behind.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/peerapong/invoice-reader/constants"
	"github.com/peerapong/invoice-reader/internal/common"
	"github.com/peerapong/invoice-reader/internal/engine"
	"github.com/peerapong/invoice-reader/internal/extract"
	"github.com/peerapong/invoice-reader/internal/repository"
)

// Result is the outcome of one full pipeline run.
type Result struct {
	Document *repository.Document
	JobID    uuid.UUID
	Items    []engine.LineItem
	Recon    engine.ReconciliationResult
}

// Processor coordinates extraction then parsing for one document.
type Processor struct {
	logger    *slog.Logger
	extractor extract.TextExtractor
	engine    *engine.Engine
	documents repository.DocumentRepository
	jobs      repository.JobRepository
	items     repository.LineItemRepository
}

func NewProcessor(
	logger *slog.Logger,
	extractor extract.TextExtractor,
	eng *engine.Engine,
	documents repository.DocumentRepository,
	jobs repository.JobRepository,
	items repository.LineItemRepository,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		extractor: extractor,
		engine:    eng,
		documents: documents,
		jobs:      jobs,
		items:     items,
	}
}

// ProcessFile runs the full pipeline on one uploaded file: register the
// document, extract text, parse line items, persist everything. The
// expected total is optional; when nil the engine falls back to the
// document-level total it finds in the text.
func (p *Processor) ProcessFile(ctx context.Context, path, originalName string, expected *decimal.Decimal) (*Result, error) {
	if originalName == "" {
		originalName = filepath.Base(path)
	}

	doc := &repository.Document{
		Filename:    originalName,
		Format:      constants.MapExtToFormat(filepath.Ext(originalName)),
		Platform:    constants.PlatformUnknown,
		InvoiceType: constants.InvoicePlain,
	}
	if err := p.documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	job, err := p.jobs.Enqueue(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	res, err := p.run(ctx, job.ID, doc, path, expected)
	if err != nil {
		if ferr := p.jobs.MarkFailed(ctx, job.ID, err); ferr != nil {
			p.logger.Error("processor.job.mark_failed", "job_id", job.ID, "err", ferr)
		}
		return nil, err
	}
	return res, nil
}

func (p *Processor) run(ctx context.Context, jobID uuid.UUID, doc *repository.Document, path string, expected *decimal.Decimal) (*Result, error) {
	if err := p.jobs.MarkRunning(ctx, jobID); err != nil {
		return nil, err
	}

	// Stage 1: file -> text.
	text, err := p.extractor.Extract(ctx, path)
	if err != nil {
		p.logger.Error("processor.extract.failed", "document_id", doc.ID, "err", err)
		return nil, err
	}
	for _, w := range text.Warnings {
		p.logger.Warn("processor.extract.warning", "document_id", doc.ID, "warning", w)
	}
	if err := p.jobs.MarkExtracted(ctx, jobID, text.Method, text.Pages); err != nil {
		return nil, err
	}
	p.logger.Info("processor.extract.ok",
		"document_id", doc.ID,
		"job_id", jobID,
		"method", text.Method,
		"pages", text.Pages,
	)

	// Stage 2: text -> line items + reconciliation.
	items, recon, err := p.engine.Extract(ctx, text.Text, doc.Filename, expected)
	if err != nil {
		p.logger.Error("processor.parse.failed", "document_id", doc.ID, "err", err)
		return nil, err
	}

	if len(items) > 0 {
		doc.Platform = items[0].Platform
		doc.InvoiceType = items[0].InvoiceType
		doc.InvoiceID = items[0].InvoiceID
	}
	doc.ExpectedTotal = recon.ExpectedTotal
	doc.ComputedTotal = recon.ComputedTotal
	doc.WithinTolerance = recon.WithinTolerance

	if err := p.items.ReplaceForDocument(ctx, doc.ID, items); err != nil {
		return nil, common.WrapError(err, "persist line items")
	}
	if err := p.documents.UpdateResult(ctx, doc); err != nil {
		return nil, err
	}
	if err := p.jobs.MarkParsed(ctx, jobID); err != nil {
		return nil, err
	}
	p.logger.Info("processor.parse.ok",
		"document_id", doc.ID,
		"job_id", jobID,
		"platform", doc.Platform,
		"items", len(items),
		"within_tolerance", recon.WithinTolerance,
	)

	return &Result{Document: doc, JobID: jobID, Items: items, Recon: recon}, nil
}
