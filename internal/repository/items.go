package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/peerapong/invoice-reader/constants"
	"github.com/peerapong/invoice-reader/internal/common"
	"github.com/peerapong/invoice-reader/internal/engine"
)

type LineItemRepository interface {
	// ReplaceForDocument persists line items atomically, replacing any
	// earlier run over the same document so reprocessing stays idempotent.
	ReplaceForDocument(ctx context.Context, documentID uuid.UUID, items []engine.LineItem) error
	ListForDocument(ctx context.Context, documentID uuid.UUID) ([]engine.LineItem, error)
}

type lineItemRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewLineItemRepository(pool *pgxpool.Pool, logger *slog.Logger) LineItemRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &lineItemRepository{pool: pool, logger: logger}
}

func (r *lineItemRepository) ReplaceForDocument(ctx context.Context, documentID uuid.UUID, items []engine.LineItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return common.WrapError(err, "begin line items tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM line_items WHERE document_id = $1`, documentID); err != nil {
		return common.WrapError(err, "clear line items")
	}

	for _, li := range items {
		attr := li.Attribution
		if attr == nil {
			attr = &engine.CampaignAttribution{}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO line_items (id, document_id, line_number, platform, invoice_id,
				invoice_type, amount, description, agency, project_id, project_name,
				objective, period, campaign_id, confidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			uuid.New(), documentID, li.LineNumber, string(li.Platform), li.InvoiceID,
			string(li.InvoiceType), li.Amount.StringFixed(2), li.Description,
			attr.Agency, attr.ProjectID, attr.ProjectName,
			attr.Objective, attr.Period, attr.CampaignID, attr.Confidence,
		)
		if err != nil {
			r.logger.Error("failed to insert line item",
				"document_id", documentID, "line_number", li.LineNumber, "error", err)
			return common.WrapError(err, "insert line item")
		}
	}

	return common.WrapError(tx.Commit(ctx), "commit line items")
}

func (r *lineItemRepository) ListForDocument(ctx context.Context, documentID uuid.UUID) ([]engine.LineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT line_number, platform, invoice_id, invoice_type, amount::text, description,
			agency, project_id, project_name, objective, period, campaign_id, confidence
		FROM line_items WHERE document_id = $1 ORDER BY line_number`, documentID)
	if err != nil {
		return nil, common.WrapError(err, "list line items")
	}
	defer rows.Close()

	var items []engine.LineItem
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, common.WrapError(err, "list line items")
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func scanLineItem(row pgx.Row) (engine.LineItem, error) {
	var (
		li               engine.LineItem
		platform, invType, amount string
		attr             engine.CampaignAttribution
	)
	err := row.Scan(&li.LineNumber, &platform, &li.InvoiceID, &invType, &amount,
		&li.Description, &attr.Agency, &attr.ProjectID, &attr.ProjectName,
		&attr.Objective, &attr.Period, &attr.CampaignID, &attr.Confidence)
	if err != nil {
		return engine.LineItem{}, err
	}
	li.Platform = constants.Platform(platform)
	li.InvoiceType = constants.InvoiceType(invType)
	if d, err := decimal.NewFromString(amount); err == nil {
		li.Amount = d
	}
	if attr != (engine.CampaignAttribution{}) {
		li.Attribution = &attr
	}
	return li, nil
}
