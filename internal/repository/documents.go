package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/peerapong/invoice-reader/constants"
	"github.com/peerapong/invoice-reader/internal/common"
)

// Document is one uploaded invoice file plus its classification and
// reconciliation outcome.
type Document struct {
	ID              uuid.UUID
	Filename        string
	Format          string
	Platform        constants.Platform
	InvoiceType     constants.InvoiceType
	InvoiceID       string
	ExpectedTotal   *decimal.Decimal
	ComputedTotal   decimal.Decimal
	WithinTolerance bool
	UploadedAt      time.Time
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id uuid.UUID) (*Document, error)
	UpdateResult(ctx context.Context, doc *Document) error
	List(ctx context.Context, limit int) ([]*Document, error)
}

type documentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDocumentRepository(pool *pgxpool.Pool, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{pool: pool, logger: logger}
}

func (r *documentRepository) Create(ctx context.Context, doc *Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (id, filename, format, platform, invoice_type, invoice_id,
			expected_total, computed_total, within_tolerance, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.Filename, doc.Format, string(doc.Platform), string(doc.InvoiceType),
		doc.InvoiceID, decimalOrNil(doc.ExpectedTotal), doc.ComputedTotal.StringFixed(2),
		doc.WithinTolerance, doc.UploadedAt,
	)
	if err != nil {
		r.logger.Error("failed to create document", "filename", doc.Filename, "error", err)
		return common.WrapError(err, "create document")
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, filename, format, platform, invoice_type, invoice_id,
			expected_total::text, computed_total::text, within_tolerance, uploaded_at
		FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "get document")
	}
	return doc, nil
}

func (r *documentRepository) UpdateResult(ctx context.Context, doc *Document) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET platform = $2, invoice_type = $3, invoice_id = $4,
			expected_total = $5, computed_total = $6, within_tolerance = $7
		WHERE id = $1`,
		doc.ID, string(doc.Platform), string(doc.InvoiceType), doc.InvoiceID,
		decimalOrNil(doc.ExpectedTotal), doc.ComputedTotal.StringFixed(2), doc.WithinTolerance,
	)
	if err != nil {
		return common.WrapError(err, "update document")
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *documentRepository) List(ctx context.Context, limit int) ([]*Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, filename, format, platform, invoice_type, invoice_id,
			expected_total::text, computed_total::text, within_tolerance, uploaded_at
		FROM documents ORDER BY uploaded_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, common.WrapError(err, "list documents")
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, common.WrapError(err, "list documents")
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(row pgx.Row) (*Document, error) {
	var (
		doc      Document
		platform, invType string
		expected *string
		computed string
	)
	err := row.Scan(&doc.ID, &doc.Filename, &doc.Format, &platform, &invType,
		&doc.InvoiceID, &expected, &computed, &doc.WithinTolerance, &doc.UploadedAt)
	if err != nil {
		return nil, err
	}
	doc.Platform = constants.Platform(platform)
	doc.InvoiceType = constants.InvoiceType(invType)
	if expected != nil {
		if d, err := decimal.NewFromString(*expected); err == nil {
			doc.ExpectedTotal = &d
		}
	}
	if d, err := decimal.NewFromString(computed); err == nil {
		doc.ComputedTotal = d
	}
	return &doc, nil
}

func decimalOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.StringFixed(2)
}
