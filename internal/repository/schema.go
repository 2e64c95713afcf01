package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peerapong/invoice-reader/internal/common"
)

// schema is the bootstrap DDL. Amounts are NUMERIC(14,2): THB invoice
// totals never need more precision and floats would drift on vouchers.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id               UUID PRIMARY KEY,
	filename         TEXT NOT NULL,
	format           TEXT NOT NULL,
	platform         TEXT NOT NULL DEFAULT 'Unknown',
	invoice_type     TEXT NOT NULL DEFAULT 'Plain',
	invoice_id       TEXT NOT NULL DEFAULT '',
	expected_total   NUMERIC(14,2),
	computed_total   NUMERIC(14,2) NOT NULL DEFAULT 0,
	within_tolerance BOOLEAN NOT NULL DEFAULT TRUE,
	uploaded_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS extract_jobs (
	id            UUID PRIMARY KEY,
	document_id   UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	status        TEXT NOT NULL,
	method        TEXT NOT NULL DEFAULT '',
	pages         INT NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS line_items (
	id           UUID PRIMARY KEY,
	document_id  UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	line_number  INT NOT NULL,
	platform     TEXT NOT NULL,
	invoice_id   TEXT NOT NULL,
	invoice_type TEXT NOT NULL,
	amount       NUMERIC(14,2) NOT NULL,
	description  TEXT NOT NULL,
	agency       TEXT NOT NULL DEFAULT '',
	project_id   TEXT NOT NULL DEFAULT '',
	project_name TEXT NOT NULL DEFAULT '',
	objective    TEXT NOT NULL DEFAULT '',
	period       TEXT NOT NULL DEFAULT '',
	campaign_id  TEXT NOT NULL DEFAULT '',
	confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
	UNIQUE (document_id, line_number)
);

CREATE INDEX IF NOT EXISTS line_items_document_idx ON line_items (document_id);
CREATE INDEX IF NOT EXISTS extract_jobs_document_idx ON extract_jobs (document_id);
`

// Migrate applies the bootstrap schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return common.WrapError(err, "apply schema")
	}
	return nil
}
