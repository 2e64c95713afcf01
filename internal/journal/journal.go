// Package journal persists batch-run outcomes to a local SQLite file so an
// interrupted run over an invoice directory can resume without reprocessing
// the files it already finished.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/peerapong/invoice-reader/internal/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS batch_entries (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	filename       TEXT NOT NULL,
	checksum       TEXT NOT NULL,
	status         TEXT NOT NULL,
	platform       TEXT NOT NULL DEFAULT '',
	invoice_type   TEXT NOT NULL DEFAULT '',
	item_count     INTEGER NOT NULL DEFAULT 0,
	computed_total TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT '',
	processed_at   INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_batch_entries_file ON batch_entries(filename, checksum);
`

// Entry is one processed file's outcome.
type Entry struct {
	Filename      string
	Checksum      string
	Status        string
	Platform      string
	InvoiceType   string
	ItemCount     int
	ComputedTotal string
	Error         string
}

// Journal is a batch-run ledger backed by SQLite. Safe for use from the
// worker pool: database/sql serializes access and the driver runs with a
// busy timeout.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the journal file and applies the schema.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open journal")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, common.WrapError(err, "configure journal")
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, common.WrapError(err, "init journal schema")
	}
	return &Journal{db: db, logger: logger}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Seen reports whether a file with this checksum was already recorded as
// successfully processed.
func (j *Journal) Seen(ctx context.Context, filename, checksum string) (bool, error) {
	var status string
	err := j.db.QueryRowContext(ctx,
		`SELECT status FROM batch_entries WHERE filename = ? AND checksum = ?`,
		filename, checksum,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, common.WrapError(err, "query journal")
	}
	return status == "ok", nil
}

// Record upserts one file outcome. A retry of a previously failed file
// overwrites the failed entry.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO batch_entries
			(filename, checksum, status, platform, invoice_type, item_count, computed_total, error, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename, checksum) DO UPDATE SET
			status = excluded.status,
			platform = excluded.platform,
			invoice_type = excluded.invoice_type,
			item_count = excluded.item_count,
			computed_total = excluded.computed_total,
			error = excluded.error,
			processed_at = excluded.processed_at`,
		e.Filename, e.Checksum, e.Status, e.Platform, e.InvoiceType,
		e.ItemCount, e.ComputedTotal, e.Error, time.Now().Unix(),
	)
	if err != nil {
		j.logger.Error("failed to record journal entry", "filename", e.Filename, "error", err)
		return common.WrapError(err, "record journal entry")
	}
	return nil
}

// Summary returns processed/failed counts for the whole journal.
func (j *Journal) Summary(ctx context.Context) (ok, failed int, err error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM batch_entries GROUP BY status`)
	if err != nil {
		return 0, 0, common.WrapError(err, "journal summary")
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return 0, 0, common.WrapError(err, "journal summary")
		}
		if status == "ok" {
			ok = n
		} else {
			failed += n
		}
	}
	return ok, failed, rows.Err()
}
