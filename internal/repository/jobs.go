package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peerapong/invoice-reader/constants"
	"github.com/peerapong/invoice-reader/internal/common"
)

// ExtractJob tracks one pipeline run over a document through its status
// transitions: QUEUED -> RUNNING -> EXTRACT_OK -> PARSED, or FAILED.
type ExtractJob struct {
	ID           uuid.UUID
	DocumentID   uuid.UUID
	Status       constants.JobStatus
	Method       string
	Pages        int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

type JobRepository interface {
	Enqueue(ctx context.Context, documentID uuid.UUID) (*ExtractJob, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	MarkExtracted(ctx context.Context, id uuid.UUID, method string, pages int) error
	MarkParsed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
}

type jobRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewJobRepository(pool *pgxpool.Pool, logger *slog.Logger) JobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobRepository{pool: pool, logger: logger}
}

func (r *jobRepository) Enqueue(ctx context.Context, documentID uuid.UUID) (*ExtractJob, error) {
	job := &ExtractJob{
		ID:         uuid.New(),
		DocumentID: documentID,
		Status:     constants.JobStatusQueued,
		StartedAt:  time.Now().UTC(),
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO extract_jobs (id, document_id, status, started_at)
		VALUES ($1, $2, $3, $4)`,
		job.ID, job.DocumentID, string(job.Status), job.StartedAt,
	)
	if err != nil {
		r.logger.Error("failed to enqueue job", "document_id", documentID, "error", err)
		return nil, common.WrapError(err, "enqueue job")
	}
	return job, nil
}

func (r *jobRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, constants.JobStatusRunning, "UPDATE extract_jobs SET status = $2 WHERE id = $1")
}

func (r *jobRepository) MarkExtracted(ctx context.Context, id uuid.UUID, method string, pages int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE extract_jobs SET status = $2, method = $3, pages = $4 WHERE id = $1`,
		id, string(constants.JobStatusExtracted), method, pages,
	)
	return common.WrapError(err, "mark job extracted")
}

func (r *jobRepository) MarkParsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE extract_jobs SET status = $2, finished_at = now() WHERE id = $1`,
		id, string(constants.JobStatusParsed),
	)
	return common.WrapError(err, "mark job parsed")
}

func (r *jobRepository) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE extract_jobs SET status = $2, error_message = $3, finished_at = now() WHERE id = $1`,
		id, string(constants.JobStatusFailed), msg,
	)
	return common.WrapError(err, "mark job failed")
}

func (r *jobRepository) setStatus(ctx context.Context, id uuid.UUID, status constants.JobStatus, query string) error {
	_, err := r.pool.Exec(ctx, query, id, string(status))
	return common.WrapError(err, "set job status")
}
