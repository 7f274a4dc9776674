package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL. Every guarded
// transition is a single conditional UPDATE so that concurrent duplicate
// requests are serialized by the database rather than by in-process locking.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, user_id, input_url, output_url, prompt, status, payment_status,
checkout_session_id, payment_intent_id, payment_amount_cents, currency, created_at, updated_at`

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, user_id, input_url, output_url, prompt, status, payment_status,
                  checkout_session_id, payment_intent_id, payment_amount_cents, currency)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.InputURL,
		job.OutputURL,
		job.Prompt,
		job.Status,
		job.PaymentStatus,
		job.CheckoutSessionID,
		job.PaymentIntentID,
		job.PaymentAmountCents,
		job.Currency,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1;`, jobID)
	return scanJob(row)
}

// GetForOwner fetches a job scoped to its owner. Missing and unowned jobs are
// both reported as domain.ErrNotFound.
func (r *JobRepositoryPG) GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND user_id = $2;`, jobID, ownerID)
	return scanJob(row)
}

// ListByOwner returns the owner's jobs, newest first.
func (r *JobRepositoryPG) ListByOwner(ctx context.Context, ownerID string) ([]domain.Job, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE user_id = $1 ORDER BY created_at DESC;`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// SetCheckoutSession records the checkout session reference and the fee
// snapshot. A still-unpaid job may have its session replaced.
func (r *JobRepositoryPG) SetCheckoutSession(ctx context.Context, jobID, sessionID string, amountCents int64, currency string) error {
	query := `
UPDATE jobs
SET checkout_session_id = $2,
    payment_amount_cents = $3,
    currency = $4,
    updated_at = NOW()
WHERE id = $1 AND payment_status <> 'paid';
`
	tag, err := r.pool.Exec(ctx, query, jobID, sessionID, amountCents, currency)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkPaid is a monotonic set: re-applying it leaves the row unchanged, which
// makes at-least-once webhook delivery safe.
func (r *JobRepositoryPG) MarkPaid(ctx context.Context, jobID, ownerID, sessionID, paymentIntentID string) error {
	query := `
UPDATE jobs
SET payment_status = 'paid',
    checkout_session_id = $3,
    payment_intent_id = $4,
    updated_at = NOW()
WHERE id = $1 AND user_id = $2;
`
	tag, err := r.pool.Exec(ctx, query, jobID, ownerID, sessionID, paymentIntentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// BeginGeneration is the single concurrency guard of the pipeline: an atomic
// check-and-set on status. Exactly one of two near-simultaneous callers gets
// the row back; the other sees ok=false.
func (r *JobRepositoryPG) BeginGeneration(ctx context.Context, jobID, ownerID string) (string, string, bool, error) {
	query := `
UPDATE jobs
SET status = 'processing',
    updated_at = NOW()
WHERE id = $1
  AND user_id = $2
  AND payment_status = 'paid'
  AND status <> 'processing'
  AND output_url = ''
RETURNING input_url, prompt;
`
	var inputURL, prompt string
	err := r.pool.QueryRow(ctx, query, jobID, ownerID).Scan(&inputURL, &prompt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return inputURL, prompt, true, nil
}

// CompleteGeneration writes the output reference, guarded on it being empty so
// a slow duplicate can never clobber a faster successful attempt.
func (r *JobRepositoryPG) CompleteGeneration(ctx context.Context, jobID, outputURL string) (bool, error) {
	query := `
UPDATE jobs
SET status = 'completed',
    output_url = $2,
    updated_at = NOW()
WHERE id = $1 AND output_url = '';
`
	tag, err := r.pool.Exec(ctx, query, jobID, outputURL)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FailGeneration marks the job failed. The output guard keeps a completed job
// from being demoted by a late failure report.
func (r *JobRepositoryPG) FailGeneration(ctx context.Context, jobID string) error {
	query := `
UPDATE jobs
SET status = 'failed',
    updated_at = NOW()
WHERE id = $1 AND output_url = '';
`
	_, err := r.pool.Exec(ctx, query, jobID)
	return err
}

// Delete removes the record; the caller is responsible for storage cleanup.
func (r *JobRepositoryPG) Delete(ctx context.Context, jobID, ownerID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1 AND user_id = $2;`, jobID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.InputURL,
		&job.OutputURL,
		&job.Prompt,
		&job.Status,
		&job.PaymentStatus,
		&job.CheckoutSessionID,
		&job.PaymentIntentID,
		&job.PaymentAmountCents,
		&job.Currency,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
