package domain

import "context"

// JobRepository defines persistence for job entities. Every guarded state
// transition is a conditional update: the datastore answer (row matched or
// not) is the only concurrency control in the system, so implementations must
// never split a guard check from its write.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// GetForOwner returns ErrNotFound for both missing and unowned jobs so
	// ownership failures do not leak existence.
	GetForOwner(ctx context.Context, jobID, ownerID string) (*Job, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Job, error)

	// SetCheckoutSession records the checkout session reference and the fee
	// snapshot taken at session-creation time. A new session may replace the
	// reference on a still-unpaid job.
	SetCheckoutSession(ctx context.Context, jobID, sessionID string, amountCents int64, currency string) error

	// MarkPaid is a monotonic, idempotent set: applying it twice leaves the
	// same row state. ErrNotFound when no job matches jobID+ownerID.
	MarkPaid(ctx context.Context, jobID, ownerID, sessionID, paymentIntentID string) error

	// BeginGeneration atomically transitions status to processing when the job
	// is owned, paid, not already processing, and has no output yet. On a win
	// it returns the inputs the generation executor needs; ok=false means the
	// guard rejected the transition and the caller must classify why.
	BeginGeneration(ctx context.Context, jobID, ownerID string) (inputURL, prompt string, ok bool, err error)

	// CompleteGeneration sets the output reference and completed status,
	// guarded on the output still being empty. ok=false means a prior success
	// already wrote the output; the first write is never overwritten.
	CompleteGeneration(ctx context.Context, jobID, outputURL string) (ok bool, err error)

	// FailGeneration moves the job to failed unless output was already set.
	// Failed jobs remain eligible for another generation attempt.
	FailGeneration(ctx context.Context, jobID string) error

	// Delete removes the record. ErrNotFound when no job matches.
	Delete(ctx context.Context, jobID, ownerID string) error
}
