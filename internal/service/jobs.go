package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/storage"
)

// ObjectStore is the storage gateway contract the lifecycle manager consumes.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
	ParseReference(ref string) (bucket, key string, ok bool)
}

// PaymentProvider opens processor-hosted checkout sessions.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, jobID, ownerID string, amountCents int64, currency string) (sessionID, redirectURL string, err error)
}

// Generator produces the transformed image bytes for an input reference and
// an instruction.
type Generator interface {
	Generate(ctx context.Context, imageURL, instruction string) ([]byte, error)
}

// Options carries the fixed pricing policy and bucket layout.
type Options struct {
	InputBucket  string
	OutputBucket string
	PriceCents   int64
	Currency     string
}

// Jobs is the project lifecycle manager: the only component that transitions
// job status and payment status, always through the repository's guarded
// conditional updates.
type Jobs struct {
	repo      domain.JobRepository
	store     ObjectStore
	payments  PaymentProvider
	generator Generator
	opts      Options
	logger    zerolog.Logger
}

// NewJobs wires the lifecycle manager with its injected capabilities.
func NewJobs(repo domain.JobRepository, store ObjectStore, payments PaymentProvider, generator Generator, opts Options, logger zerolog.Logger) *Jobs {
	return &Jobs{
		repo:      repo,
		store:     store,
		payments:  payments,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// CreateJob validates the submission, uploads the input image, and persists
// the job awaiting payment. The upload is not transactional with the insert:
// if the insert fails the orphaned object is logged, not rolled back.
func (s *Jobs) CreateJob(ctx context.Context, ownerID, filename, contentType string, data []byte, instruction string) (*domain.Job, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, fmt.Errorf("%w: instruction is required", domain.ErrValidation)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image file is required", domain.ErrValidation)
	}
	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(sniffed, "image/") {
		return nil, fmt.Errorf("%w: file is not a recognized image payload", domain.ErrValidation)
	}
	if contentType == "" {
		contentType = sniffed
	}

	key := storage.ObjectKey(filename)
	inputURL, err := s.store.Put(ctx, s.opts.InputBucket, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: upload input image: %v", domain.ErrStorage, err)
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:                 uuid.NewString(),
		UserID:             ownerID,
		InputURL:           inputURL,
		Prompt:             instruction,
		Status:             domain.JobStatusPendingPayment,
		PaymentStatus:      domain.PaymentStatusPending,
		PaymentAmountCents: s.opts.PriceCents,
		Currency:           s.opts.Currency,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		s.logger.Warn().
			Str("bucket", s.opts.InputBucket).
			Str("key", key).
			Err(err).
			Msg("job insert failed, input upload orphaned")
		return nil, fmt.Errorf("create job record: %w", err)
	}
	return job, nil
}

// GetJob returns a job scoped to its owner.
func (s *Jobs) GetJob(ctx context.Context, jobID, ownerID string) (*domain.Job, error) {
	return s.repo.GetForOwner(ctx, jobID, ownerID)
}

// ListJobs returns the owner's jobs, newest first.
func (s *Jobs) ListJobs(ctx context.Context, ownerID string) ([]domain.Job, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// RequestPayment opens a checkout session for an unpaid job and records the
// session reference plus the fee snapshot. Creating a second session before
// payment replaces the first reference.
func (s *Jobs) RequestPayment(ctx context.Context, jobID, ownerID string) (string, error) {
	job, err := s.repo.GetForOwner(ctx, jobID, ownerID)
	if err != nil {
		return "", err
	}
	if job.Paid() {
		return "", fmt.Errorf("%w: job %s", domain.ErrAlreadyPaid, jobID)
	}

	sessionID, redirectURL, err := s.payments.CreateCheckoutSession(ctx, job.ID, ownerID, s.opts.PriceCents, s.opts.Currency)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if err := s.repo.SetCheckoutSession(ctx, job.ID, sessionID, s.opts.PriceCents, s.opts.Currency); err != nil {
		return "", fmt.Errorf("record checkout session: %w", err)
	}
	return redirectURL, nil
}

// MarkPaid applies a verified payment-completion event. It is idempotent:
// duplicate webhook deliveries converge on the same row state.
func (s *Jobs) MarkPaid(ctx context.Context, jobID, ownerID, sessionID, paymentIntentID string) error {
	if err := s.repo.MarkPaid(ctx, jobID, ownerID, sessionID, paymentIntentID); err != nil {
		return fmt.Errorf("mark job %s paid: %w", jobID, err)
	}
	s.logger.Info().Str("job_id", jobID).Msg("payment confirmed")
	return nil
}

// Generate runs the full generation flow for a paid job: atomically claim the
// job, invoke the provider, persist the artifact, record completion. A
// provider or storage failure leaves the job failed and retryable.
func (s *Jobs) Generate(ctx context.Context, jobID, ownerID string) (string, error) {
	inputURL, prompt, ok, err := s.repo.BeginGeneration(ctx, jobID, ownerID)
	if err != nil {
		return "", fmt.Errorf("begin generation: %w", err)
	}
	if !ok {
		return "", s.classifyBeginRejection(ctx, jobID, ownerID)
	}

	data, err := s.generator.Generate(ctx, inputURL, prompt)
	if err != nil {
		s.failGeneration(ctx, jobID)
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	key := uuid.NewString() + ".png"
	outputURL, err := s.store.Put(ctx, s.opts.OutputBucket, key, data, "image/png")
	if err != nil {
		s.failGeneration(ctx, jobID)
		return "", fmt.Errorf("%w: upload output image: %v", domain.ErrStorage, err)
	}

	won, err := s.repo.CompleteGeneration(ctx, jobID, outputURL)
	if err != nil {
		s.failGeneration(ctx, jobID)
		return "", fmt.Errorf("complete generation: %w", err)
	}
	if !won {
		// A faster attempt already recorded its output; ours is discarded.
		s.logger.Warn().Str("job_id", jobID).Msg("output already recorded, keeping first result")
		job, err := s.repo.GetByID(ctx, jobID)
		if err != nil {
			return "", fmt.Errorf("load completed job: %w", err)
		}
		return job.OutputURL, nil
	}
	s.logger.Info().Str("job_id", jobID).Msg("generation completed")
	return outputURL, nil
}

// classifyBeginRejection explains why the atomic claim matched no row.
func (s *Jobs) classifyBeginRejection(ctx context.Context, jobID, ownerID string) error {
	job, err := s.repo.GetForOwner(ctx, jobID, ownerID)
	if err != nil {
		return err
	}
	switch {
	case job.Generated():
		return fmt.Errorf("%w: job %s", domain.ErrAlreadyGenerated, jobID)
	case !job.Paid():
		return fmt.Errorf("%w: job %s", domain.ErrPaymentRequired, jobID)
	default:
		return fmt.Errorf("%w: job %s", domain.ErrGenerationInProgress, jobID)
	}
}

func (s *Jobs) failGeneration(ctx context.Context, jobID string) {
	if err := s.repo.FailGeneration(ctx, jobID); err != nil {
		s.logger.Error().Str("job_id", jobID).Err(err).Msg("failed to record generation failure")
	}
}

// Delete removes the job's storage objects best-effort, then the record.
// Object deletion failures are logged and skipped; the record deletion is
// authoritative and its failure fails the whole operation.
func (s *Jobs) Delete(ctx context.Context, jobID, ownerID string) error {
	job, err := s.repo.GetForOwner(ctx, jobID, ownerID)
	if err != nil {
		return err
	}

	for _, ref := range []string{job.InputURL, job.OutputURL} {
		if ref == "" {
			continue
		}
		bucket, key, ok := s.store.ParseReference(ref)
		if !ok {
			s.logger.Warn().Str("job_id", jobID).Str("reference", ref).Msg("unresolvable storage reference, skipping")
			continue
		}
		if err := s.store.Delete(ctx, bucket, key); err != nil {
			s.logger.Warn().Str("job_id", jobID).Str("bucket", bucket).Str("key", key).Err(err).Msg("storage object deletion failed, continuing")
		}
	}

	if err := s.repo.Delete(ctx, jobID, ownerID); err != nil {
		return fmt.Errorf("delete job record: %w", err)
	}
	return nil
}
