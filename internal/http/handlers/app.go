package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/payment"
)

// JobService is the lifecycle-manager surface the handlers consume.
type JobService interface {
	CreateJob(ctx context.Context, ownerID, filename, contentType string, data []byte, instruction string) (*domain.Job, error)
	GetJob(ctx context.Context, jobID, ownerID string) (*domain.Job, error)
	ListJobs(ctx context.Context, ownerID string) ([]domain.Job, error)
	RequestPayment(ctx context.Context, jobID, ownerID string) (string, error)
	MarkPaid(ctx context.Context, jobID, ownerID, sessionID, paymentIntentID string) error
	Generate(ctx context.Context, jobID, ownerID string) (string, error)
	Delete(ctx context.Context, jobID, ownerID string) error
}

// WebhookVerifier authenticates raw webhook deliveries.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, sigHeader string) (*payment.Event, error)
}

// Pinger reports datastore liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App bundles the handler dependencies.
type App struct {
	Jobs     JobService
	Webhooks WebhookVerifier
	DB       Pinger
	Logger   zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{"error": code, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// domainError maps the typed error taxonomy onto HTTP responses. Unclassified
// failures are logged with context and surfaced as bare 500s.
func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credentials")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
	case errors.Is(err, domain.ErrPaymentRequired):
		a.error(w, http.StatusForbidden, "payment_required", "payment is required before generation")
	case errors.Is(err, domain.ErrAlreadyPaid):
		a.error(w, http.StatusBadRequest, "already_paid", "this job has already been paid")
	case errors.Is(err, domain.ErrAlreadyGenerated):
		a.error(w, http.StatusBadRequest, "already_generated", "an image has already been generated for this job")
	case errors.Is(err, domain.ErrGenerationInProgress):
		a.error(w, http.StatusConflict, "generation_in_progress", "a generation is already running for this job")
	case errors.Is(err, domain.ErrInvalidSignature):
		a.error(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
	case errors.Is(err, domain.ErrGeneration):
		a.error(w, http.StatusBadGateway, "generation_failed", "image generation failed")
	case errors.Is(err, domain.ErrStorage):
		a.error(w, http.StatusBadGateway, "storage_failed", "object storage operation failed")
	default:
		a.Logger.Error().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Err(err).
			Msg("unhandled error")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
