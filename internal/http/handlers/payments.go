package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

// maxWebhookBytes bounds the raw webhook payload we read for verification.
const maxWebhookBytes = 1 << 20

// PaymentSessionCreate opens a checkout session for a pending job and
// returns the redirect URL the client should send the user to.
func (a *App) PaymentSessionCreate(w http.ResponseWriter, r *http.Request) {
	redirectURL, err := a.Jobs.RequestPayment(r.Context(), chi.URLParam(r, "id"), a.currentUserID(r))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"redirect_url": redirectURL})
}

// PaymentWebhook receives processor callbacks. Signature verification runs
// over the exact raw bytes of the body. Events we do not act on are still
// acknowledged with a 200 so the processor stops retrying them.
func (a *App) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		a.error(w, http.StatusBadRequest, "invalid_signature", "missing signature header")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "validation_error", "could not read request body")
		return
	}

	event, err := a.Webhooks.VerifyWebhook(payload, sig)
	if err != nil {
		a.domainError(w, r, err)
		return
	}

	if !event.CheckoutCompleted() {
		a.json(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	err = a.Jobs.MarkPaid(r.Context(), event.JobID, event.OwnerID, event.SessionID, event.PaymentIntentID)
	if err != nil {
		// A completion for a job we no longer know about is not worth a
		// retry storm from the processor. Log it and acknowledge.
		if errors.Is(err, domain.ErrNotFound) {
			a.Logger.Warn().
				Str("job_id", event.JobID).
				Str("session_id", event.SessionID).
				Msg("payment completion for unknown job")
			a.json(w, http.StatusOK, map[string]any{"received": true})
			return
		}
		a.domainError(w, r, err)
		return
	}

	a.json(w, http.StatusOK, map[string]any{"received": true})
}
