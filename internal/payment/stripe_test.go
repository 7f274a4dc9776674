package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"server/internal/domain"
)

const testSigningSecret = "whsec_test_secret"

func signPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newTestGateway(t *testing.T) *StripeGateway {
	t.Helper()
	g, err := NewStripeGateway("sk_test_123", testSigningSecret, "http://localhost:3000")
	if err != nil {
		t.Fatalf("NewStripeGateway: %v", err)
	}
	return g
}

func checkoutCompletedPayload(metadata string) []byte {
	return []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_42",
				"object": "checkout.session",
				"payment_intent": "pi_test_7",
				"metadata": ` + metadata + `
			}
		}
	}`)
}

func TestVerifyWebhookAcceptsSignedCompletionEvent(t *testing.T) {
	g := newTestGateway(t)
	payload := checkoutCompletedPayload(`{"job_id": "job-1", "owner_id": "user-1"}`)

	evt, err := g.VerifyWebhook(payload, signPayload(t, payload, testSigningSecret))
	if err != nil {
		t.Fatalf("VerifyWebhook: %v", err)
	}
	if !evt.CheckoutCompleted() {
		t.Fatalf("expected completed event, got type %q", evt.Type)
	}
	if evt.JobID != "job-1" || evt.OwnerID != "user-1" {
		t.Fatalf("metadata mismatch: %+v", evt)
	}
	if evt.SessionID != "cs_test_42" || evt.PaymentIntentID != "pi_test_7" {
		t.Fatalf("session references mismatch: %+v", evt)
	}
}

func TestVerifyWebhookRejectsBadSignature(t *testing.T) {
	g := newTestGateway(t)
	payload := checkoutCompletedPayload(`{"job_id": "job-1", "owner_id": "user-1"}`)

	_, err := g.VerifyWebhook(payload, signPayload(t, payload, "whsec_other_secret"))
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWebhookRejectsMissingHeader(t *testing.T) {
	g := newTestGateway(t)
	_, err := g.VerifyWebhook([]byte(`{}`), "")
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWebhookRejectsTamperedBody(t *testing.T) {
	g := newTestGateway(t)
	payload := checkoutCompletedPayload(`{"job_id": "job-1", "owner_id": "user-1"}`)
	header := signPayload(t, payload, testSigningSecret)

	tampered := checkoutCompletedPayload(`{"job_id": "job-2", "owner_id": "user-1"}`)
	if _, err := g.VerifyWebhook(tampered, header); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWebhookIgnoresOtherEventTypes(t *testing.T) {
	g := newTestGateway(t)
	payload := []byte(`{"id": "evt_2", "type": "invoice.paid", "data": {"object": {}}}`)

	evt, err := g.VerifyWebhook(payload, signPayload(t, payload, testSigningSecret))
	if err != nil {
		t.Fatalf("VerifyWebhook: %v", err)
	}
	if evt.CheckoutCompleted() {
		t.Fatalf("invoice.paid should not be a completion event")
	}
	if evt.Type != "invoice.paid" {
		t.Fatalf("unexpected event type: %q", evt.Type)
	}
}

func TestVerifyWebhookRequiresCorrelationMetadata(t *testing.T) {
	g := newTestGateway(t)
	payload := checkoutCompletedPayload(`{}`)

	_, err := g.VerifyWebhook(payload, signPayload(t, payload, testSigningSecret))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
