package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"server/internal/domain"
)

// EventCheckoutCompleted is the only processor event the pipeline acts on.
const EventCheckoutCompleted = "checkout.session.completed"

// Event is a verified payment-processor event reduced to the correlation data
// the lifecycle manager needs.
type Event struct {
	Type            string
	JobID           string
	OwnerID         string
	SessionID       string
	PaymentIntentID string
}

// CheckoutCompleted reports whether the event marks a finished payment.
// Any other event type is accepted and ignored by the webhook handler.
func (e *Event) CheckoutCompleted() bool {
	return e.Type == EventCheckoutCompleted
}

// StripeGateway creates checkout sessions and verifies webhook deliveries.
type StripeGateway struct {
	api           *client.API
	signingSecret string
	publicBaseURL string
}

// NewStripeGateway builds a gateway with its own API client, so tests and
// callers never depend on the package-global stripe key.
func NewStripeGateway(secretKey, signingSecret, publicBaseURL string) (*StripeGateway, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("payment: stripe secret key is required")
	}
	if strings.TrimSpace(signingSecret) == "" {
		return nil, errors.New("payment: webhook signing secret is required")
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{
		api:           api,
		signingSecret: signingSecret,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// CreateCheckoutSession opens a one-time card payment session for a job. The
// amount is fixed by server policy, never client-supplied, and the session
// carries job/owner identifiers as opaque correlation metadata for the
// completion webhook.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, jobID, ownerID string, amountCents int64, currency string) (string, string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("AI image generation"),
						Description: stripe.String("Image transformation with AI"),
					},
					UnitAmount: stripe.Int64(amountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.publicBaseURL + "/dashboard?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(g.publicBaseURL + "/dashboard"),
	}
	params.Context = ctx
	params.AddMetadata("job_id", jobID)
	params.AddMetadata("owner_id", ownerID)

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", "", fmt.Errorf("payment: create checkout session: %w", err)
	}
	return session.ID, session.URL, nil
}

// VerifyWebhook authenticates a webhook delivery against the raw, unparsed
// body and reduces it to an Event. It fails closed: the signature is checked
// before any content is inspected.
func (g *StripeGateway) VerifyWebhook(payload []byte, sigHeader string) (*Event, error) {
	if sigHeader == "" {
		return nil, fmt.Errorf("%w: missing signature header", domain.ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.signingSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	evt := &Event{Type: string(event.Type)}
	if !evt.CheckoutCompleted() {
		return evt, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: decode checkout session: %v", domain.ErrValidation, err)
	}
	evt.JobID = session.Metadata["job_id"]
	evt.OwnerID = session.Metadata["owner_id"]
	evt.SessionID = session.ID
	if session.PaymentIntent != nil {
		evt.PaymentIntentID = session.PaymentIntent.ID
	}
	if evt.JobID == "" || evt.OwnerID == "" {
		return nil, fmt.Errorf("%w: checkout session %s is missing correlation metadata", domain.ErrValidation, session.ID)
	}
	return evt, nil
}
