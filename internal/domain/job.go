package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPendingPayment JobStatus = "pending_payment"
	JobStatusProcessing     JobStatus = "processing"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusFailed         JobStatus = "failed"
)

// PaymentStatus enumerates payment states. Paid is terminal and never reverts.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Job encapsulates one user-submitted image transformation request and its
// lifecycle record. OutputURL is non-empty if and only if Status is completed;
// Status may reach processing/completed/failed only after the job is paid.
type Job struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"user_id"`
	InputURL           string        `json:"input_url"`
	OutputURL          string        `json:"output_url,omitempty"`
	Prompt             string        `json:"prompt"`
	Status             JobStatus     `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	CheckoutSessionID  string        `json:"checkout_session_id,omitempty"`
	PaymentIntentID    string        `json:"payment_intent_id,omitempty"`
	PaymentAmountCents int64         `json:"payment_amount_cents,omitempty"`
	Currency           string        `json:"currency,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Paid reports whether the job's fee has been collected.
func (j *Job) Paid() bool {
	return j.PaymentStatus == PaymentStatusPaid
}

// Generated reports whether a successful generation already produced output.
func (j *Job) Generated() bool {
	return j.OutputURL != ""
}
