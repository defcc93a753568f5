package domain

import "time"

// MinimumPaymentAmount is the smallest amount the processor accepts, in the
// billing currency. Amounts below this are rejected locally, before any
// network call.
const MinimumPaymentAmount = 5.00

// PaymentSession is the ephemeral record of one in-progress payment attempt.
// It is created when payment parameters are obtained from the server,
// immutable afterwards, and discarded on resolution. A payment session never
// survives a process restart.
type PaymentSession struct {
	// ID is a client-side correlation id for this attempt.
	ID string
	// ProviderPaymentID is the id the server assigned when the payment was
	// created, when it returned one.
	ProviderPaymentID string
	// Amount is the requested amount, >= MinimumPaymentAmount.
	Amount float64
	// PayeeEmail receives the processor's payment confirmation.
	PayeeEmail string
	// FormTarget is the processor URL the redirect form posts to.
	FormTarget string
	// FormFields are the hidden fields of the redirect form.
	FormFields map[string]string

	CreatedAt time.Time
}

// OutcomeStatus enumerates the terminal results of a payment attempt.
type OutcomeStatus string

const (
	OutcomePending   OutcomeStatus = "pending"
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeCancelled OutcomeStatus = "cancelled"
	OutcomeFailed    OutcomeStatus = "failed"
)

// PaymentOutcome is the single terminal value produced for a PaymentSession.
// Exactly one outcome is ever delivered per session, no matter how many
// navigation events arrive afterwards.
type PaymentOutcome struct {
	Status OutcomeStatus
	// ExternalPaymentID is set for successful outcomes: the processor's id
	// for the completed payment.
	ExternalPaymentID string
	// Reason categorizes failed outcomes (network, timeout, declined,
	// insufficient_funds, verification_failed, payment_failed).
	Reason string
	// SessionID is the PaymentSession.ID the outcome belongs to.
	SessionID string
}
