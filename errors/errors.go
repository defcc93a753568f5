package errors

import (
	stderrors "errors"
	"fmt"
)

// Category classifies an Error for user-facing handling. Payment categories
// line up with the reason strings surfaced in PaymentOutcome.Reason.
type Category string

const (
	// CategoryNetwork covers transport failures: connection refused, DNS,
	// resets.
	CategoryNetwork Category = "network"
	// CategoryTimeout covers transport and processor timeouts.
	CategoryTimeout Category = "timeout"
	// CategoryDecode covers non-JSON or malformed response bodies.
	CategoryDecode Category = "decode"
	// CategoryRejectedCredential is an explicit 401 on an authenticated call.
	CategoryRejectedCredential Category = "rejected_credential"
	// CategoryInvalidInput is a locally rejected argument, e.g. a payment
	// amount below the minimum.
	CategoryInvalidInput Category = "invalid_input"
	// CategoryRemote is a server-reported failure that fits no narrower
	// category, e.g. bad login credentials.
	CategoryRemote Category = "remote"

	// Payment failure categories.
	CategoryDeclined           Category = "declined"
	CategoryInsufficientFunds  Category = "insufficient_funds"
	CategoryVerificationFailed Category = "verification_failed"
	CategoryPaymentGeneric     Category = "payment_failed"
)

// Error is the typed failure value returned across component boundaries.
// Asynchronous operation boundaries convert everything into one of these;
// nothing escapes as a panic.
type Error struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Err      error    `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewNetworkError wraps a transport failure.
func NewNetworkError(err error) *Error {
	return &Error{Category: CategoryNetwork, Message: "network request failed", Err: err}
}

// NewTimeoutError wraps a transport timeout.
func NewTimeoutError(err error) *Error {
	return &Error{Category: CategoryTimeout, Message: "request timed out", Err: err}
}

// NewDecodeError wraps a malformed or non-JSON response body.
func NewDecodeError(err error) *Error {
	return &Error{Category: CategoryDecode, Message: "invalid response from server", Err: err}
}

// NewRejectedCredential reports an explicit 401 on an authenticated call.
func NewRejectedCredential(message string) *Error {
	if message == "" {
		message = "credential rejected by server"
	}
	return &Error{Category: CategoryRejectedCredential, Message: message}
}

// NewInvalidInput reports a locally rejected argument.
func NewInvalidInput(message string) *Error {
	return &Error{Category: CategoryInvalidInput, Message: message}
}

// NewRemoteError reports a server-side failure with the server's message.
func NewRemoteError(status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return &Error{Category: CategoryRemote, Message: message}
}

// NewPaymentFailure reports a classified payment failure.
func NewPaymentFailure(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// CategoryOf extracts the category of err, or CategoryRemote when err is not
// a typed Error.
func CategoryOf(err error) Category {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category
	}
	return CategoryRemote
}

// IsRejectedCredential reports whether err is a rejected-credential failure.
func IsRejectedCredential(err error) bool {
	return CategoryOf(err) == CategoryRejectedCredential
}

// IsNetwork reports whether err is a transport-level failure (network or
// timeout), as opposed to an explicit server rejection. Callers use this to
// keep "no internet" messaging distinct from actionable failures.
func IsNetwork(err error) bool {
	c := CategoryOf(err)
	return c == CategoryNetwork || c == CategoryTimeout
}
