package selfcare

import "errors"

var (
	// ErrSessionBusy is returned when a session state transition is already
	// in flight. Transitions are serialized; callers retry once the
	// in-flight operation settles.
	ErrSessionBusy = errors.New("session operation already in flight")

	// ErrNotAuthenticated is returned by operations that require an active
	// credential.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAlreadyAuthenticated is returned by login when a credential is
	// already active.
	ErrAlreadyAuthenticated = errors.New("already authenticated")

	// ErrPaymentInFlight is returned by payment start while another payment
	// session is active. Only one payment session exists at a time.
	ErrPaymentInFlight = errors.New("payment already in flight")

	// ErrPaymentCancelled is returned by payment start when the flow was
	// cancelled while the setup request was still in flight.
	ErrPaymentCancelled = errors.New("payment cancelled")
)
