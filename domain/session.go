package domain

// SessionState is the authenticated-or-not state of the application. Exactly
// one instance exists process-wide, owned by the session manager; transitions
// are serialized there.
type SessionState string

const (
	// SessionUnauthenticated means no credential is active.
	SessionUnauthenticated SessionState = "unauthenticated"
	// SessionValidating means a credential is being checked against the
	// server. Every operation that enters this state resolves it before
	// returning.
	SessionValidating SessionState = "validating"
	// SessionAuthenticated means a validated credential is active.
	SessionAuthenticated SessionState = "authenticated"
	// SessionInvalidating means a rejected credential is being torn down.
	SessionInvalidating SessionState = "invalidating"
)
