// Package session owns the authenticated-or-not state of the application: it
// loads and validates the persisted credential at startup, performs login and
// logout, and turns server-side credential rejection into exactly one
// forced-logout broadcast.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	selfcare "go.pilab.hu/selfcare"
	"go.pilab.hu/selfcare/domain"
	serrors "go.pilab.hu/selfcare/errors"
)

// Gateway is the slice of the remote gateway the manager needs.
type Gateway interface {
	CheckIdentity(ctx context.Context) (*domain.ProfileSnapshot, error)
	Authenticate(ctx context.Context, identifier, secret string) (*domain.Credential, error)
}

// PaymentCanceler aborts the active payment session, if any. The payment
// controller implements it; the manager calls it whenever the session leaves
// the authenticated state, so a payment can never outlive its session.
type PaymentCanceler interface {
	Cancel()
}

// Manager is the session state machine. State-changing operations are
// serialized: while one is in flight, newly arriving bootstrap/login/refresh
// calls are rejected with ErrSessionBusy and logout waits its turn.
type Manager struct {
	mu    sync.Mutex
	cond  *sync.Cond
	busy  bool
	state domain.SessionState

	store    domain.CredentialStore
	gw       Gateway
	creds    *Credentials
	payments PaymentCanceler

	handlerMu sync.Mutex
	onForced  func(context.Context)
}

// NewManager creates a Manager and binds it to the forced-logout signal the
// gateway was constructed with.
func NewManager(store domain.CredentialStore, gw Gateway, creds *Credentials, sig *Signal) *Manager {
	m := &Manager{
		store: store,
		gw:    gw,
		creds: creds,
		state: domain.SessionUnauthenticated,
	}
	m.cond = sync.NewCond(&m.mu)
	sig.bind(m.forcedLogout)
	return m
}

// State returns the current session state.
func (m *Manager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Profile returns the active profile snapshot, if authenticated.
func (m *Manager) Profile() (domain.ProfileSnapshot, bool) {
	cred, ok := m.creds.Current()
	if !ok {
		return domain.ProfileSnapshot{}, false
	}
	return cred.Profile, true
}

// BindPaymentCanceler wires the payment controller so logout and forced
// logout can abort an in-flight payment.
func (m *Manager) BindPaymentCanceler(p PaymentCanceler) {
	m.mu.Lock()
	m.payments = p
	m.mu.Unlock()
}

// RegisterForcedLogoutHandler stores the application-level handler invoked
// after a forced logout has torn the session down. At most one handler is
// kept; registering again replaces it.
func (m *Manager) RegisterForcedLogoutHandler(h func(context.Context)) {
	m.handlerMu.Lock()
	m.onForced = h
	m.handlerMu.Unlock()
}

// Bootstrap loads the persisted credential and validates it against the
// server. It always resolves: the returned state is Authenticated when the
// identity check succeeded, otherwise the store has been cleared and the
// state is Unauthenticated. The only error is ErrSessionBusy.
func (m *Manager) Bootstrap(ctx context.Context) (domain.SessionState, error) {
	if err := m.begin(); err != nil {
		return m.State(), err
	}
	defer m.end()

	cred, err := m.store.Load(ctx)
	if errors.Is(err, domain.ErrNoCredential) {
		m.setState(domain.SessionUnauthenticated)
		return domain.SessionUnauthenticated, nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("bootstrap: failed to load stored credential, clearing")
		m.teardown(ctx)
		return domain.SessionUnauthenticated, nil
	}

	m.setState(domain.SessionValidating)
	m.creds.set(cred)

	profile, err := m.gw.CheckIdentity(ctx)
	if err != nil {
		// Network error, explicit rejection or malformed response: the
		// stored credential cannot be trusted, start over unauthenticated.
		log.Info().Err(err).Msg("bootstrap: stored credential validation failed, clearing")
		m.teardown(ctx)
		return domain.SessionUnauthenticated, nil
	}

	cred.Profile = *profile
	if err := m.store.Save(ctx, cred); err != nil {
		log.Warn().Err(err).Msg("bootstrap: failed to persist refreshed profile")
	}
	m.creds.set(cred)
	m.setState(domain.SessionAuthenticated)
	log.Debug().Str("invoicingid", profile.InvoicingID).Msg("bootstrap: credential validated")
	return domain.SessionAuthenticated, nil
}

// Login authenticates with the given identifier and secret. Valid only while
// unauthenticated. On failure nothing is persisted and the state stays
// Unauthenticated; the returned error distinguishes bad credentials from
// transport failures (see the errors package categories).
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return selfcare.ErrSessionBusy
	}
	if m.state != domain.SessionUnauthenticated {
		m.mu.Unlock()
		return selfcare.ErrAlreadyAuthenticated
	}
	m.busy = true
	m.state = domain.SessionValidating
	m.mu.Unlock()
	defer m.end()

	cred, err := m.gw.Authenticate(ctx, identifier, secret)
	if err != nil {
		m.setState(domain.SessionUnauthenticated)
		log.Info().Err(err).Str("identifier", identifier).Msg("login failed")
		return err
	}

	if err := m.store.Save(ctx, cred); err != nil {
		// Save is atomic, so nothing partial was written. Without a
		// persisted credential the login is not considered complete.
		m.creds.clear()
		m.setState(domain.SessionUnauthenticated)
		log.Error().Err(err).Msg("login: failed to persist credential")
		return fmt.Errorf("persist credential: %w", err)
	}

	m.creds.set(cred)
	m.setState(domain.SessionAuthenticated)
	log.Debug().Str("invoicingid", cred.Profile.InvoicingID).Msg("login successful")
	return nil
}

// Logout clears the credential and returns the session to Unauthenticated.
// Valid from any state. It waits for an in-flight operation to settle, then
// always succeeds: storage errors are logged, not propagated.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	for m.busy {
		m.cond.Wait()
	}
	m.busy = true
	m.mu.Unlock()

	m.teardown(ctx)
	m.end()
	log.Debug().Msg("logout complete")
}

// RefreshIdentity re-validates the active credential and refreshes the
// stored profile snapshot. Valid only while authenticated. A failed refresh
// logs the session out, mirroring the behavior of the refresh path in the
// hosting application.
func (m *Manager) RefreshIdentity(ctx context.Context) error {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return selfcare.ErrSessionBusy
	}
	if m.state != domain.SessionAuthenticated {
		m.mu.Unlock()
		return selfcare.ErrNotAuthenticated
	}
	m.busy = true
	m.mu.Unlock()
	defer m.end()

	profile, err := m.gw.CheckIdentity(ctx)
	if err != nil {
		if serrors.IsRejectedCredential(err) {
			// The gateway already raised the forced-logout signal; its
			// handler performs the teardown and the broadcast.
			return err
		}
		log.Info().Err(err).Msg("identity refresh failed, logging out")
		m.teardown(ctx)
		return err
	}

	cred, ok := m.creds.Current()
	if !ok {
		return selfcare.ErrNotAuthenticated
	}
	cred.Profile = *profile
	if err := m.store.Save(ctx, &cred); err != nil {
		log.Warn().Err(err).Msg("refresh: failed to persist profile snapshot")
	}
	m.creds.set(&cred)
	return nil
}

// forcedLogout runs on the signal's goroutine when the server rejected the
// active credential. It tears the session down once and then invokes the
// registered handler; a second rejection arriving for the same invalidation
// finds the session already unauthenticated and does nothing.
func (m *Manager) forcedLogout(ctx context.Context) {
	m.mu.Lock()
	for m.busy {
		m.cond.Wait()
	}
	if m.state == domain.SessionUnauthenticated {
		m.mu.Unlock()
		return
	}
	m.busy = true
	m.mu.Unlock()

	log.Warn().Msg("credential rejected by server, forcing logout")
	m.teardown(ctx)
	m.end()

	m.handlerMu.Lock()
	h := m.onForced
	m.handlerMu.Unlock()
	if h != nil {
		h(ctx)
	}
}

// teardown aborts any active payment, clears the credential slot and the
// store, and settles on Unauthenticated. Caller holds the busy flag.
func (m *Manager) teardown(ctx context.Context) {
	m.mu.Lock()
	p := m.payments
	m.mu.Unlock()
	if p != nil {
		p.Cancel()
	}

	m.setState(domain.SessionInvalidating)
	m.creds.clear()
	if err := m.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to clear credential store")
	}
	m.setState(domain.SessionUnauthenticated)
}

func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return selfcare.ErrSessionBusy
	}
	m.busy = true
	return nil
}

func (m *Manager) end() {
	m.mu.Lock()
	m.busy = false
	m.cond.Broadcast()
	m.mu.Unlock()
}

func (m *Manager) setState(s domain.SessionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
