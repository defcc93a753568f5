// Package payment drives a redirect-based payment through a hosted web
// surface and infers its terminal outcome from the URLs the surface
// navigates through.
package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	selfcare "go.pilab.hu/selfcare"
	"go.pilab.hu/selfcare/domain"
	serrors "go.pilab.hu/selfcare/errors"
	"go.pilab.hu/selfcare/gateway"
)

// State is the controller's position in the payment flow.
type State string

const (
	StateIdle           State = "idle"
	StateRequesting     State = "requesting"
	StatePresenting     State = "presenting"
	StateAwaitingResult State = "awaiting_result"
	StateSucceeding     State = "succeeding"
	StateCancelling     State = "cancelling"
	StateFailing        State = "failing"
)

// Gateway is the slice of the remote gateway the controller needs.
type Gateway interface {
	CreatePayment(ctx context.Context, req gateway.PaymentRequest) (*gateway.PaymentParams, error)
}

// Controller is the payment flow state machine. One payment session exists at
// a time; exactly one outcome is delivered per session, no matter how many
// navigation events or cancel calls arrive after resolution.
type Controller struct {
	mu      sync.Mutex
	state   State
	gen     uint64 // bumped per flow; stale Start calls must not touch a successor
	session *domain.PaymentSession
	resolve func(domain.PaymentOutcome)
	timer   *time.Timer
	pending *domain.PaymentOutcome

	gw    Gateway
	rules *RuleTable
	delay time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithResolveDelay overrides the delay before a success or cancel resolution
// is finalized. Zero finalizes immediately; tests use that.
func WithResolveDelay(d time.Duration) Option {
	return func(c *Controller) { c.delay = d }
}

// WithRuleTable replaces the classification table.
func WithRuleTable(t *RuleTable) Option {
	return func(c *Controller) { c.rules = t }
}

// NewController creates an idle controller.
func NewController(gw Gateway, opts ...Option) *Controller {
	c := &Controller{
		state: StateIdle,
		gw:    gw,
		rules: NewRuleTable("payfast"),
		delay: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current flow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the active payment session, if any.
func (c *Controller) Session() (domain.PaymentSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return domain.PaymentSession{}, false
	}
	return *c.session, true
}

// Start requests payment parameters from the server and yields the session
// the caller renders into the redirect surface. Valid only while idle.
// Amounts below the minimum are rejected locally, before any network call.
// The resolve callback receives the session's single terminal outcome.
func (c *Controller) Start(ctx context.Context, amount float64, email string, resolve func(domain.PaymentOutcome)) (*domain.PaymentSession, error) {
	if amount < domain.MinimumPaymentAmount {
		return nil, serrors.NewInvalidInput(
			fmt.Sprintf("amount must be at least %.2f", domain.MinimumPaymentAmount))
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, selfcare.ErrPaymentInFlight
	}
	c.state = StateRequesting
	c.gen++
	gen := c.gen
	c.resolve = resolve
	c.mu.Unlock()

	params, err := c.gw.CreatePayment(ctx, gateway.PaymentRequest{
		Amount:      amount,
		Description: "Account payment",
		Email:       email,
	})
	if err != nil {
		// A cancel may have resolved this flow while the request was in
		// flight, and a new flow may already own the controller. Only the
		// flow that still holds the generation may reset the state.
		c.mu.Lock()
		if c.gen == gen && c.state == StateRequesting {
			c.resolve = nil
			c.state = StateIdle
		}
		c.mu.Unlock()
		log.Info().Err(err).Float64("amount", amount).Msg("payment setup failed")
		return nil, err
	}

	sess := &domain.PaymentSession{
		ID:                uuid.NewString(),
		ProviderPaymentID: params.PaymentID,
		Amount:            amount,
		PayeeEmail:        email,
		FormTarget:        params.RedirectURL,
		FormFields:        params.FormFields,
		CreatedAt:         time.Now(),
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateRequesting {
		// Cancelled while the request was in flight; the outcome was
		// already delivered.
		c.mu.Unlock()
		return nil, selfcare.ErrPaymentCancelled
	}
	c.session = sess
	c.state = StatePresenting
	c.mu.Unlock()

	log.Debug().Str("session_id", sess.ID).Str("payment_id", sess.ProviderPaymentID).
		Float64("amount", amount).Msg("payment session created")
	return sess, nil
}

// SurfaceNavigated is the sole input from the hosted web surface: every URL
// it navigates to is reported here and classified against the rule table.
// Events arriving after a terminal resolution was scheduled are no-ops.
func (c *Controller) SurfaceNavigated(rawURL string) {
	c.mu.Lock()
	if c.state != StatePresenting && c.state != StateAwaitingResult {
		c.mu.Unlock()
		return
	}
	c.state = StateAwaitingResult

	res, ok := c.rules.Classify(rawURL)
	if !ok {
		// The surface is still navigating the payment form.
		c.mu.Unlock()
		return
	}
	log.Debug().Str("rule", res.Rule).Str("url", rawURL).Msg("navigation classified")

	out := c.outcomeLocked(res)
	if !res.Deferred || c.delay <= 0 {
		c.state = terminalState(res.Verdict)
		c.mu.Unlock()
		c.finalize(out)
		return
	}

	// Success and cancel are finalized after a short delay so the
	// processor's confirmation page can render; the timer is cancelable by
	// Cancel or by a forced logout.
	c.state = terminalState(res.Verdict)
	c.pending = &out
	c.timer = time.AfterFunc(c.delay, c.firePending)
	c.mu.Unlock()
}

// SurfaceLoadError reports a transport-level failure of the surface itself.
// It resolves the session as failed with a category derived from the detail.
func (c *Controller) SurfaceLoadError(detail string) {
	c.mu.Lock()
	if c.state != StatePresenting && c.state != StateAwaitingResult {
		c.mu.Unlock()
		return
	}

	reason := serrors.CategoryPaymentGeneric
	switch {
	case strings.Contains(detail, "timeout"):
		reason = serrors.CategoryTimeout
	case strings.Contains(detail, "network"):
		reason = serrors.CategoryNetwork
	case strings.Contains(detail, "SSL"), strings.Contains(detail, "certificate"):
		reason = serrors.CategoryNetwork
	}

	out := domain.PaymentOutcome{
		Status:    domain.OutcomeFailed,
		Reason:    string(reason),
		SessionID: c.sessionIDLocked(),
	}
	c.state = StateFailing
	c.mu.Unlock()
	log.Info().Str("detail", detail).Str("reason", string(reason)).Msg("payment surface failed to load")
	c.finalize(out)
}

// Cancel aborts the flow from any non-idle state without contacting the
// network: the user dismissed the surface, or the session manager is tearing
// the session down. A pending deferred resolution is suppressed; whichever
// resolution reaches finalize first wins.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
		c.pending = nil
	}
	out := domain.PaymentOutcome{
		Status:    domain.OutcomeCancelled,
		SessionID: c.sessionIDLocked(),
	}
	c.state = StateCancelling
	c.mu.Unlock()
	c.finalize(out)
}

// firePending finalizes a deferred resolution when its timer elapses.
func (c *Controller) firePending() {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return
	}
	out := *c.pending
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()
	c.finalize(out)
}

// finalize delivers the outcome exactly once and returns the controller to
// idle. The callback runs outside the lock so it may call back into the
// controller.
func (c *Controller) finalize(out domain.PaymentOutcome) {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	resolve := c.resolve
	c.session = nil
	c.resolve = nil
	c.pending = nil
	c.state = StateIdle
	c.mu.Unlock()

	log.Debug().Str("status", string(out.Status)).Str("reason", out.Reason).
		Str("session_id", out.SessionID).Msg("payment resolved")
	if resolve != nil {
		resolve(out)
	}
}

func (c *Controller) outcomeLocked(res Resolution) domain.PaymentOutcome {
	out := domain.PaymentOutcome{SessionID: c.sessionIDLocked()}
	switch res.Verdict {
	case VerdictSuccess:
		out.Status = domain.OutcomeSuccess
		out.ExternalPaymentID = res.PaymentID
	case VerdictCancel:
		out.Status = domain.OutcomeCancelled
	case VerdictFail:
		out.Status = domain.OutcomeFailed
		out.Reason = string(res.Reason)
	}
	return out
}

func (c *Controller) sessionIDLocked() string {
	if c.session == nil {
		return ""
	}
	return c.session.ID
}

func terminalState(v Verdict) State {
	switch v {
	case VerdictSuccess:
		return StateSucceeding
	case VerdictCancel:
		return StateCancelling
	default:
		return StateFailing
	}
}
