// Package gateway executes JSON-over-HTTPS calls against the self-care API.
// It attaches the current bearer token to outgoing requests, decodes the
// response envelope, classifies failures into typed errors, and raises the
// forced-logout signal when the server explicitly rejects a credential.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	serrors "go.pilab.hu/selfcare/errors"
)

// TokenSource supplies the bearer token for outgoing requests. The second
// return value reports whether a token is currently active. The gateway never
// holds the token itself; the capability is injected once at construction.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// RevocationNotifier is told when, and only when, an authenticated request
// receives an explicit "credential rejected" response. A login or register
// attempt never triggers it.
type RevocationNotifier interface {
	CredentialRejected(ctx context.Context)
}

// envelope is the standard response wrapper of the upstream API.
type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// Gateway is a thin request executor for the self-care API.
type Gateway struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	notifier RevocationNotifier
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the underlying HTTP client. Mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.http = c }
}

// WithTimeout sets the per-request timeout. The upstream API specifies none,
// so the default client uses 30s to guarantee callers always settle.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.http.Timeout = d }
}

// New creates a Gateway for baseURL. tokens and notifier are required; pass a
// shared session credential holder for both.
func New(baseURL string, tokens TokenSource, notifier RevocationNotifier, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		tokens:   tokens,
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// isAuthAttempt reports whether endpoint is itself a login/register call.
// Credential rejection on these is a failed authentication attempt, not a
// revoked session.
func isAuthAttempt(endpoint string) bool {
	return strings.Contains(endpoint, "action=login") || strings.Contains(endpoint, "action=register")
}

// do executes one API call and decodes the envelope's data into out (when out
// is non-nil). All failures come back as typed *serrors.Error values.
func (g *Gateway) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return serrors.NewDecodeError(err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, reqBody)
	if err != nil {
		return serrors.NewNetworkError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, hasToken := g.tokens.Token(ctx)
	if hasToken {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if (errors.As(err, &urlErr) && urlErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			return serrors.NewTimeoutError(err)
		}
		return serrors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return serrors.NewNetworkError(err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Debug().Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("non-JSON response body")
		return serrors.NewDecodeError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized && hasToken && !isAuthAttempt(endpoint) {
		// Explicit rejection of a previously valid token. Raise the signal
		// and still fail the call so both effects occur.
		log.Warn().Str("endpoint", endpoint).Msg("credential rejected by server, raising forced logout")
		g.notifier.CredentialRejected(ctx)
		return serrors.NewRejectedCredential(env.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serrors.NewRemoteError(resp.StatusCode, env.Message)
	}
	if !env.Success {
		return serrors.NewRemoteError(resp.StatusCode, env.Message)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return serrors.NewDecodeError(err)
		}
	}
	return nil
}
