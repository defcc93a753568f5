package session

import (
	"context"
	"sync"
)

// Signal carries the forced-logout notification from the gateway back into
// the session manager. The gateway receives it at construction and only ever
// calls CredentialRejected; the manager owns binding.
//
// At most one handler is bound; binding again replaces it (last writer wins).
type Signal struct {
	mu      sync.Mutex
	handler func(context.Context)
}

// NewSignal creates an unbound signal. An unbound signal swallows
// notifications, which is exactly what bootstrap relies on: a rejected stored
// credential during startup validation is handled locally, before any handler
// exists.
func NewSignal() *Signal {
	return &Signal{}
}

// CredentialRejected implements gateway.RevocationNotifier. The handler runs
// on its own goroutine so a rejection surfacing inside a request cannot
// deadlock against the session operation that issued the request.
func (s *Signal) CredentialRejected(ctx context.Context) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		go h(ctx)
	}
}

func (s *Signal) bind(h func(context.Context)) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}
