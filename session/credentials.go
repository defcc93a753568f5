package session

import (
	"context"
	"sync"

	"go.pilab.hu/selfcare/domain"
)

// Credentials is the process-wide slot holding the active credential. The
// gateway reads it through the TokenSource capability; only the Manager
// writes it. Injected into both at construction, it replaces any notion of a
// mutable token field on the gateway itself.
type Credentials struct {
	mu   sync.RWMutex
	cred *domain.Credential
}

// NewCredentials creates an empty credential slot.
func NewCredentials() *Credentials {
	return &Credentials{}
}

// Token implements gateway.TokenSource.
func (c *Credentials) Token(_ context.Context) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cred == nil {
		return "", false
	}
	return c.cred.Token, true
}

// Current returns a copy of the active credential, if any.
func (c *Credentials) Current() (domain.Credential, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cred == nil {
		return domain.Credential{}, false
	}
	return *c.cred, true
}

func (c *Credentials) set(cred *domain.Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *cred
	c.cred = &copied
}

func (c *Credentials) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = nil
}
