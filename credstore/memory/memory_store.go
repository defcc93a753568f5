// Package memory provides an in-memory CredentialStore backed by ttlcache.
// It is used by tests and by hosts that must not persist the token.
package memory

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/selfcare/domain"
)

const credentialKey = "current"

// Store implements domain.CredentialStore using ttlcache.
type Store struct {
	cache *ttlcache.Cache[string, *domain.Credential]
}

// NewStore creates a new in-memory credential store. ttl bounds how long an
// untouched credential is retained; zero means no expiry.
func NewStore(ttl time.Duration) *Store {
	if ttl == 0 {
		ttl = ttlcache.NoTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.Credential](ttl),
		ttlcache.WithDisableTouchOnHit[string, *domain.Credential](),
	)

	// Start the cleanup process
	go cache.Start()

	return &Store{cache: cache}
}

// Load implements domain.CredentialStore.
func (s *Store) Load(_ context.Context) (*domain.Credential, error) {
	item := s.cache.Get(credentialKey)
	if item == nil {
		return nil, domain.ErrNoCredential
	}
	cred := *item.Value()
	return &cred, nil
}

// Save implements domain.CredentialStore.
func (s *Store) Save(_ context.Context, cred *domain.Credential) error {
	copied := *cred
	s.cache.Set(credentialKey, &copied, ttlcache.DefaultTTL)
	return nil
}

// Clear implements domain.CredentialStore.
func (s *Store) Clear(_ context.Context) error {
	s.cache.Delete(credentialKey)
	return nil
}

// Close stops the cleanup goroutine.
func (s *Store) Close() error {
	s.cache.Stop()
	return nil
}

var _ domain.CredentialStore = (*Store)(nil)
