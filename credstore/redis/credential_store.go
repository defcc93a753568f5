// Package redis provides a CredentialStore backed by Redis, for hosts that
// keep their secrets in a hardened Redis rather than on local disk.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/selfcare/domain"
)

// Store implements the CredentialStore interface using Redis.
type Store struct {
	client *redis.Client
	prefix string // Optional prefix for keys
}

// NewStore creates a new [Store] instance.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{
		client: client,
		prefix: prefix,
	}
}

// redisKey returns the Redis key holding the single credential.
func (r *Store) redisKey() string {
	return fmt.Sprintf("%s:credential:current", r.prefix)
}

// Save stores the credential as a hash so the issue time stays inspectable
// without unsealing the payload.
func (r *Store) Save(ctx context.Context, cred *domain.Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	entry := map[string]interface{}{
		"credential": string(payload),
		"saved_at":   time.Now().Unix(),
	}

	if _, err := r.client.HSet(ctx, r.redisKey(), entry).Result(); err != nil {
		return fmt.Errorf("failed to set credential in Redis: %w", err)
	}
	return nil
}

// Load retrieves the credential from Redis.
func (r *Store) Load(ctx context.Context) (*domain.Credential, error) {
	res, err := r.client.HGetAll(ctx, r.redisKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential from Redis: %w", err)
	}
	payload, ok := res["credential"]
	if !ok {
		return nil, domain.ErrNoCredential
	}

	var cred domain.Credential
	if err := json.Unmarshal([]byte(payload), &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &cred, nil
}

// Clear removes the credential. Clearing an absent key is not an error.
func (r *Store) Clear(ctx context.Context) error {
	if _, err := r.client.Del(ctx, r.redisKey()).Result(); err != nil {
		return fmt.Errorf("failed to delete credential from Redis: %w", err)
	}
	return nil
}

var _ domain.CredentialStore = (*Store)(nil)
