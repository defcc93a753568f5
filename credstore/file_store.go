// Package credstore provides CredentialStore implementations. The default
// backend seals the credential into a single file with an AEAD so a casual
// edit of the file invalidates it; memory, redis and mongodb backends live in
// subpackages.
package credstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"

	"go.pilab.hu/selfcare/domain"
)

// FileStore persists one sealed credential to disk. Save writes a temp file
// and renames it over the target, so a crash mid-write leaves either the old
// credential or the new one, never a torn record.
type FileStore struct {
	path string
	key  []byte
}

// NewFileStore creates a file-backed store. keyHex is a hex-encoded 32-byte
// sealing key.
func NewFileStore(path, keyHex string) (*FileStore, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode sealing key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &FileStore{path: os.ExpandEnv(path), key: key}, nil
}

// Load implements domain.CredentialStore.
func (s *FileStore) Load(_ context.Context) (*domain.Credential, error) {
	sealed, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, domain.ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("credential file too short")
	}
	nonce, box := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		// Tampered or sealed with a different key. Treat as absent so the
		// session manager falls back to a fresh login.
		return nil, domain.ErrNoCredential
	}

	var cred domain.Credential
	if err := json.Unmarshal(plain, &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &cred, nil
}

// Save implements domain.CredentialStore.
func (s *FileStore) Save(_ context.Context, cred *domain.Credential) error {
	plain, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := append(nonce, aead.Seal(nil, nonce, plain, nil)...)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit credential file: %w", err)
	}
	return nil
}

// Clear implements domain.CredentialStore. Clearing an absent file is not an
// error.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}

var _ domain.CredentialStore = (*FileStore)(nil)
