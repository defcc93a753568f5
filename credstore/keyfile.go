package credstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// LoadOrCreateKey returns the hex sealing key stored at path, generating and
// persisting a fresh random key on first use so a host without a configured
// key still gets a working, tamper-evident store. The key file is written
// before it is ever used, so a partially written file can only exist on a
// machine that never sealed a credential with it.
func LoadOrCreateKey(path string) (string, error) {
	path = os.ExpandEnv(path)
	raw, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(raw)), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("read sealing key: %w", err)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate sealing key: %w", err)
	}
	encoded := hex.EncodeToString(key)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write sealing key: %w", err)
	}
	return encoded, nil
}
