// Package keys handles ed25519 identity key material for protocol parties.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"landlock/pkg/domain"
)

// Generate creates a new ed25519 identity key pair.
func Generate() (domain.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	return domain.FromRawKey(pub), priv, nil
}

// SavePrivateKey writes the private key hex-encoded with owner-only permissions.
func SavePrivateKey(path string, priv ed25519.PrivateKey) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	return os.WriteFile(path, []byte(hex.EncodeToString(priv)), 0o600)
}

// LoadPrivateKey reads a hex-encoded private key from a file.
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("private key is not hex: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size %d", len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}

// PublicOf extracts the hex public key of a private key.
func PublicOf(priv ed25519.PrivateKey) domain.PublicKey {
	return domain.FromRawKey(priv.Public().(ed25519.PublicKey))
}
