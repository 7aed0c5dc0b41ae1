package domain

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// PublicKey is a hex-encoded ed25519 public key. It is the sole notion of
// identity in the protocol: parties are keys, and every record stores the key
// (or record address) currently empowered to act on it.
type PublicKey string

// ParsePublicKey validates that s is a hex-encoded ed25519 public key.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("public key is not hex: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return "", fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return PublicKey(s), nil
}

// FromRawKey encodes a raw ed25519 public key.
func FromRawKey(key ed25519.PublicKey) PublicKey {
	return PublicKey(hex.EncodeToString(key))
}

// Raw decodes the key back to its ed25519 form.
func (k PublicKey) Raw() (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(string(k))
	if err != nil {
		return nil, fmt.Errorf("public key is not hex: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

func (k PublicKey) IsZero() bool {
	return k == ""
}

func (k PublicKey) String() string {
	return string(k)
}

// Short returns a truncated form for log lines.
func (k PublicKey) Short() string {
	if len(k) <= 8 {
		return string(k)
	}
	return string(k[:8])
}
