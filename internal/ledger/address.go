package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"landlock/pkg/domain"
)

// Address is the hex-encoded, content-derived location of a record: a
// sha256 over a domain tag and the logical key parts, so a given logical key
// maps to exactly one address everywhere.
type Address string

// NewAddress derives a deterministic address from a domain tag and key parts.
// Parts are separated by a unit separator so ("ab","c") and ("a","bc") never
// collide.
func NewAddress(tag string, parts ...string) Address {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, p := range parts {
		h.Write([]byte{0x1f})
		h.Write([]byte(p))
	}
	return Address(hex.EncodeToString(h.Sum(nil)))
}

// ParseAddress validates an address supplied by a caller.
func ParseAddress(s string) (Address, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("address is not hex: %w", err)
	}
	if len(raw) != sha256.Size {
		return "", fmt.Errorf("address must be %d bytes, got %d", sha256.Size, len(raw))
	}
	return Address(s), nil
}

// Authority views the address as an authority value. Record addresses and
// identity keys share one 32-byte hex namespace, which is what lets a title
// deed's authority be re-pointed from its owner to an escrow record during a
// sale.
func (a Address) Authority() domain.PublicKey {
	return domain.PublicKey(a)
}

func (a Address) String() string {
	return string(a)
}

// Short returns a truncated form for log lines.
func (a Address) Short() string {
	if len(a) <= 8 {
		return string(a)
	}
	return string(a[:8])
}
