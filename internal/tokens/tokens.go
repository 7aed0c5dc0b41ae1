// Package tokens implements the bearer-token form of request signing. A token
// is an EdDSA JWT signed by the caller's own ed25519 key, with the hex public
// key in the sub claim: the token certifies itself, and verifying it proves
// the caller holds the key they claim to be. There is no issuer secret.
package tokens

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"landlock/pkg/domain"
	"landlock/pkg/keys"
)

// DefaultTTL bounds how long a minted token stays valid. Short on purpose:
// tokens are per-session credentials, not API keys.
const DefaultTTL = 15 * time.Minute

// Claims is the validated content of a bearer token.
type Claims struct {
	Subject   domain.PublicKey
	JTI       string
	ExpiresAt time.Time
}

// Mint signs a bearer token with the caller's private key. The matching
// public key becomes the sub claim.
func Mint(key ed25519.PrivateKey, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   keys.PublicOf(key).String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a bearer token against the key named in its
// own sub claim. A valid signature therefore proves possession of that key.
func Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		sub, err := t.Claims.GetSubject()
		if err != nil {
			return nil, fmt.Errorf("token has no subject: %w", err)
		}
		key, err := domain.ParsePublicKey(sub)
		if err != nil {
			return nil, fmt.Errorf("token subject is not a public key: %w", err)
		}
		return key.Raw()
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("token has no jti")
	}
	subject, err := domain.ParsePublicKey(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject is not a public key: %w", err)
	}
	return &Claims{
		Subject:   subject,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
