package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
)

// ErrUnknownRole is returned when a token is requested for, or carries, a role
// outside ledger.Roles.
var ErrUnknownRole = errors.New("unknown organization role")

// RoleClaims are the JWT claims of a role token. A role token binds its holder
// to one organization role; the ledger trusts the role it carries.
type RoleClaims struct {
	jwt.RegisteredClaims
	Role ledger.Role `json:"role"`
}

// TokenIssuer issues and verifies role tokens signed with RS256.
type TokenIssuer struct {
	key    *rsa.PrivateKey
	pub    *rsa.PublicKey
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer. ttl defaults to one hour.
func NewTokenIssuer(key *rsa.PrivateKey, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{
		key:    key,
		pub:    &key.PublicKey,
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue creates a signed role token. role is normalised with ledger.ParseRole.
func (t *TokenIssuer) Issue(role string) (string, error) {
	r, ok := ledger.ParseRole(role)
	if !ok {
		return "", fmt.Errorf("issue token for %q: %w", role, ErrUnknownRole)
	}
	now := time.Now().UTC()
	claims := RoleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   string(r),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		Role: r,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a role token, returning its claims on success.
func (t *TokenIssuer) Verify(tokenStr string) (*RoleClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&RoleClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.pub, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(*RoleClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if _, known := ledger.ParseRole(string(claims.Role)); !known {
		return nil, fmt.Errorf("verify token: %w", ErrUnknownRole)
	}
	return claims, nil
}

// PublicKey returns the RSA public key used to verify tokens.
func (t *TokenIssuer) PublicKey() *rsa.PublicKey { return t.pub }

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }
