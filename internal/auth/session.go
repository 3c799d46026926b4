// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/models"
)

// ParseTokenExpireTime reads a TOKEN_EXPIRE_TIME value. "never", "0" and the
// empty string mean tokens carry no exp claim.
func ParseTokenExpireTime(raw string) (time.Duration, error) {
	if raw == "never" || raw == "0" || raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("token expire time must not be negative: %s", raw)
	}
	return d, nil
}

type userClaims struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies bearer tokens with a per-process ed25519 key.
// Tokens do not survive a restart, and neither do the rooms they grant access to.
type TokenIssuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	expire     time.Duration
	clock      clockwork.Clock
}

// NewTokenIssuer generates a fresh key pair. A zero expire issues tokens
// without an exp claim.
func NewTokenIssuer(expire time.Duration, clock clockwork.Clock) (*TokenIssuer, error) {
	public, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &TokenIssuer{privateKey: private, publicKey: public, expire: expire, clock: clock}, nil
}

// Issue creates a signed token for u with "sub" = u.ID.
func (ti *TokenIssuer) Issue(u models.User) (string, error) {
	now := ti.clock.Now()
	claims := userClaims{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  u.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ti.expire > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ti.expire))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(ti.privateKey)
}

// Verify checks a token and returns the identity it carries.
func (ti *TokenIssuer) Verify(raw string) (models.User, error) {
	var claims userClaims
	t, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.publicKey, nil
	}, jwt.WithTimeFunc(ti.clock.Now))
	if err != nil || !t.Valid {
		return models.User{}, game.Unauthorized("invalid token")
	}
	if claims.Subject == "" {
		return models.User{}, game.Unauthorized("missing sub in token")
	}
	return models.User{
		ID:        claims.Subject,
		Username:  claims.Username,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}, nil
}
