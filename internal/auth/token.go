// Package auth issues and verifies the signed session tokens used by the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the token lifetime when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrNoSecret is returned when a TokenService is built without a signing key.
	ErrNoSecret = errors.New("jwt secret key is required")
)

// userNamespace scopes the deterministic user ids derived from netlink ids.
var userNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://lantern.local/users"))

// UserIDFor derives a stable user id from a netlink id.
func UserIDFor(netlinkID string) string {
	return uuid.NewSHA1(userNamespace, []byte(strings.ToLower(strings.TrimSpace(netlinkID)))).String()
}

// Claims is the identity carried by a token.
type Claims struct {
	UserID    string    `json:"user_id"`
	NetlinkID string    `json:"netlink_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type tokenClaims struct {
	NetlinkID string `json:"netlink_id"`
	jwt.RegisteredClaims
}

// TokenService mints and checks HS256 tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a service signing with secret. A non-positive ttl uses DefaultTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for userID with the netlink id as a private claim.
func (s *TokenService) Issue(userID, netlinkID string) (string, error) {
	if userID == "" || netlinkID == "" {
		return "", fmt.Errorf("user id and netlink id are required")
	}
	now := s.now()
	claims := tokenClaims{
		NetlinkID: netlinkID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString and returns its identity.
func (s *TokenService) Verify(tokenString string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	tc, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || tc.Subject == "" || tc.NetlinkID == "" || tc.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: tc.Subject, NetlinkID: tc.NetlinkID, ExpiresAt: tc.ExpiresAt.Time}, nil
}

type claimsKey struct{}

// WithClaims returns a context carrying c.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext returns the identity attached by the middleware, if any.
func FromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}
