package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned by SetToken for input that is not a JWT.
var ErrMalformedToken = errors.New("auth: malformed token")

// TokenSource holds a bearer JWT. It reports signed in while the token's exp
// claim is in the future (a token without exp never expires). Signatures are
// not checked here; the server that issued the token does that.
//
// TokenSource also implements httpclient.TokenProvider.
type TokenSource struct {
	mu     sync.RWMutex
	raw    string
	expiry time.Time

	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenSource returns a TokenSource holding raw. An empty raw starts
// signed out.
func NewTokenSource(raw string) (*TokenSource, error) {
	s := &TokenSource{
		now:    time.Now,
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
	}
	if raw == "" {
		return s, nil
	}
	if err := s.SetToken(raw); err != nil {
		return nil, err
	}
	return s, nil
}

// SetToken replaces the held token.
func (s *TokenSource) SetToken(raw string) error {
	raw = strings.TrimSpace(raw)
	claims := &jwt.RegisteredClaims{}
	if _, _, err := s.parser.ParseUnverified(raw, claims); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	var expiry time.Time
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	s.raw = raw
	s.expiry = expiry
	s.mu.Unlock()
	return nil
}

// Clear drops the held token.
func (s *TokenSource) Clear() {
	s.mu.Lock()
	s.raw = ""
	s.expiry = time.Time{}
	s.mu.Unlock()
}

// Token returns the held token, or "" when none is held or it has expired.
func (s *TokenSource) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return ""
	}
	return s.raw
}

// Expiry returns the exp claim of the held token, zero if absent.
func (s *TokenSource) Expiry() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiry
}

func (s *TokenSource) CurrentFlag() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked()
}

func (s *TokenSource) validLocked() bool {
	if s.raw == "" {
		return false
	}
	return s.expiry.IsZero() || s.now().Before(s.expiry)
}

// IssueToken signs an HS256 token for subject that expires after ttl. It is
// meant for development backends and tests.
func IssueToken(subject string, secret []byte, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	return token.SignedString(secret)
}
