package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource reads the backend access token from a Store on every call.
type TokenSource struct {
	store *Store
	key   string
}

// NewTokenSource returns a TokenSource reading key from store.
func NewTokenSource(store *Store, key string) *TokenSource {
	return &TokenSource{store: store, key: key}
}

// Token returns the stored token, or "" when none is stored.
func (t *TokenSource) Token() (string, error) {
	token, err := t.store.Get(t.key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return token, err
}

// ErrNoExpiry is returned for tokens without an exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// TokenExpiry decodes the exp claim of a JWT access token. The signature
// is not verified; the backend remains the authority.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decoding access token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("reading exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// Expired reports whether token's exp claim lies before now. Tokens that
// cannot be decoded are treated as not expired.
func Expired(token string, now time.Time) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return false
	}
	return exp.Before(now)
}
