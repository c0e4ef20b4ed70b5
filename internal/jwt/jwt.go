package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned when the token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiration")

// ExpiresAt reads the exp claim of a session token.
// The signature is not checked.
func ExpiresAt(tokenString string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// TTL returns the remaining lifetime of the token at now,
// or fallback when the token cannot be read or has no exp claim.
// An expired token yields zero.
func TTL(tokenString string, now time.Time, fallback time.Duration) time.Duration {
	exp, err := ExpiresAt(tokenString)
	if err != nil {
		return fallback
	}
	if ttl := exp.Sub(now); ttl > 0 {
		return ttl
	}
	return 0
}
