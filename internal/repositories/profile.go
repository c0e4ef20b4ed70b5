package repositories

import "errors"

// Error variables
var (
	ErrProfileNotFound = errors.New("profile not found in cache")
	ErrProfileExpired  = errors.New("profile session already expired")
)
