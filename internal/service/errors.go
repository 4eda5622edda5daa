package service

import "errors"

// Sentinels checked with errors.Is across handlers; the HTTP layer maps
// them onto 401/403/404/422/429.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate limited")
	ErrValidation      = errors.New("validation failed")
)
