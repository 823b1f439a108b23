package auth

import "errors"

var (
	// ErrInvalidRefreshToken covers every refresh-token failure: bad
	// signature, malformed claims, embedded expiry in the past, and a ledger
	// row that is missing or expired. The causes are deliberately collapsed
	// so callers cannot distinguish a revoked token from one that never
	// existed.
	ErrInvalidRefreshToken = errors.New("auth: invalid refresh token")

	// ErrInvalidToken indicates an access token failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrInvalidCredentials indicates a failed email/password login.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: resource conflict")
	ErrUnauthorized = errors.New("auth: unauthorized")
)
