// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials indicates failed authentication. The message never
	// reveals whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates an access token that failed verification or was
	// blacklisted before its natural expiry.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidRefreshToken indicates an unknown, expired or already redeemed
	// refresh token.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrNotLoggedIn indicates logout was called with no active session.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrRateLimited indicates the client exceeded a request budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrOAuthExchange indicates a failed call to the identity provider.
	ErrOAuthExchange = errors.New("oauth exchange failed")

	// ErrCrypto indicates an authenticated decryption failure (tamper or corruption).
	ErrCrypto = errors.New("crypto failure")
)
