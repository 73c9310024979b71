// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is a coarse user tier.
type Role string

const (
	RoleGuest Role = "guest"
	RolePrime Role = "prime"
)

// User represents an account. OAuth-only accounts carry no password material:
// PwdHash and SaltAuth are nil and OAuthSub is set.
type User struct {
	ID             uuid.UUID // PK
	Email          string    // unique, stored lowercased
	Name           string
	PwdHash        []byte // Argon2id(password, SaltAuth); nil for OAuth-only accounts
	SaltAuth       []byte // per-user auth salt; nil for OAuth-only accounts
	OAuthSub       string // provider subject id, unique when set
	Role           Role
	ProfilePicture string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasPassword reports whether the account can authenticate with a local password.
func (u *User) HasPassword() bool { return len(u.PwdHash) > 0 }

// Tokens collects the credentials issued for one session.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry (for diagnostics)
}

// RefreshToken is one row of the refresh token ledger: an opaque single-use
// credential exchanged for a fresh token pair without re-entering a password.
type RefreshToken struct {
	Token     string // opaque random hex, unique
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *RefreshToken) Expired(now time.Time) bool { return t.ExpiresAt.Before(now) }

// ProviderTokenRecord holds the encrypted long-lived refresh token issued by the
// external identity provider. At most one active record per user; every
// successful OAuth exchange overwrites it.
type ProviderTokenRecord struct {
	UserID          uuid.UUID
	RefreshTokenEnc []byte // AEAD ciphertext, nonce prepended
	IDToken         string
	Scope           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
