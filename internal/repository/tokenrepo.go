package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/authgate/internal/model"
)

// RefreshTokenRepository is the durable ledger of opaque local refresh tokens.
type RefreshTokenRepository interface {
	// Create persists a freshly issued token with its expiry.
	Create(ctx context.Context, t *model.RefreshToken) error
	// Redeem atomically deletes the token and returns its record. A given
	// token value redeems successfully at most once: concurrent redeemers
	// have exactly one winner. Unknown, expired or already redeemed tokens
	// fail with errs.ErrInvalidRefreshToken.
	Redeem(ctx context.Context, token string) (*model.RefreshToken, error)
	// Revoke deletes a token without issuing a replacement.
	Revoke(ctx context.Context, token string) error
	// RevokeAllForUser deletes every outstanding token of the user.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
	// DeleteExpired purges tokens whose expiry is before the given instant
	// and reports how many rows were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ProviderTokenRepository stores encrypted provider refresh tokens,
// one active record per user.
type ProviderTokenRepository interface {
	// Upsert creates the record or overwrites the existing one for the user.
	Upsert(ctx context.Context, rec *model.ProviderTokenRecord) error
	// GetByUserID loads the record for the user.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.ProviderTokenRecord, error)
}
