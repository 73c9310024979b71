package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
)

// RefreshTokenRepo implements the refresh token ledger using PostgreSQL.
type RefreshTokenRepo struct{ db *DB }

// NewRefreshTokenRepo constructs a refresh token repository.
func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

// Create inserts a freshly issued token.
func (r *RefreshTokenRepo) Create(ctx context.Context, t *model.RefreshToken) error {
	const q = `
INSERT INTO refresh_tokens (token, user_id, expires_at)
VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, t.Token, t.UserID, t.ExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Redeem deletes the token and returns its record in a single statement.
// The DELETE ... RETURNING form makes redemption atomic: under concurrent
// redemption of the same token value exactly one caller gets the row back,
// every other caller sees no rows. Expired tokens are rejected in place.
func (r *RefreshTokenRepo) Redeem(ctx context.Context, token string) (*model.RefreshToken, error) {
	const q = `
DELETE FROM refresh_tokens
WHERE token=$1 AND expires_at > now()
RETURNING token, user_id, expires_at, created_at`
	row := r.db.Pool.QueryRow(ctx, q, token)
	var t model.RefreshToken
	if err := row.Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrInvalidRefreshToken
	}
	return &t, nil
}

// Revoke deletes a token without a replacement. Deleting an absent token is
// not an error: revocation is idempotent.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, token string) error {
	const q = `DELETE FROM refresh_tokens WHERE token=$1`
	_, err := r.db.Pool.Exec(ctx, q, token)
	return err
}

// RevokeAllForUser deletes every outstanding token of the user.
func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM refresh_tokens WHERE user_id=$1`
	_, err := r.db.Pool.Exec(ctx, q, userID)
	return err
}

// DeleteExpired purges tokens past their expiry. Used by the background sweep;
// lookups reject expired tokens regardless, so the sweep only reclaims space.
func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM refresh_tokens WHERE expires_at < $1`
	tag, err := r.db.Pool.Exec(ctx, q, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
