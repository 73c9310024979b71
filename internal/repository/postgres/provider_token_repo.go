package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
)

// ProviderTokenRepo stores encrypted provider refresh tokens in PostgreSQL.
type ProviderTokenRepo struct{ db *DB }

// NewProviderTokenRepo constructs a provider token repository.
func NewProviderTokenRepo(db *DB) *ProviderTokenRepo { return &ProviderTokenRepo{db: db} }

// Upsert writes the record for the user, overwriting any previous one.
// One active record per user: every successful OAuth exchange replaces it.
func (r *ProviderTokenRepo) Upsert(ctx context.Context, rec *model.ProviderTokenRecord) error {
	const q = `
INSERT INTO provider_tokens (user_id, refresh_token_enc, id_token, scope)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE
SET refresh_token_enc=EXCLUDED.refresh_token_enc, id_token=EXCLUDED.id_token,
    scope=EXCLUDED.scope, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, rec.UserID, rec.RefreshTokenEnc, rec.IDToken, rec.Scope)
	return err
}

// GetByUserID loads the record for the user.
func (r *ProviderTokenRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.ProviderTokenRecord, error) {
	const q = `
SELECT user_id, refresh_token_enc, id_token, scope, created_at, updated_at
FROM provider_tokens WHERE user_id=$1`
	row := r.db.Pool.QueryRow(ctx, q, userID)
	var rec model.ProviderTokenRecord
	err := row.Scan(&rec.UserID, &rec.RefreshTokenEnc, &rec.IDToken, &rec.Scope, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &rec, nil
}
