// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/authgate/internal/model"
)

// UserRepository provides access to user identity records.
type UserRepository interface {
	// Create inserts a new user. Fails with errs.ErrAlreadyExists when the
	// email or the provider subject id is already taken.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
