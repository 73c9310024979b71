// Package service contains application services for the token lifecycle and
// the OAuth exchange flow.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/authgate/internal/cache"
	pkgcrypto "github.com/and161185/authgate/internal/crypto"
	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
	"github.com/and161185/authgate/internal/repository"
	"github.com/and161185/authgate/internal/token"
)

const (
	// refreshTokenBytes is the random length of an opaque refresh token.
	refreshTokenBytes = 40

	// minPasswordLen mirrors the registration validation contract.
	minPasswordLen = 6
)

// AuthService defines the token lifecycle operations: issuance on
// login/registration, validation on protected requests, rotation on refresh
// and revocation on logout.
type AuthService interface {
	// Register creates a local user and issues a first session.
	Register(ctx context.Context, name, email, password string) (uuid.UUID, model.Tokens, error)
	// Login authenticates local credentials and issues a session.
	Login(ctx context.Context, email, password string) (uuid.UUID, model.Tokens, error)
	// Refresh rotates a refresh token into a fresh token pair.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// Logout revokes the active session and outstanding refresh tokens.
	Logout(ctx context.Context, userID uuid.UUID) error
	// LogoutByRefreshToken resolves the user through the ledger, then logs out.
	LogoutByRefreshToken(ctx context.Context, refreshToken string) error
	// Validate verifies an access token and its blacklist status.
	Validate(ctx context.Context, accessToken string) (*token.Claims, error)
}

type AuthServiceImpl struct {
	users      repository.UserRepository
	ledger     repository.RefreshTokenRepository
	sessions   cache.SessionCache
	signer     *token.Signer
	refreshTTL time.Duration
	keepAlive  *KeepAlive
	locks      *userLocks
	log        *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository,
	ledger repository.RefreshTokenRepository,
	sessions cache.SessionCache,
	signer *token.Signer,
	refreshTTL time.Duration,
	keepAlive *KeepAlive,
	log *zap.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:      users,
		ledger:     ledger,
		sessions:   sessions,
		signer:     signer,
		refreshTTL: refreshTTL,
		keepAlive:  keepAlive,
		locks:      newUserLocks(),
		log:        log,
	}
}

// Register creates a new local user and performs first issuance.
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (uuid.UUID, model.Tokens, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return uuid.Nil, model.Tokens{}, err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, model.Tokens{}, err
	}
	salt, err := pkgcrypto.RandBytes(pkgcrypto.SaltLen)
	if err != nil {
		return uuid.Nil, model.Tokens{}, err
	}
	u := &model.User{
		ID:       uid,
		Email:    strings.ToLower(email),
		Name:     name,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), salt),
		SaltAuth: salt,
		Role:     model.RoleGuest,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return uuid.Nil, model.Tokens{}, err
	}

	release := s.locks.lock(u.ID)
	defer release()
	tokens, err := s.issueSession(ctx, u)
	if err != nil {
		return uuid.Nil, model.Tokens{}, err
	}
	return u.ID, tokens, nil
}

// Login authenticates and issues a session. The failure never reveals
// whether the email or the password was wrong.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (uuid.UUID, model.Tokens, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return uuid.Nil, model.Tokens{}, errs.ErrInvalidCredentials
		}
		return uuid.Nil, model.Tokens{}, err
	}
	if !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		return uuid.Nil, model.Tokens{}, errs.ErrInvalidCredentials
	}

	release := s.locks.lock(u.ID)
	defer release()
	tokens, err := s.issueSession(ctx, u)
	if err != nil {
		return uuid.Nil, model.Tokens{}, err
	}
	return u.ID, tokens, nil
}

// Refresh redeems the old token and issues a replacement pair. Redemption is
// atomic in the ledger, so a replayed token loses before the per-user
// critical section is even entered.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	if refreshToken == "" {
		return model.Tokens{}, errs.ErrValidation
	}
	rec, err := s.ledger.Redeem(ctx, refreshToken)
	if err != nil {
		return model.Tokens{}, err
	}
	u, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, errs.ErrInvalidRefreshToken
		}
		return model.Tokens{}, err
	}

	release := s.locks.lock(u.ID)
	defer release()
	return s.issueSession(ctx, u)
}

// Logout blacklists the active access token for its remaining validity,
// deletes the session entry and revokes outstanding refresh tokens.
func (s *AuthServiceImpl) Logout(ctx context.Context, userID uuid.UUID) error {
	release := s.locks.lock(userID)
	defer release()

	current, err := s.sessions.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrNotLoggedIn
		}
		return err
	}

	// Remaining validity comes from the token's own expiry claim, so the
	// blacklist entry dies exactly when the token would have.
	if claims, verr := s.signer.Verify(current); verr == nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		if err := s.sessions.Blacklist(ctx, current, remaining); err != nil {
			return fmt.Errorf("blacklist token: %w", err)
		}
	}
	if err := s.sessions.DeleteSession(ctx, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := s.ledger.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	s.keepAlive.Stop(userID)
	return nil
}

// LogoutByRefreshToken resolves the user by redeeming the presented refresh
// token, then runs the normal logout. The redemption also consumes the token.
func (s *AuthServiceImpl) LogoutByRefreshToken(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return errs.ErrValidation
	}
	rec, err := s.ledger.Redeem(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.Logout(ctx, rec.UserID); err != nil && !errors.Is(err, errs.ErrNotLoggedIn) {
		return err
	}
	return nil
}

// Validate verifies signature and expiry, then rejects blacklisted tokens.
// Cache errors fail closed: an unreachable blacklist never grants access.
func (s *AuthServiceImpl) Validate(ctx context.Context, accessToken string) (*token.Claims, error) {
	claims, err := s.signer.Verify(accessToken)
	if err != nil {
		return nil, err
	}
	revoked, err := s.sessions.IsBlacklisted(ctx, accessToken)
	if err != nil {
		s.log.Warn("blacklist lookup failed, failing closed", zap.Error(err))
		return nil, errs.ErrInvalidToken
	}
	if revoked {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}

// issueSession signs an access token, stores it as the single live session
// entry, issues a ledger refresh token and arms the keep-alive task.
// Callers hold the per-user lock.
func (s *AuthServiceImpl) issueSession(ctx context.Context, u *model.User) (model.Tokens, error) {
	access, exp, err := s.signer.Sign(u)
	if err != nil {
		return model.Tokens{}, err
	}
	if err := s.sessions.SetSession(ctx, u.ID, access, s.signer.TTL()); err != nil {
		return model.Tokens{}, fmt.Errorf("store session: %w", err)
	}

	opaque, err := pkgcrypto.RandomToken(refreshTokenBytes)
	if err != nil {
		return model.Tokens{}, err
	}
	rec := &model.RefreshToken{
		Token:     opaque,
		UserID:    u.ID,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.ledger.Create(ctx, rec); err != nil {
		return model.Tokens{}, fmt.Errorf("issue refresh token: %w", err)
	}

	s.keepAlive.Start(u.ID, s.RenewSession)
	return model.Tokens{AccessToken: access, RefreshToken: opaque, ExpiresAt: exp}, nil
}

// IssueSessionFor issues a session for an already-authenticated user. Used by
// the OAuth exchange flow after reconciling the profile.
func (s *AuthServiceImpl) IssueSessionFor(ctx context.Context, u *model.User) (model.Tokens, error) {
	release := s.locks.lock(u.ID)
	defer release()
	return s.issueSession(ctx, u)
}

// RenewSession re-signs the access token under the same session key while the
// entry still exists. A missing entry reports the session as gone.
func (s *AuthServiceImpl) RenewSession(ctx context.Context, userID uuid.UUID) (bool, error) {
	release := s.locks.lock(userID)
	defer release()

	if _, err := s.sessions.GetSession(ctx, userID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return true, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return true, err
	}
	access, _, err := s.signer.Sign(u)
	if err != nil {
		return true, err
	}
	if err := s.sessions.SetSession(ctx, userID, access, s.signer.TTL()); err != nil {
		return true, err
	}
	return true, nil
}

// RunLedgerSweep purges expired refresh tokens on a fixed interval until the
// context is cancelled. Lookups reject expired tokens lazily regardless; the
// sweep reclaims storage. A failed iteration is logged and retried on the
// next tick, never fatal.
func (s *AuthServiceImpl) RunLedgerSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ledger.DeleteExpired(ctx, time.Now())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Warn("ledger sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("purged expired refresh tokens", zap.Int64("count", n))
			}
		}
	}
}

func validateRegistration(name, email, password string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", errs.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", errs.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", errs.ErrValidation, minPasswordLen)
	}
	return nil
}
