package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/authgate/internal/cache"
	"github.com/and161185/authgate/internal/crypto"
	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
	"github.com/and161185/authgate/internal/oauth"
	"github.com/and161185/authgate/internal/repository"
)

// ProviderClient is the identity provider surface consumed by the exchange
// flow. Implemented by oauth.Provider.
type ProviderClient interface {
	AuthCodeURL() string
	Exchange(ctx context.Context, code string) (*oauth.Tokens, error)
	FetchProfile(ctx context.Context, accessToken string) (*oauth.Profile, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth.Tokens, error)
}

// SessionIssuer is the slice of the token lifecycle manager the OAuth flow
// hands off to after reconciling the user.
type SessionIssuer interface {
	IssueSessionFor(ctx context.Context, u *model.User) (model.Tokens, error)
	RenewSession(ctx context.Context, userID uuid.UUID) (bool, error)
}

// OAuthService runs the authorization-code exchange: provider tokens, profile
// fetch, user reconciliation, encrypted storage of the provider refresh token
// and hand-off into local session issuance.
type OAuthService struct {
	provider       ProviderClient
	users          repository.UserRepository
	providerTokens repository.ProviderTokenRepository
	sessions       cache.SessionCache
	cipher         *crypto.TokenCipher
	issuer         SessionIssuer
	keepAlive      *KeepAlive
	log            *zap.Logger
}

// NewOAuthService constructs the exchange flow with its dependencies.
func NewOAuthService(
	provider ProviderClient,
	users repository.UserRepository,
	providerTokens repository.ProviderTokenRepository,
	sessions cache.SessionCache,
	cipher *crypto.TokenCipher,
	issuer SessionIssuer,
	keepAlive *KeepAlive,
	log *zap.Logger,
) *OAuthService {
	return &OAuthService{
		provider:       provider,
		users:          users,
		providerTokens: providerTokens,
		sessions:       sessions,
		cipher:         cipher,
		issuer:         issuer,
		keepAlive:      keepAlive,
		log:            log,
	}
}

// AuthorizationURL builds the provider consent URL for the redirect handler.
func (o *OAuthService) AuthorizationURL() string { return o.provider.AuthCodeURL() }

// CompleteLogin exchanges the authorization code, reconciles the user by
// email and issues a local session.
//
// The flow is not atomic across provider calls and local persistence. The
// ordering keeps every partial failure recoverable by a plain retry: the
// user row is created first and matched by email on the next attempt, and
// the provider token record is an upsert.
func (o *OAuthService) CompleteLogin(ctx context.Context, code string) (uuid.UUID, model.Tokens, error) {
	tokens, err := o.provider.Exchange(ctx, code)
	if err != nil {
		return uuid.Nil, model.Tokens{}, err
	}
	profile, err := o.provider.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		return uuid.Nil, model.Tokens{}, err
	}
	if profile.Email == "" {
		return uuid.Nil, model.Tokens{}, fmt.Errorf("%w: provider profile has no email", errs.ErrOAuthExchange)
	}

	u, err := o.reconcileUser(ctx, profile)
	if err != nil {
		return uuid.Nil, model.Tokens{}, err
	}

	// Overwrite the provider token record on every successful exchange.
	// With prompt=consent the provider returns a refresh token each time.
	if tokens.RefreshToken != "" {
		enc, err := o.cipher.Encrypt(tokens.RefreshToken)
		if err != nil {
			return uuid.Nil, model.Tokens{}, err
		}
		rec := &model.ProviderTokenRecord{
			UserID:          u.ID,
			RefreshTokenEnc: enc,
			IDToken:         tokens.IDToken,
			Scope:           tokens.Scope,
		}
		if err := o.providerTokens.Upsert(ctx, rec); err != nil {
			return uuid.Nil, model.Tokens{}, fmt.Errorf("save provider tokens: %w", err)
		}
	}

	issued, err := o.issuer.IssueSessionFor(ctx, u)
	if err != nil {
		return uuid.Nil, model.Tokens{}, err
	}

	// OAuth sessions renew through the provider so the provider-side access
	// token stays fresh alongside the local one.
	o.keepAlive.Start(u.ID, o.renewViaProvider)

	return u.ID, issued, nil
}

// reconcileUser matches the profile by email or creates a password-less
// account. A concurrent create racing this call loses with ErrAlreadyExists
// and resolves by re-reading: the flow is idempotent on email.
func (o *OAuthService) reconcileUser(ctx context.Context, profile *oauth.Profile) (*model.User, error) {
	u, err := o.users.GetByEmail(ctx, profile.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	// OAuth-created accounts carry no local password: PwdHash stays nil and
	// the account authenticates through the provider only.
	u = &model.User{
		ID:             uid,
		Email:          profile.Email,
		Name:           profile.Name,
		OAuthSub:       profile.Sub,
		Role:           model.RoleGuest,
		ProfilePicture: profile.Picture,
	}
	if err := o.users.Create(ctx, u); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return o.users.GetByEmail(ctx, profile.Email)
		}
		return nil, err
	}
	o.log.Info("created user from oauth profile", zap.String("user_id", uid.String()))
	return u, nil
}

// RefreshProviderToken refreshes the provider-side access token and renews
// the local session. It returns false with no error when no session entry
// exists, signalling the keep-alive loop to stop.
func (o *OAuthService) RefreshProviderToken(ctx context.Context, userID uuid.UUID) (bool, error) {
	if _, err := o.sessions.GetSession(ctx, userID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	rec, err := o.providerTokens.GetByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load provider tokens: %w", err)
	}
	refreshToken, err := o.cipher.Decrypt(rec.RefreshTokenEnc)
	if err != nil {
		return false, err
	}
	if _, err := o.provider.RefreshAccessToken(ctx, refreshToken); err != nil {
		return false, err
	}
	return o.issuer.RenewSession(ctx, userID)
}

// renewViaProvider adapts RefreshProviderToken to the keep-alive contract.
func (o *OAuthService) renewViaProvider(ctx context.Context, userID uuid.UUID) (bool, error) {
	return o.RefreshProviderToken(ctx, userID)
}
