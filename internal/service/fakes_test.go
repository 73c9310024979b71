package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/authgate/internal/cache"
	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
	"github.com/and161185/authgate/internal/repository"
)

/************ fake user repository ************/

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]*model.User

	createErr error
	getErr    error

	// notFoundOnce makes the next GetByEmail miss, simulating a concurrent
	// create racing the read-then-create reconciliation.
	notFoundOnce bool
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*model.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return errs.ErrAlreadyExists
	}
	for _, other := range f.byEmail {
		if u.OAuthSub != "" && other.OAuthSub == u.OAuthSub {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *u
	f.byEmail[u.Email] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.notFoundOnce {
		f.notFoundOnce = false
		return nil, errs.ErrNotFound
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

/************ fake refresh token ledger ************/

type fakeLedger struct {
	mu     sync.Mutex
	tokens map[string]*model.RefreshToken

	createErr error
	redeemErr error
}

var _ repository.RefreshTokenRepository = (*fakeLedger)(nil)

func newFakeLedger() *fakeLedger {
	return &fakeLedger{tokens: map[string]*model.RefreshToken{}}
}

func (f *fakeLedger) Create(_ context.Context, t *model.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.tokens[t.Token]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *t
	f.tokens[t.Token] = &cpy
	return nil
}

// Redeem mimics the DELETE ... RETURNING semantics: lookup and removal under
// one lock, so concurrent redeemers of the same value have exactly one winner.
func (f *fakeLedger) Redeem(_ context.Context, token string) (*model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	t, ok := f.tokens[token]
	if !ok || t.Expired(time.Now()) {
		return nil, errs.ErrInvalidRefreshToken
	}
	delete(f.tokens, token)
	c := *t
	return &c, nil
}

func (f *fakeLedger) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

func (f *fakeLedger) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for tok, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, tok)
		}
	}
	return nil
}

func (f *fakeLedger) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for tok, t := range f.tokens {
		if t.ExpiresAt.Before(before) {
			delete(f.tokens, tok)
			n++
		}
	}
	return n, nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

/************ fake session cache ************/

type fakeSessions struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]string
	blacklist map[string]time.Duration // token -> ttl at blacklisting

	getErr       error
	setErr       error
	blacklistErr error
	isBlErr      error
}

var _ cache.SessionCache = (*fakeSessions)(nil)

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions:  map[uuid.UUID]string{},
		blacklist: map[string]time.Duration{},
	}
}

func (f *fakeSessions) SetSession(_ context.Context, userID uuid.UUID, accessToken string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.sessions[userID] = accessToken
	return nil
}

func (f *fakeSessions) GetSession(_ context.Context, userID uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	tok, ok := f.sessions[userID]
	if !ok {
		return "", errs.ErrNotFound
	}
	return tok, nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, userID)
	return nil
}

func (f *fakeSessions) Blacklist(_ context.Context, accessToken string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blacklistErr != nil {
		return f.blacklistErr
	}
	if ttl > 0 {
		f.blacklist[accessToken] = ttl
	}
	return nil
}

func (f *fakeSessions) IsBlacklisted(_ context.Context, accessToken string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isBlErr != nil {
		return false, f.isBlErr
	}
	_, ok := f.blacklist[accessToken]
	return ok, nil
}

func (f *fakeSessions) blacklistTTL(accessToken string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ttl, ok := f.blacklist[accessToken]
	return ttl, ok
}
