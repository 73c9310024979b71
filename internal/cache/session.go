// Package cache implements the Redis-backed session cache and token blacklist.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"

	"github.com/and161185/authgate/internal/errs"
)

// SessionCache maps a user to their current access token and a revoked token
// to a blacklist marker, both with expiry-driven eviction. A session entry is
// the source of truth for "session active": absence means the user must
// re-authenticate. Cache unavailability degrades to "treat as logged out".
type SessionCache interface {
	// SetSession stores the current access token for the user, overwriting
	// any existing entry. At most one live access token per user.
	SetSession(ctx context.Context, userID uuid.UUID, accessToken string, ttl time.Duration) error
	// GetSession returns the current access token, or errs.ErrNotFound.
	GetSession(ctx context.Context, userID uuid.UUID) (string, error)
	// DeleteSession removes the entry; deleting an absent entry is not an error.
	DeleteSession(ctx context.Context, userID uuid.UUID) error
	// Blacklist marks a token revoked for the given remaining validity.
	Blacklist(ctx context.Context, accessToken string, ttl time.Duration) error
	// IsBlacklisted reports whether the token was revoked.
	IsBlacklisted(ctx context.Context, accessToken string) (bool, error)
}

const (
	sessionPrefix   = "session:"
	blacklistPrefix = "blacklist:"
)

// Redis implements SessionCache on a go-redis client.
type Redis struct {
	client *redis.Client
}

// NewRedis verifies connectivity and constructs the cache.
func NewRedis(ctx context.Context, client *redis.Client) (*Redis, error) {
	if client == nil {
		return nil, errors.New("nil redis client")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client}, nil
}

// hashToken keys blacklist entries by digest so raw tokens never land in Redis.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func sessionKey(userID uuid.UUID) string { return sessionPrefix + userID.String() }

// SetSession stores the access token under the user key with the token TTL.
func (c *Redis) SetSession(ctx context.Context, userID uuid.UUID, accessToken string, ttl time.Duration) error {
	return c.client.Set(ctx, sessionKey(userID), accessToken, ttl).Err()
}

// GetSession returns the current access token for the user.
func (c *Redis) GetSession(ctx context.Context, userID uuid.UUID) (string, error) {
	val, err := c.client.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errs.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// DeleteSession removes the session entry.
func (c *Redis) DeleteSession(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, sessionKey(userID)).Err()
}

// Blacklist stores a revoked marker for the token's remaining validity.
func (c *Redis) Blacklist(ctx context.Context, accessToken string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already past natural expiry; verification rejects it anyway.
		return nil
	}
	return c.client.Set(ctx, blacklistPrefix+hashToken(accessToken), "1", ttl).Err()
}

// IsBlacklisted reports whether the token was revoked before its expiry.
func (c *Redis) IsBlacklisted(ctx context.Context, accessToken string) (bool, error) {
	n, err := c.client.Exists(ctx, blacklistPrefix+hashToken(accessToken)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
