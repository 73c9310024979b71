// Package token signs and verifies short-lived HS256 access tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
)

// Claims are the identity claims embedded in an access token.
type Claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.FromString(c.Subject)
}

// Signer issues and verifies HS256 access tokens with a fixed TTL.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner constructs a Signer. The secret is the process-lifetime signing key.
func NewSigner(secret []byte, ttl time.Duration) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty token signing secret")
	}
	if ttl <= 0 {
		return nil, errors.New("non-positive access token ttl")
	}
	return &Signer{secret: append([]byte(nil), secret...), ttl: ttl}, nil
}

// TTL returns the configured access token lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign creates a signed access token for the user.
func (s *Signer) Sign(u *model.User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	return signed, exp, err
}

// Verify parses and validates a token string. Any structural, signature or
// expiry failure maps to errs.ErrInvalidToken.
func (s *Signer) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}
