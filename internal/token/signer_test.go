package token

import (
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:    uuid.Must(uuid.NewV4()),
		Email: "a@x.com",
		Role:  model.RoleGuest,
	}
}

func TestNewSigner_Validation(t *testing.T) {
	t.Parallel()
	if _, err := NewSigner(nil, time.Minute); err == nil {
		t.Fatalf("empty secret accepted")
	}
	if _, err := NewSigner([]byte("k"), 0); err == nil {
		t.Fatalf("zero ttl accepted")
	}
}

func TestSigner_SignVerifyRoundtrip(t *testing.T) {
	t.Parallel()
	s, err := NewSigner([]byte("signing-secret"), time.Minute)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	u := testUser()

	tok, exp, err := s.Sign(u)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if tok == "" {
		t.Fatalf("empty token")
	}
	if until := time.Until(exp); until <= 0 || until > time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != u.ID.String() {
		t.Fatalf("subject mismatch: %s", claims.Subject)
	}
	if claims.Email != u.Email || claims.Role != u.Role {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	id, err := claims.UserID()
	if err != nil || id != u.ID {
		t.Fatalf("UserID: %v %v", id, err)
	}
}

func TestSigner_VerifyRejects(t *testing.T) {
	t.Parallel()
	s, _ := NewSigner([]byte("secret-a"), time.Minute)
	other, _ := NewSigner([]byte("secret-b"), time.Minute)
	u := testUser()

	tok, _, err := s.Sign(u)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	cases := map[string]string{
		"garbage":   "not.a.token",
		"empty":     "",
		"wrong key": tok,
	}
	if _, err := other.Verify(cases["wrong key"]); !errors.Is(err, errs.ErrInvalidToken) {
		t.Fatalf("wrong key: want ErrInvalidToken, got %v", err)
	}
	for name, v := range cases {
		if name == "wrong key" {
			continue
		}
		if _, err := s.Verify(v); !errors.Is(err, errs.ErrInvalidToken) {
			t.Fatalf("%s: want ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestSigner_VerifyRejectsExpired(t *testing.T) {
	t.Parallel()
	secret := []byte("signing-secret")
	s, _ := NewSigner(secret, time.Minute)
	u := testUser()

	claims := Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}
	if _, err := s.Verify(expired); !errors.Is(err, errs.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken on expired token, got %v", err)
	}
}

func TestSigner_VerifyRejectsNoneAlg(t *testing.T) {
	t.Parallel()
	s, _ := NewSigner([]byte("signing-secret"), time.Minute)
	u := testUser()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := s.Verify(unsigned); !errors.Is(err, errs.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for alg=none, got %v", err)
	}
}
