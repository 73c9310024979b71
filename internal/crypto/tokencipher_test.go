package crypto

import (
	"errors"
	"testing"

	"github.com/and161185/authgate/internal/errs"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := RandBytes(KeyLen)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	return key
}

func TestNewTokenCipher_KeyLength(t *testing.T) {
	t.Parallel()
	if _, err := NewTokenCipher(make([]byte, KeyLen-1)); err == nil {
		t.Fatalf("short key accepted")
	}
	if _, err := NewTokenCipher(nil); err == nil {
		t.Fatalf("nil key accepted")
	}
	if _, err := NewTokenCipher(make([]byte, KeyLen)); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
}

func TestTokenCipher_Roundtrip(t *testing.T) {
	t.Parallel()
	c, err := NewTokenCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewTokenCipher: %v", err)
	}

	for _, plaintext := range []string{"", "r", "1//0gFakeProviderRefreshToken-abcdef"} {
		ct, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		got, err := c.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", plaintext, err)
		}
		if got != plaintext {
			t.Fatalf("roundtrip mismatch: got %q want %q", got, plaintext)
		}
	}
}

func TestTokenCipher_NonceUnique(t *testing.T) {
	t.Parallel()
	c, _ := NewTokenCipher(testKey(t))
	a, _ := c.Encrypt("same plaintext")
	b, _ := c.Encrypt("same plaintext")
	if string(a) == string(b) {
		t.Fatalf("two encryptions produced identical ciphertext")
	}
}

func TestTokenCipher_TamperFails(t *testing.T) {
	t.Parallel()
	c, _ := NewTokenCipher(testKey(t))
	ct, err := c.Encrypt("provider-refresh-token")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// Flip one ciphertext bit: authentication must fail, never return
	// corrupted plaintext.
	ct[len(ct)-1] ^= 0x01
	if _, err := c.Decrypt(ct); !errors.Is(err, errs.ErrCrypto) {
		t.Fatalf("want ErrCrypto on tampered ciphertext, got %v", err)
	}

	if _, err := c.Decrypt([]byte("short")); !errors.Is(err, errs.ErrCrypto) {
		t.Fatalf("want ErrCrypto on truncated ciphertext, got %v", err)
	}
}

func TestTokenCipher_WrongKeyFails(t *testing.T) {
	t.Parallel()
	c1, _ := NewTokenCipher(testKey(t))
	c2, _ := NewTokenCipher(testKey(t))
	ct, _ := c1.Encrypt("secret")
	if _, err := c2.Decrypt(ct); !errors.Is(err, errs.ErrCrypto) {
		t.Fatalf("want ErrCrypto under wrong key, got %v", err)
	}
}
