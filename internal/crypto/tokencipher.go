package crypto

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/and161185/authgate/internal/errs"
)

// KeyLen is the required symmetric key length for TokenCipher.
const KeyLen = chacha20poly1305.KeySize

// TokenCipher encrypts provider refresh tokens at rest with
// XChaCha20-Poly1305. Ciphertexts carry a random per-call nonce prepended.
type TokenCipher struct {
	key []byte
}

// NewTokenCipher validates the key length and constructs a cipher.
// The key is a process-lifetime secret loaded at startup.
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("token cipher key must be %d bytes, got %d", KeyLen, len(key))
	}
	return &TokenCipher{key: append([]byte(nil), key...)}, nil
}

// Encrypt seals plaintext with a fresh random nonce. The write path is
// encrypt-only: no decryption self-check is performed on the output.
func (c *TokenCipher) Encrypt(plaintext string) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	nonce, err := RandBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, []byte(plaintext), nil)...)
	return out, nil
}

// Decrypt opens a nonce-prepended ciphertext. Authentication failure is
// surfaced as errs.ErrCrypto and must never be silently ignored.
func (c *TokenCipher) Decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) < chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("%w: ciphertext too short", errs.ErrCrypto)
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	nonce := ciphertext[:chacha20poly1305.NonceSizeX]
	ct := ciphertext[chacha20poly1305.NonceSizeX:]
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrCrypto, err)
	}
	return string(plain), nil
}
