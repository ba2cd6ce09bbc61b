package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SecretKeySize is the exact key length required by SecretCipher (AES-256).
const SecretKeySize = 32

var (
	// ErrInvalidKeyLength is returned when a SecretCipher key is not exactly
	// SecretKeySize bytes long.
	ErrInvalidKeyLength = errors.New("secret key must be exactly 32 bytes")

	// ErrDecryptFailed is returned for any ciphertext that cannot be opened:
	// malformed encoding, truncated input, wrong key or tampered data.
	ErrDecryptFailed = errors.New("decryption failed")
)

// SecretCipher encrypts small secrets (TOTP shared secrets) at rest using
// AES-256-GCM. Every call to Encrypt draws a fresh random nonce which is
// stored in front of the ciphertext.
//
// The encoded form is lowercase hex of [12-byte nonce][ciphertext][16-byte tag].
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher builds a cipher from a raw 32-byte key. Keys of any other
// length are rejected rather than padded or hashed.
func NewSecretCipher(key []byte) (*SecretCipher, error) {
	if len(key) != SecretKeySize {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &SecretCipher{aead: gcm}, nil
}

// ParseSecretKey decodes a key given either as 64 hex characters or as
// standard/URL base64 of 32 bytes.
func ParseSecretKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKeyLength
	}

	if len(s) == hex.EncodedLen(SecretKeySize) {
		if key, err := hex.DecodeString(s); err == nil {
			return key, nil
		}
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(s); err == nil {
			if len(key) != SecretKeySize {
				return nil, ErrInvalidKeyLength
			}
			return key, nil
		}
	}

	return nil, ErrInvalidKeyLength
}

// GenerateSecretKey returns a random key suitable for NewSecretCipher.
func GenerateSecretKey() ([]byte, error) {
	key := make([]byte, SecretKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate secret key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext and returns the hex encoded nonce||ciphertext.
func (c *SecretCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Every failure mode collapses to
// ErrDecryptFailed, and an empty plaintext is also treated as a failure so a
// corrupted record can never decrypt to an empty secret.
func (c *SecretCipher) Decrypt(encoded string) (string, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", ErrDecryptFailed
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize+c.aead.Overhead() {
		return "", ErrDecryptFailed
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil || len(plaintext) == 0 {
		return "", ErrDecryptFailed
	}

	return string(plaintext), nil
}
