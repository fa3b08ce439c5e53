// Package crypto provides authenticated symmetric encryption for credential
// material at rest, password-based key derivation, and secret-comparison
// primitives. It holds no state; callers supply keys and buffers.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

// SaltSize is the salt length in bytes used by DeriveKey.
const SaltSize = 16

const (
	nonceSize        = 12
	tagSize          = 16
	pbkdf2Iterations = 100_000
)

// ErrAuthentication is returned by Decrypt when the authentication tag does
// not verify: the ciphertext was tampered with or the key is wrong.
var ErrAuthentication = errors.New("crypto: message authentication failed")

// ErrInvalidKeySize is returned when a key is not KeySize bytes.
var ErrInvalidKeySize = fmt.Errorf("crypto: key must be %d bytes", KeySize)

// Encrypt encrypts plaintext under AES-256-GCM with a fresh random 96-bit
// nonce and returns base64(nonce || ciphertext || tag). Two calls with the
// same inputs produce different output because the nonce is never reused.
func Encrypt(key []byte, plaintext string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It returns ErrAuthentication (wrapped) if the
// tag does not verify; it never returns unauthenticated plaintext.
func Decrypt(key []byte, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	if len(data) < nonceSize+tagSize {
		return "", fmt.Errorf("ciphertext too short: %w", ErrAuthentication)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm open: %w", ErrAuthentication)
	}

	return string(plaintext), nil
}

// DeriveKey derives a 256-bit key from a password and salt using
// PBKDF2-SHA256 with 100,000 iterations.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, KeySize, sha256.New)
}

// RandomSalt returns a fresh SaltSize-byte random salt for DeriveKey.
func RandomSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("rand salt: %w", err)
	}
	return salt, nil
}

// SecureCompare compares two strings in constant time. Length is treated as
// non-secret: a length mismatch returns false immediately.
func SecureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Hash returns the hex-encoded SHA-256 digest of value, for non-reversible
// identifiers only.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	return gcm, nil
}
