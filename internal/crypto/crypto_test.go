package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey(t)

	plaintexts := []string{
		"",
		"a",
		`{"accessKeyId":"AKIA123","secretAccessKey":"s3cret"}`,
		strings.Repeat("long payload ", 1000),
		"unicode: héllo wörld 日本語",
	}

	for _, pt := range plaintexts {
		encoded, err := Encrypt(key, pt)
		require.NoError(t, err)

		got, err := Decrypt(key, encoded)
		require.NoError(t, err)
		assert.Equal(t, pt, got)
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	key := testKey(t)

	first, err := Encrypt(key, "same plaintext")
	require.NoError(t, err)
	second, err := Encrypt(key, "same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "fresh nonce must make ciphertext differ")
}

func TestEncrypt_NonceUniqueness(t *testing.T) {
	key := testKey(t)

	seen := make(map[string]struct{}, 10000)
	for range 10000 {
		encoded, err := Encrypt(key, "x")
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)

		nonce := string(raw[:12])
		_, dup := seen[nonce]
		require.False(t, dup, "nonce reused")
		seen[nonce] = struct{}{}
	}
}

func TestDecrypt_TamperDetection(t *testing.T) {
	key := testKey(t)

	encoded, err := Encrypt(key, "sensitive credential material")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	// Flip one byte at every position past the nonce (ciphertext and tag).
	for i := 12; i < len(raw); i++ {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[i] ^= 0x01

		_, err := Decrypt(key, base64.StdEncoding.EncodeToString(tampered))
		require.Error(t, err, "byte %d flip must fail authentication", i)
		assert.ErrorIs(t, err, ErrAuthentication)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	encoded, err := Encrypt(testKey(t), "secret")
	require.NoError(t, err)

	_, err = Decrypt(testKey(t), encoded)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDecrypt_TooShort(t *testing.T) {
	key := testKey(t)

	_, err := Decrypt(key, base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDecrypt_InvalidBase64(t *testing.T) {
	_, err := Decrypt(testKey(t), "not base64 !!!")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthentication)
}

func TestEncrypt_InvalidKeySize(t *testing.T) {
	_, err := Encrypt([]byte("too short"), "data")
	assert.ErrorIs(t, err, ErrInvalidKeySize)

	_, err = Decrypt([]byte("too short"), "aGVsbG8=")
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDeriveKey_DeterministicAndSaltSensitive(t *testing.T) {
	salt, err := RandomSalt()
	require.NoError(t, err)
	require.Len(t, salt, SaltSize)

	key1 := DeriveKey("correct horse battery staple", salt)
	key2 := DeriveKey("correct horse battery staple", salt)
	assert.Equal(t, key1, key2)
	assert.Len(t, key1, KeySize)

	otherSalt, err := RandomSalt()
	require.NoError(t, err)
	key3 := DeriveKey("correct horse battery staple", otherSalt)
	assert.NotEqual(t, key1, key3)
}

func TestDeriveKey_UsableForEncryption(t *testing.T) {
	salt, err := RandomSalt()
	require.NoError(t, err)

	key := DeriveKey("pass", salt)
	encoded, err := Encrypt(key, "payload")
	require.NoError(t, err)

	got, err := Decrypt(key, encoded)
	require.NoError(t, err)
	assert.Equal(t, "payload", got)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("token-abc", "token-abc"))
	assert.False(t, SecureCompare("token-abc", "token-abd"))
	assert.False(t, SecureCompare("short", "longer string"))
	assert.True(t, SecureCompare("", ""))
}

func TestHash(t *testing.T) {
	// Known SHA-256 vector.
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		Hash("hello"),
	)
	assert.Equal(t, Hash("same"), Hash("same"))
	assert.NotEqual(t, Hash("a"), Hash("b"))
	assert.Len(t, Hash("anything"), 64)
}
