package cryptox_test

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *cryptox.SecretCipher {
	t.Helper()
	key, err := cryptox.GenerateSecretKey()
	require.NoError(t, err)
	c, err := cryptox.NewSecretCipher(key)
	require.NoError(t, err)
	return c
}

func TestSecretCipherRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	encrypted, err := c.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.NotContains(t, encrypted, "JBSWY3DPEHPK3PXP")

	decrypted, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", decrypted)
}

func TestSecretCipherFreshNoncePerEncryption(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.Encrypt("same-secret")
	require.NoError(t, err)
	b, err := c.Encrypt("same-secret")
	require.NoError(t, err)

	require.NotEqual(t, a, b, "each encryption must use its own nonce")
	require.NotEqual(t, a[:24], b[:24], "nonce prefix should differ")
}

func TestSecretCipherRejectsBadKeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		_, err := cryptox.NewSecretCipher(make([]byte, n))
		require.ErrorIs(t, err, cryptox.ErrInvalidKeyLength, "length %d", n)
	}
}

func TestSecretCipherDecryptFailures(t *testing.T) {
	c := newTestCipher(t)

	valid, err := c.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	raw, err := hex.DecodeString(valid)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	tampered := hex.EncodeToString(raw)

	other := newTestCipher(t)
	wrongKey, err := other.Encrypt("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)

	cases := map[string]string{
		"empty":     "",
		"not hex":   "zz-not-hex",
		"too short": "abcdef",
		"tampered":  tampered,
		"wrong key": wrongKey,
		"truncated": valid[:len(valid)-2],
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			var plaintext string
			require.NotPanics(t, func() {
				plaintext, err = c.Decrypt(input)
			})
			require.ErrorIs(t, err, cryptox.ErrDecryptFailed)
			require.Empty(t, plaintext)
		})
	}
}

func TestSecretCipherEmptyPlaintextNeverDecrypts(t *testing.T) {
	c := newTestCipher(t)

	encrypted, err := c.Encrypt("")
	require.NoError(t, err)

	_, err = c.Decrypt(encrypted)
	require.ErrorIs(t, err, cryptox.ErrDecryptFailed)
}

func TestParseSecretKey(t *testing.T) {
	key, err := cryptox.GenerateSecretKey()
	require.NoError(t, err)

	parsed, err := cryptox.ParseSecretKey(hex.EncodeToString(key))
	require.NoError(t, err)
	require.Equal(t, key, parsed)

	parsed, err = cryptox.ParseSecretKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	require.Equal(t, key, parsed)

	parsed, err = cryptox.ParseSecretKey("  " + base64.RawURLEncoding.EncodeToString(key) + "\n")
	require.NoError(t, err)
	require.Equal(t, key, parsed)

	_, err = cryptox.ParseSecretKey("")
	require.ErrorIs(t, err, cryptox.ErrInvalidKeyLength)

	_, err = cryptox.ParseSecretKey(hex.EncodeToString(key[:16]))
	require.ErrorIs(t, err, cryptox.ErrInvalidKeyLength)

	_, err = cryptox.ParseSecretKey(strings.Repeat("short", 2))
	require.ErrorIs(t, err, cryptox.ErrInvalidKeyLength)
}
