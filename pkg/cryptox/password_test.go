package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "devhub-test-pepper")
	os.Remove(pepperPath)
	SetPepperPath(pepperPath)

	code := m.Run()
	os.Remove(pepperPath)
	os.Exit(code)
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))
			require.Len(t, strings.Split(hash, "$"), 6)

			require.NoError(t, VerifyPassword(tt.password, hash))
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	hash1, err := HashPassword("samepassword")
	require.NoError(t, err)
	hash2, err := HashPassword("samepassword")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
	require.NoError(t, VerifyPassword("samepassword", hash1))
	require.NoError(t, VerifyPassword("samepassword", hash2))
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("correct-password")
	require.NoError(t, err)

	for _, wrong := range []string{
		"wrong-password",
		"Correct-Password",
		"correct-password ",
		"",
		"correct-passwor",
		strings.Repeat("x", 10000),
	} {
		require.ErrorIs(t, VerifyPassword(wrong, hash), ErrPasswordMismatch, "password %q", wrong)
	}
}

func TestVerifyPassword_InvalidHashFormat(t *testing.T) {
	for name, invalid := range map[string]string{
		"empty hash":           "",
		"wrong algorithm":      "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"missing parts":        "$argon2id$v=19$m=19456",
		"malformed parameters": "$argon2id$v=19$invalid$c2FsdA$aGFzaA",
		"invalid base64 salt":  "$argon2id$v=19$m=19456,t=2,p=1$!!!invalid!!!$aGFzaA",
		"invalid base64 hash":  "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!invalid!!!",
		"wrong version":        "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
	} {
		t.Run(name, func(t *testing.T) {
			err := VerifyPassword("test-password", invalid)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrPasswordMismatch)
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]bool, 50)
	for range 50 {
		password, err := GeneratePassword(24)
		require.NoError(t, err)
		require.Len(t, password, 24)
		for _, c := range password {
			require.Contains(t, passwordCharset, string(c))
		}
		require.NotContains(t, seen, password, "duplicate password generated")
		seen[password] = true
	}

	_, err := GeneratePassword(0)
	require.Error(t, err)
}

func TestUnusablePasswordHash(t *testing.T) {
	a, err := UnusablePasswordHash()
	require.NoError(t, err)
	b, err := UnusablePasswordHash()
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.ErrorIs(t, VerifyPassword("", a), ErrPasswordMismatch)
}

func TestLoadPepper_PersistsAcrossReloads(t *testing.T) {
	original := pepperFile
	t.Cleanup(func() { SetPepperPath(original) })

	path := filepath.Join(t.TempDir(), "nested", "pepper")
	SetPepperPath(path)
	require.NoError(t, LoadPepper())
	first := GetPepper()

	SetPepperPath(path)
	require.NoError(t, LoadPepper())
	require.Equal(t, first, GetPepper(), "pepper must be read back from disk")

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	SetPepperPath(empty)
	require.Error(t, LoadPepper())
}
