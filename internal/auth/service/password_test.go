package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	for _, ok := range []string{"dev", "dev1", "Dev_One", "a.b-c", strings.Repeat("x", 30)} {
		require.NoError(t, service.ValidateUsername(ok), ok)
	}
	for _, bad := range []string{"", "ab", strings.Repeat("x", 31), "dev one", "dév", "dev!"} {
		require.ErrorIs(t, service.ValidateUsername(bad), service.ErrInvalidUsername, bad)
	}
}

func TestValidatePasswordCountsRunes(t *testing.T) {
	require.NoError(t, service.ValidatePassword("secret1"))
	require.NoError(t, service.ValidatePassword("пароль"))
	require.ErrorIs(t, service.ValidatePassword("пар"), service.ErrWeakPassword)
	require.NoError(t, service.ValidatePassword(strings.Repeat("🔒", 128)))
	require.ErrorIs(t, service.ValidatePassword(strings.Repeat("🔒", 129)), service.ErrWeakPassword)
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident, _ := h.signup("dev1", "dev1@example.com", "secret1")

	auth := &service.PasswordAuthenticator{Store: h.store}

	got, err := auth.Verify(ctx, " DEV1@Example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, ident.ID, got.ID)

	_, err = auth.Verify(ctx, "dev1@example.com", "secret2")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = auth.Verify(ctx, "dev1@example.com", "")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = auth.Verify(ctx, "nobody@example.com", "secret1")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}
