package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/devhub/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewSessionClaims(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c := jwtx.NewSessionClaims(jwtx.SessionParams{
		Subject:  "01JTESTIDENTITY",
		SID:      "sess-1",
		AMR:      []string{jwtx.AMRPassword, jwtx.AMROTP, jwtx.AMRMFA},
		Username: "dev1",
		Email:    "a@x.com",
		Issuer:   "devhub-identity",
		TTL:      time.Hour,
		Now:      now,
	})

	require.Equal(t, "01JTESTIDENTITY", c.Subject)
	require.Equal(t, now.Add(time.Hour), c.ExpiresAt.Time)
	require.Equal(t, now, c.IssuedAt.Time)
	require.NotEmpty(t, c.ID)
	require.True(t, c.HasAMR(jwtx.AMRMFA))
	require.False(t, c.HasAMR(jwtx.AMRFederated))
	require.False(t, c.Admin)

	def := jwtx.NewSessionClaims(jwtx.SessionParams{Subject: "x", Now: now})
	require.Equal(t, now.Add(jwtx.DefaultSessionTTL), def.ExpiresAt.Time)
}

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "identity"}}

	require.NoError(t, c.ValidateIssuer("identity"))
	require.NoError(t, c.ValidateIssuer(""))
	require.ErrorIs(t, c.ValidateIssuer("chat-service"), jwtx.ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: []string{"feed", "media"}}}

	t.Run("contains match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"feed"}))
	})

	t.Run("multiple match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"foo", "media"}))
	})

	t.Run("no match", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateAudience([]string{"admin"}), jwtx.ErrAudience)
	})

	t.Run("empty expected list", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience(nil))
	})
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now().UTC()
	leeway := 30 * time.Second

	t.Run("valid token", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
		require.NoError(t, c.ValidateExpiry(now, 0))
	})

	t.Run("expired within leeway", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second)),
		}}
		require.NoError(t, c.ValidateExpiry(now, leeway))
		require.ErrorIs(t, c.ValidateExpiry(now, 0), jwtx.ErrExpired)
	})

	t.Run("expired beyond leeway", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-2 * time.Minute)),
		}}
		require.ErrorIs(t, c.ValidateExpiry(now, leeway), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			NotBefore: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
		require.ErrorIs(t, c.ValidateExpiry(now, leeway), jwtx.ErrNotYetValid)
	})

	t.Run("no exp or nbf", func(t *testing.T) {
		require.NoError(t, (&jwtx.Claims{}).ValidateExpiry(now, 0))
	})
}
