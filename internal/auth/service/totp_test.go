package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func TestTOTPBeginEnrollment(t *testing.T) {
	h := newHarness(t)

	secret, err := h.totp.BeginEnrollment(domain.Identity{Email: "dev1@example.com"})
	require.NoError(t, err)
	require.Len(t, secret.Secret, 32, "20 random bytes in base32")
	require.True(t, strings.HasPrefix(secret.OTPAuthURL, "otpauth://totp/DevHub:dev1@example.com?"))
	require.Contains(t, secret.OTPAuthURL, "secret="+secret.Secret)
	require.True(t, strings.HasPrefix(secret.QRCode, "data:image/png;base64,"))

	_, err = h.totp.BeginEnrollment(domain.Identity{TwoFactorEnabled: true})
	require.ErrorIs(t, err, service.ErrMFAAlreadyEnabled)
}

func TestTOTPValidateCodeWindows(t *testing.T) {
	h := newHarness(t)
	secret, err := h.totp.BeginEnrollment(domain.Identity{Email: "dev1@example.com"})
	require.NoError(t, err)

	now := h.clock.Now()
	step := 30 * time.Second

	current := codeAt(t, secret.Secret, now)
	require.True(t, h.totp.ValidateCode(secret.Secret, current, service.EnrollmentSkew))
	require.True(t, h.totp.ValidateCode(secret.Secret, current, service.LoginSkew))

	prev := codeAt(t, secret.Secret, now.Add(-step))
	require.True(t, h.totp.ValidateCode(secret.Secret, prev, service.EnrollmentSkew))

	twoBack := codeAt(t, secret.Secret, now.Add(-2*step))
	require.False(t, h.totp.ValidateCode(secret.Secret, twoBack, service.EnrollmentSkew))
	require.True(t, h.totp.ValidateCode(secret.Secret, twoBack, service.LoginSkew))

	for _, far := range []time.Duration{-5 * step, 5 * step} {
		code := codeAt(t, secret.Secret, now.Add(far))
		require.False(t, h.totp.ValidateCode(secret.Secret, code, service.EnrollmentSkew), "offset %s", far)
		require.False(t, h.totp.ValidateCode(secret.Secret, code, service.LoginSkew), "offset %s", far)
	}
}

func TestTOTPValidateCodeNormalization(t *testing.T) {
	h := newHarness(t)
	secret, err := h.totp.BeginEnrollment(domain.Identity{Email: "dev1@example.com"})
	require.NoError(t, err)

	code := codeAt(t, secret.Secret, h.clock.Now())
	require.True(t, h.totp.ValidateCode(secret.Secret, " "+code[:3]+" "+code[3:]+"\n", service.LoginSkew))
	require.True(t, h.totp.ValidateCode(secret.Secret, code[:3]+"-"+code[3:], service.LoginSkew))

	require.False(t, h.totp.ValidateCode(secret.Secret, "", service.LoginSkew))
	require.False(t, h.totp.ValidateCode(secret.Secret, code[:5], service.LoginSkew))
	require.False(t, h.totp.ValidateCode(secret.Secret, code+"0", service.LoginSkew))

	require.Equal(t, "123456", service.NormalizeCode("\t123 - 456 "))
}

func TestTOTPEnableVerifyDisable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")

	secret, err := h.totp.BeginEnrollment(ident)
	require.NoError(t, err)

	stale := codeAt(t, secret.Secret, h.clock.Now().Add(-5*30*time.Second))
	require.ErrorIs(t, h.totp.CompleteEnrollment(ctx, ident, secret.Secret, stale), service.ErrInvalidCode)
	ident = h.reload(ident.ID)
	require.False(t, ident.TwoFactorEnabled)
	requireTwoFactorInvariant(t, ident)

	require.NoError(t, h.totp.CompleteEnrollment(ctx, ident, secret.Secret, codeAt(t, secret.Secret, h.clock.Now())))
	ident = h.reload(ident.ID)
	require.True(t, ident.TwoFactorEnabled)
	requireTwoFactorInvariant(t, ident)
	require.NotContains(t, *ident.TOTPSecret, secret.Secret, "secret is stored encrypted")

	err = h.totp.CompleteEnrollment(ctx, ident, secret.Secret, codeAt(t, secret.Secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrMFAAlreadyEnabled)

	require.NoError(t, h.totp.VerifyLoginCode(ctx, ident, codeAt(t, secret.Secret, h.clock.Now())))

	far := codeAt(t, secret.Secret, h.clock.Now().Add(-5*30*time.Second))
	require.ErrorIs(t, h.totp.Disable(ctx, ident, far), service.ErrInvalidCode)
	requireTwoFactorInvariant(t, h.reload(ident.ID))

	require.NoError(t, h.totp.Disable(ctx, ident, codeAt(t, secret.Secret, h.clock.Now())))
	ident = h.reload(ident.ID)
	require.False(t, ident.TwoFactorEnabled)
	require.Nil(t, ident.TOTPSecret)

	require.ErrorIs(t, h.totp.VerifyLoginCode(ctx, ident, "123456"), service.ErrMFANotEnabled)
	require.ErrorIs(t, h.totp.Disable(ctx, ident, "123456"), service.ErrMFANotEnabled)
}

func TestTOTPCorruptedSecretFailsClosed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	secret, err := h.totp.BeginEnrollment(domain.Identity{Email: "dev1@example.com"})
	require.NoError(t, err)
	code := codeAt(t, secret.Secret, h.clock.Now())

	encrypted, err := h.totp.Cipher.Encrypt(secret.Secret)
	require.NoError(t, err)
	flip := "0"
	if strings.HasSuffix(encrypted, "0") {
		flip = "1"
	}
	corrupted := encrypted[:len(encrypted)-1] + flip

	for name, stored := range map[string]string{
		"tampered": corrupted,
		"garbage":  "not-a-ciphertext",
		"empty":    "",
	} {
		t.Run(name, func(t *testing.T) {
			ident := domain.Identity{ID: "x", TwoFactorEnabled: true, TOTPSecret: &stored}
			require.NotPanics(t, func() {
				err = h.totp.VerifyLoginCode(ctx, ident, code)
			})
			require.ErrorIs(t, err, service.ErrInvalidCode)
		})
	}
}
