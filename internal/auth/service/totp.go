package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod    = 30
	totpDigits    = otp.DigitsSix
	totpAlgorithm = otp.AlgorithmSHA1
	qrCodeSize    = 200

	// EnrollmentSkew is the tolerance, in 30s steps, when confirming a
	// freshly scanned secret.
	EnrollmentSkew = 1

	// LoginSkew is the wider tolerance for recurring logins and disable.
	LoginSkew = 2
)

// EnrollmentSecret is the plaintext material shown once during setup.
type EnrollmentSecret struct {
	Secret     string // base32
	OTPAuthURL string
	QRCode     string // data:image/png;base64,...
}

// TOTPManager generates, verifies and persists TOTP secrets. Persisted
// secrets are always SecretCipher output.
type TOTPManager struct {
	Store  store.Store
	Cipher *cryptox.SecretCipher
	Issuer string
	Now    func() time.Time
}

func (m *TOTPManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// BeginEnrollment generates a new secret labelled with the identity's
// email. Nothing is persisted.
func (m *TOTPManager) BeginEnrollment(ident domain.Identity) (EnrollmentSecret, error) {
	if ident.TwoFactorEnabled {
		return EnrollmentSecret{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.Issuer,
		AccountName: ident.Email,
		Period:      totpPeriod,
		Digits:      totpDigits,
		Algorithm:   totpAlgorithm,
	})
	if err != nil {
		return EnrollmentSecret{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	qr, err := renderQRCode(key)
	if err != nil {
		return EnrollmentSecret{}, err
	}

	return EnrollmentSecret{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRCode:     qr,
	}, nil
}

// CompleteEnrollment checks code against the pending secret with the narrow
// window, then stores the encrypted secret and enables two-factor.
func (m *TOTPManager) CompleteEnrollment(ctx context.Context, ident domain.Identity, pendingSecret, code string) (err error) {
	ctx, span := startSpan(ctx, "TOTPManager.CompleteEnrollment")
	defer func() { endSpan(span, err) }()

	if ident.TwoFactorEnabled {
		return ErrMFAAlreadyEnabled
	}
	if pendingSecret == "" || !m.ValidateCode(pendingSecret, code, EnrollmentSkew) {
		return ErrInvalidCode
	}

	encrypted, err := m.Cipher.Encrypt(pendingSecret)
	if err != nil {
		return fmt.Errorf("failed to encrypt TOTP secret: %w", err)
	}

	if err := m.Store.Identities().EnableTwoFactor(ctx, ident.ID, encrypted); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrMFAAlreadyEnabled
		}
		return fmt.Errorf("failed to enable two-factor: %w", err)
	}

	slogx.FromContext(ctx).Info("two-factor enabled", slog.String("identity_id", ident.ID))
	return nil
}

// VerifyLoginCode checks code against the identity's stored secret with the
// wide window. A secret that cannot be decrypted fails closed as
// ErrInvalidCode.
func (m *TOTPManager) VerifyLoginCode(ctx context.Context, ident domain.Identity, code string) error {
	if !ident.TwoFactorEnabled || ident.TOTPSecret == nil {
		return ErrMFANotEnabled
	}

	secret, err := m.Cipher.Decrypt(*ident.TOTPSecret)
	if err != nil {
		slogx.FromContext(ctx).Error("stored TOTP secret could not be decrypted",
			slog.String("identity_id", ident.ID),
			slog.Any("error", err),
		)
		return ErrInvalidCode
	}

	if !m.ValidateCode(secret, code, LoginSkew) {
		return ErrInvalidCode
	}
	return nil
}

// Disable verifies code like a login and then clears the secret and flag.
func (m *TOTPManager) Disable(ctx context.Context, ident domain.Identity, code string) (err error) {
	ctx, span := startSpan(ctx, "TOTPManager.Disable")
	defer func() { endSpan(span, err) }()

	if err := m.VerifyLoginCode(ctx, ident, code); err != nil {
		return err
	}

	if err := m.Store.Identities().DisableTwoFactor(ctx, ident.ID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrMFANotEnabled
		}
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}

	slogx.FromContext(ctx).Info("two-factor disabled", slog.String("identity_id", ident.ID))
	return nil
}

// ValidateCode reports whether code matches secret at the current step or
// within skew steps on either side.
func (m *TOTPManager) ValidateCode(secret, code string, skew uint) bool {
	code = NormalizeCode(code)
	if len(code) != totpDigits.Length() {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, m.now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      skew,
		Digits:    totpDigits,
		Algorithm: totpAlgorithm,
	})
	return err == nil && ok
}

// NormalizeCode strips whitespace and dashes users paste along with a code.
func NormalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, code)
}

func renderQRCode(key *otp.Key) (string, error) {
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
