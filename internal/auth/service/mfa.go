package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
)

const (
	// EnrollmentTTL bounds how long a generated secret waits for its first
	// valid code.
	EnrollmentTTL = 10 * time.Minute

	maxEnrollmentAttempts = 5
)

// MFAService is the authenticated surface over TOTPManager: it keeps the
// pending secret in the challenge store, encrypted, between enroll and
// confirm.
type MFAService struct {
	Store      store.Store
	Challenges store.Challenges
	TOTP       *TOTPManager
	Now        func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// BeginEnrollment generates a TOTP secret for the identity. Two-factor is
// not enabled until ConfirmEnrollment succeeds.
func (s *MFAService) BeginEnrollment(ctx context.Context, identityID string) (enr domain.MFAEnrollment, err error) {
	ctx, span := startSpan(ctx, "MFAService.BeginEnrollment")
	defer func() { endSpan(span, err) }()

	ident, err := s.identity(ctx, identityID)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}

	secret, err := s.TOTP.BeginEnrollment(ident)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}

	encrypted, err := s.TOTP.Cipher.Encrypt(secret.Secret)
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("failed to encrypt pending secret: %w", err)
	}

	handle, err := cryptox.GenerateToken(challengeHandleBytes)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}

	now := s.now()
	ch := domain.Challenge{
		ID:         cryptox.FingerprintToken(handle),
		Kind:       domain.ChallengeEnrollment,
		IdentityID: ident.ID,
		Payload:    encrypted,
		CreatedAt:  now,
		ExpiresAt:  now.Add(EnrollmentTTL),
	}
	if err := s.Challenges.CreateChallenge(ctx, ch); err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("failed to store enrollment: %w", err)
	}

	return domain.MFAEnrollment{
		EnrollmentToken: handle,
		Secret:          secret.Secret,
		OTPAuthURL:      secret.OTPAuthURL,
		QRCode:          secret.QRCode,
		Issuer:          s.TOTP.Issuer,
		Account:         ident.Email,
		ExpiresAt:       ch.ExpiresAt,
	}, nil
}

// ConfirmEnrollment checks a code against the pending secret and enables
// two-factor. The enrollment token must belong to identityID.
func (s *MFAService) ConfirmEnrollment(ctx context.Context, identityID, enrollmentToken, code string) error {
	l := slogx.FromContext(ctx)

	enrollmentToken = strings.TrimSpace(enrollmentToken)
	if enrollmentToken == "" {
		return ErrInvalidOrExpiredToken
	}
	id := cryptox.FingerprintToken(enrollmentToken)
	now := s.now()

	ch, err := s.Challenges.GetChallenge(ctx, domain.ChallengeEnrollment, id, now)
	if err != nil {
		return mapChallengeErr(err)
	}
	if ch.IdentityID != identityID {
		return ErrInvalidOrExpiredToken
	}

	ident, err := s.identity(ctx, identityID)
	if err != nil {
		return err
	}

	ch, err = s.Challenges.IncrementChallengeAttempts(ctx, ch.Kind, ch.ID, now)
	if err != nil {
		return mapChallengeErr(err)
	}
	if ch.Attempts > maxEnrollmentAttempts {
		s.discard(ctx, ch)
		return ErrInvalidOrExpiredToken
	}

	pending, err := s.TOTP.Cipher.Decrypt(ch.Payload)
	if err != nil {
		l.Error("pending TOTP secret could not be decrypted", slog.String("identity_id", identityID), slog.Any("error", err))
		s.discard(ctx, ch)
		return ErrInvalidOrExpiredToken
	}

	if !s.TOTP.ValidateCode(pending, code, EnrollmentSkew) {
		if ch.Attempts >= maxEnrollmentAttempts {
			l.Warn("enrollment attempts exhausted", slog.String("identity_id", identityID))
			s.discard(ctx, ch)
		}
		return ErrInvalidCode
	}

	if _, err := s.Challenges.TakeChallenge(ctx, ch.Kind, ch.ID, now); err != nil {
		return mapChallengeErr(err)
	}

	return s.TOTP.CompleteEnrollment(ctx, ident, pending, code)
}

// Disable turns two-factor off after checking a current code.
func (s *MFAService) Disable(ctx context.Context, identityID, code string) error {
	ident, err := s.identity(ctx, identityID)
	if err != nil {
		return err
	}
	return s.TOTP.Disable(ctx, ident, code)
}

func (s *MFAService) discard(ctx context.Context, ch domain.Challenge) {
	if err := s.Challenges.DeleteChallenge(ctx, ch.Kind, ch.ID); err != nil {
		slogx.FromContext(ctx).Error("failed to discard challenge",
			slog.String("kind", string(ch.Kind)),
			slog.Any("error", err),
		)
	}
}

func (s *MFAService) identity(ctx context.Context, id string) (domain.Identity, error) {
	ident, err := s.Store.Identities().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, fmt.Errorf("failed to load identity: %w", err)
	}
	return ident, nil
}
