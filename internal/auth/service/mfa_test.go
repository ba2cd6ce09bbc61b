package service_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestMFAEnrollment(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")

	enr, err := h.mfa.BeginEnrollment(ctx, ident.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enr.EnrollmentToken)
	require.Equal(t, "DevHub", enr.Issuer)
	require.Equal(t, "dev1@example.com", enr.Account)
	require.Equal(t, h.clock.Now().Add(service.EnrollmentTTL), enr.ExpiresAt)

	// nothing persisted on the identity yet
	stored := h.reload(ident.ID)
	require.False(t, stored.TwoFactorEnabled)
	requireTwoFactorInvariant(t, stored)

	// the pending secret sits encrypted in the challenge store
	ch, err := h.store.Challenges().GetChallenge(ctx, domain.ChallengeEnrollment, cryptox.FingerprintToken(enr.EnrollmentToken), h.clock.Now())
	require.NoError(t, err)
	require.NotContains(t, ch.Payload, enr.Secret)

	err = h.mfa.ConfirmEnrollment(ctx, ident.ID, enr.EnrollmentToken, codeAt(t, enr.Secret, h.clock.Now().Add(-2*30*time.Second)))
	require.ErrorIs(t, err, service.ErrInvalidCode, "enrollment only tolerates one step")

	other := h.verifiedIdentity("dev2", "dev2@example.com", "secret1")
	err = h.mfa.ConfirmEnrollment(ctx, other.ID, enr.EnrollmentToken, codeAt(t, enr.Secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)

	require.NoError(t, h.mfa.ConfirmEnrollment(ctx, ident.ID, enr.EnrollmentToken, codeAt(t, enr.Secret, h.clock.Now())))
	stored = h.reload(ident.ID)
	require.True(t, stored.TwoFactorEnabled)
	requireTwoFactorInvariant(t, stored)

	err = h.mfa.ConfirmEnrollment(ctx, ident.ID, enr.EnrollmentToken, codeAt(t, enr.Secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)

	_, err = h.mfa.BeginEnrollment(ctx, ident.ID)
	require.ErrorIs(t, err, service.ErrMFAAlreadyEnabled)
}

func TestMFAEnrollmentExpiresAndCaps(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")

	enr, err := h.mfa.BeginEnrollment(ctx, ident.ID)
	require.NoError(t, err)
	h.clock.Advance(service.EnrollmentTTL)
	err = h.mfa.ConfirmEnrollment(ctx, ident.ID, enr.EnrollmentToken, codeAt(t, enr.Secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)

	enr, err = h.mfa.BeginEnrollment(ctx, ident.ID)
	require.NoError(t, err)
	wrong := codeAt(t, enr.Secret, h.clock.Now().Add(-5*30*time.Second))
	for range 5 {
		require.ErrorIs(t, h.mfa.ConfirmEnrollment(ctx, ident.ID, enr.EnrollmentToken, wrong), service.ErrInvalidCode)
	}
	err = h.mfa.ConfirmEnrollment(ctx, ident.ID, enr.EnrollmentToken, codeAt(t, enr.Secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
	requireTwoFactorInvariant(t, h.reload(ident.ID))
}

func TestMFADisable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")

	require.ErrorIs(t, h.mfa.Disable(ctx, ident.ID, "123456"), service.ErrMFANotEnabled)

	secret := h.enableTOTP(ident)
	require.ErrorIs(t, h.mfa.Disable(ctx, ident.ID, codeAt(t, secret, h.clock.Now().Add(-5*30*time.Second))), service.ErrInvalidCode)
	require.True(t, h.reload(ident.ID).TwoFactorEnabled)

	// disable uses the wider login window
	require.NoError(t, h.mfa.Disable(ctx, ident.ID, codeAt(t, secret, h.clock.Now().Add(-2*30*time.Second))))
	stored := h.reload(ident.ID)
	require.False(t, stored.TwoFactorEnabled)
	requireTwoFactorInvariant(t, stored)
}

func TestMFAEnrollmentConcurrentGuessesRespectCap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")

	enr, err := h.mfa.BeginEnrollment(ctx, ident.ID)
	require.NoError(t, err)

	const guesses = 10
	var barrier sync.WaitGroup
	barrier.Add(guesses)
	mfa := *h.mfa
	mfa.Challenges = barrierChallenges{Challenges: h.store.Challenges(), wg: &barrier}

	wrong := codeAt(t, enr.Secret, h.clock.Now().Add(-5*30*time.Second))
	errs := make([]error, guesses)
	var done sync.WaitGroup
	for i := range guesses {
		done.Add(1)
		go func() {
			defer done.Done()
			errs[i] = mfa.ConfirmEnrollment(ctx, ident.ID, enr.EnrollmentToken, wrong)
		}()
	}
	done.Wait()

	var evaluated int
	for _, err := range errs {
		if errors.Is(err, service.ErrInvalidCode) {
			evaluated++
			continue
		}
		require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
	}
	require.Equal(t, 5, evaluated)

	err = h.mfa.ConfirmEnrollment(ctx, ident.ID, enr.EnrollmentToken, codeAt(t, enr.Secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
	require.False(t, h.reload(ident.ID).TwoFactorEnabled)
}

type stuckChallenges struct {
	store.Challenges
}

func (stuckChallenges) DeleteChallenge(context.Context, domain.ChallengeKind, string) error {
	return errors.New("challenge store unavailable")
}

func TestMFAEnrollmentLogsFailedDiscard(t *testing.T) {
	var buf strings.Builder
	ctx := slogx.WithContext(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")

	enr, err := h.mfa.BeginEnrollment(ctx, ident.ID)
	require.NoError(t, err)

	mfa := *h.mfa
	mfa.Challenges = stuckChallenges{Challenges: h.store.Challenges()}

	wrong := codeAt(t, enr.Secret, h.clock.Now().Add(-5*30*time.Second))
	for range 5 {
		require.ErrorIs(t, mfa.ConfirmEnrollment(ctx, ident.ID, enr.EnrollmentToken, wrong), service.ErrInvalidCode)
	}
	require.Contains(t, buf.String(), "enrollment attempts exhausted")
	require.Contains(t, buf.String(), "failed to discard challenge")
	require.Contains(t, buf.String(), "challenge store unavailable")

	// The undeleted challenge is still refused once over the cap.
	err = mfa.ConfirmEnrollment(ctx, ident.ID, enr.EnrollmentToken, codeAt(t, enr.Secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
	require.False(t, h.reload(ident.ID).TwoFactorEnabled)
}
