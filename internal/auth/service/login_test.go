package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/aussiebroadwan/devhub/pkg/jwtx"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) EstablishSession(ctx context.Context, ident domain.Identity, amr []string) (domain.Session, error) {
	args := m.Called(ctx, ident, amr)
	return args.Get(0).(domain.Session), args.Error(1)
}

func TestLoginScenarioVerifyThenAuthenticate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	ident, token := h.signup("dev1", "A@X.com", "secret1")
	require.Equal(t, "a@x.com", ident.Email)
	require.False(t, ident.IsEmailVerified)

	_, err := h.login.SubmitPassword(ctx, "A@X.com", "secret1")
	require.ErrorIs(t, err, service.ErrEmailNotVerified)

	verified, err := h.accounts.VerifyEmail(ctx, token)
	require.NoError(t, err)
	require.True(t, verified.IsEmailVerified)

	res, err := h.login.SubmitPassword(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.False(t, res.MFARequired())
	require.NotNil(t, res.Session)
	require.Equal(t, "Bearer", res.Session.TokenType)
	require.Equal(t, []string{jwtx.AMRPassword}, res.Session.AMR)

	claims, err := h.keys.Verifier.Verify(res.Session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, ident.ID, claims.Subject)
	require.Equal(t, "dev1", claims.Username)
	require.True(t, claims.HasAMR(jwtx.AMRPassword))
}

func TestLoginRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")

	_, err := h.login.SubmitPassword(ctx, "dev1@example.com", "wrong-password")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = h.login.SubmitPassword(ctx, "nobody@example.com", "secret1")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	ident.IsSuspended = true
	require.NoError(t, h.store.Identities().Update(ctx, ident))

	_, err = h.login.SubmitPassword(ctx, "dev1@example.com", "secret1")
	require.ErrorIs(t, err, service.ErrAccountSuspended)
}

func TestLoginSecondFactorWindow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")
	secret := h.enableTOTP(ident)

	res, err := h.login.SubmitPassword(ctx, "dev1@example.com", "secret1")
	require.NoError(t, err)
	require.True(t, res.MFARequired())
	require.Nil(t, res.Session, "no session before the second factor")
	require.True(t, res.Challenge.MFARequired)
	require.Equal(t, []string{"totp"}, res.Challenge.Methods)
	require.NotEmpty(t, res.Challenge.MFAToken)

	// 90 seconds ago is outside the login window; the challenge survives.
	_, err = h.login.SubmitSecondFactor(ctx, res.Challenge.MFAToken, codeAt(t, secret, h.clock.Now().Add(-90*time.Second)))
	require.ErrorIs(t, err, service.ErrInvalidCode)

	// 45 seconds ago is inside it.
	done, err := h.login.SubmitSecondFactor(ctx, res.Challenge.MFAToken, codeAt(t, secret, h.clock.Now().Add(-45*time.Second)))
	require.NoError(t, err)
	require.NotNil(t, done.Session)
	require.Equal(t, []string{jwtx.AMRPassword, jwtx.AMROTP, jwtx.AMRMFA}, done.Session.AMR)

	// The handle is single-use.
	_, err = h.login.SubmitSecondFactor(ctx, res.Challenge.MFAToken, codeAt(t, secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
}

func TestLoginSecondFactorAttemptCap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")
	secret := h.enableTOTP(ident)

	res, err := h.login.SubmitPassword(ctx, "dev1@example.com", "secret1")
	require.NoError(t, err)

	wrong := codeAt(t, secret, h.clock.Now().Add(-5*30*time.Second))
	for i := 0; i < service.MaxSecondFactorAttempts; i++ {
		_, err = h.login.SubmitSecondFactor(ctx, res.Challenge.MFAToken, wrong)
		require.ErrorIs(t, err, service.ErrInvalidCode, "attempt %d", i+1)
	}

	_, err = h.login.SubmitSecondFactor(ctx, res.Challenge.MFAToken, codeAt(t, secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
}

func TestLoginSecondFactorExpires(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")
	secret := h.enableTOTP(ident)

	res, err := h.login.SubmitPassword(ctx, "dev1@example.com", "secret1")
	require.NoError(t, err)

	h.clock.Advance(service.SecondFactorTTL)

	_, err = h.login.SubmitSecondFactor(ctx, res.Challenge.MFAToken, codeAt(t, secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)

	_, err = h.login.SubmitSecondFactor(ctx, "unknown-handle", "123456")
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
}

func TestLoginSessionOnlyAtAuthenticated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")
	secret := h.enableTOTP(ident)

	sessions := &mockSessions{}
	h.login.Sessions = sessions

	res, err := h.login.SubmitPassword(ctx, "dev1@example.com", "secret1")
	require.NoError(t, err)
	require.True(t, res.MFARequired())
	sessions.AssertNotCalled(t, "EstablishSession", mock.Anything, mock.Anything, mock.Anything)

	sessions.On("EstablishSession", mock.Anything, mock.MatchedBy(func(i domain.Identity) bool { return i.ID == ident.ID }),
		[]string{jwtx.AMRPassword, jwtx.AMROTP, jwtx.AMRMFA}).
		Return(domain.Session{AccessToken: "tok"}, nil).Once()

	done, err := h.login.SubmitSecondFactor(ctx, res.Challenge.MFAToken, codeAt(t, secret, h.clock.Now()))
	require.NoError(t, err)
	require.Equal(t, "tok", done.Session.AccessToken)
	sessions.AssertExpectations(t)
}

func TestLoginSecondFactorAfterDisable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")
	secret := h.enableTOTP(ident)

	res, err := h.login.SubmitPassword(ctx, "dev1@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, h.mfa.Disable(ctx, ident.ID, codeAt(t, secret, h.clock.Now())))

	_, err = h.login.SubmitSecondFactor(ctx, res.Challenge.MFAToken, codeAt(t, secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)

	res, err = h.login.SubmitPassword(ctx, "dev1@example.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
}

func TestSessionIssuerRefusals(t *testing.T) {
	ctx := context.Background()
	issuer, _ := newSessionIssuer(t)

	_, err := issuer.EstablishSession(ctx, domain.Identity{ID: "a"}, []string{"pwd"})
	require.ErrorIs(t, err, service.ErrEmailNotVerified)

	_, err = issuer.EstablishSession(ctx, domain.Identity{ID: "a", IsEmailVerified: true, IsSuspended: true}, []string{"pwd"})
	require.ErrorIs(t, err, service.ErrAccountSuspended)

	sess, err := issuer.EstablishSession(ctx, domain.Identity{ID: "a", IsEmailVerified: true}, []string{"pwd"})
	require.NoError(t, err)
	require.Equal(t, time.Hour, sess.ExpiresIn)
}

// barrierChallenges holds every attempt increment until all submissions in
// flight have made one.
type barrierChallenges struct {
	store.Challenges
	wg *sync.WaitGroup
}

func (b barrierChallenges) IncrementChallengeAttempts(ctx context.Context, kind domain.ChallengeKind, id string, now time.Time) (domain.Challenge, error) {
	ch, err := b.Challenges.IncrementChallengeAttempts(ctx, kind, id, now)
	b.wg.Done()
	b.wg.Wait()
	return ch, err
}

func TestLoginSecondFactorConcurrentGuessesRespectCap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ident := h.verifiedIdentity("dev1", "dev1@example.com", "secret1")
	secret := h.enableTOTP(ident)

	res, err := h.login.SubmitPassword(ctx, "dev1@example.com", "secret1")
	require.NoError(t, err)

	const guesses = 12
	var barrier sync.WaitGroup
	barrier.Add(guesses)
	login := *h.login
	login.Challenges = barrierChallenges{Challenges: h.store.Challenges(), wg: &barrier}

	wrong := codeAt(t, secret, h.clock.Now().Add(-5*30*time.Second))
	errs := make([]error, guesses)
	var done sync.WaitGroup
	for i := range guesses {
		done.Add(1)
		go func() {
			defer done.Done()
			_, errs[i] = login.SubmitSecondFactor(ctx, res.Challenge.MFAToken, wrong)
		}()
	}
	done.Wait()

	var evaluated int
	for _, err := range errs {
		switch {
		case errors.Is(err, service.ErrInvalidCode):
			evaluated++
		default:
			require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
		}
	}
	require.Equal(t, service.MaxSecondFactorAttempts, evaluated)

	late, err := h.login.SubmitSecondFactor(ctx, res.Challenge.MFAToken, codeAt(t, secret, h.clock.Now()))
	require.ErrorIs(t, err, service.ErrInvalidOrExpiredToken)
	require.Nil(t, late.Session)
}
