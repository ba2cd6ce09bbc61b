package sqlite_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/stretchr/testify/require"
)

func TestChallengeLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	ident := newIdentity("alice", "alice@example.com")
	require.NoError(t, st.Identities().Create(ctx, ident))

	ch := domain.Challenge{
		ID:         "fp-challenge",
		Kind:       domain.ChallengeSecondFactor,
		IdentityID: ident.ID,
		Payload:    "pwd",
		ExpiresAt:  now.Add(5 * time.Minute),
	}
	require.NoError(t, st.Challenges().CreateChallenge(ctx, ch))

	got, err := st.Challenges().GetChallenge(ctx, domain.ChallengeSecondFactor, "fp-challenge", now)
	require.NoError(t, err)
	require.Equal(t, ident.ID, got.IdentityID)
	require.Equal(t, "pwd", got.Payload)
	require.Zero(t, got.Attempts)

	_, err = st.Challenges().GetChallenge(ctx, domain.ChallengeEnrollment, "fp-challenge", now)
	require.ErrorIs(t, err, store.ErrNotFound, "kinds do not share a namespace")

	got, err = st.Challenges().IncrementChallengeAttempts(ctx, domain.ChallengeSecondFactor, "fp-challenge", now)
	require.NoError(t, err)
	require.Equal(t, 1, got.Attempts)

	got, err = st.Challenges().TakeChallenge(ctx, domain.ChallengeSecondFactor, "fp-challenge", now)
	require.NoError(t, err)
	require.Equal(t, 1, got.Attempts)

	_, err = st.Challenges().TakeChallenge(ctx, domain.ChallengeSecondFactor, "fp-challenge", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.Challenges().DeleteChallenge(ctx, domain.ChallengeSecondFactor, "fp-challenge"))
}

func TestChallengeExpiry(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	require.NoError(t, st.Challenges().CreateChallenge(ctx, domain.Challenge{
		ID:        "stale",
		Kind:      domain.ChallengeOAuthState,
		Payload:   "verifier",
		ExpiresAt: now.Add(-time.Second),
	}))
	require.NoError(t, st.Challenges().CreateChallenge(ctx, domain.Challenge{
		ID:        "fresh",
		Kind:      domain.ChallengeOAuthState,
		Payload:   "verifier",
		ExpiresAt: now.Add(time.Minute),
	}))

	_, err := st.Challenges().GetChallenge(ctx, domain.ChallengeOAuthState, "stale", now)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Challenges().TakeChallenge(ctx, domain.ChallengeOAuthState, "stale", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	n, err := st.Challenges().DeleteExpiredChallenges(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = st.Challenges().GetChallenge(ctx, domain.ChallengeOAuthState, "fresh", now)
	require.NoError(t, err)
}

func TestTakeChallengeSingleWinner(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	require.NoError(t, st.Challenges().CreateChallenge(ctx, domain.Challenge{
		ID:        "race",
		Kind:      domain.ChallengeOAuthState,
		ExpiresAt: now.Add(time.Minute),
	}))

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Challenges().TakeChallenge(ctx, domain.ChallengeOAuthState, "race", now); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, winners.Load())
}

func TestChallengesCascadeWithIdentity(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	err := st.Challenges().CreateChallenge(ctx, domain.Challenge{
		ID:         "orphan",
		Kind:       domain.ChallengeSecondFactor,
		IdentityID: "no-such-identity",
		ExpiresAt:  time.Now().Add(time.Minute),
	})
	require.Error(t, err, "foreign key must be enforced")
}
