package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/aussiebroadwan/devhub/internal/auth/store/drivers/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *redis.ChallengeStore) {
	t.Helper()
	m := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, redis.NewChallengeStore(client, "test")
}

func TestChallengeLifecycle(t *testing.T) {
	ctx := context.Background()
	m, st := newTestStore(t)
	now := time.Now()

	ch := domain.Challenge{
		ID:         "fp-1",
		Kind:       domain.ChallengeSecondFactor,
		IdentityID: "01J0000000000000000000000",
		Payload:    "pwd",
		ExpiresAt:  now.Add(5 * time.Minute),
	}
	require.NoError(t, st.CreateChallenge(ctx, ch))
	require.True(t, m.Exists("test:second_factor:fp-1"))
	require.Greater(t, m.TTL("test:second_factor:fp-1"), time.Duration(0))

	err := st.CreateChallenge(ctx, ch)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := st.GetChallenge(ctx, domain.ChallengeSecondFactor, "fp-1", now)
	require.NoError(t, err)
	require.Equal(t, ch.IdentityID, got.IdentityID)
	require.Equal(t, "pwd", got.Payload)
	require.Equal(t, ch.ExpiresAt.UnixMilli(), got.ExpiresAt.UnixMilli())

	_, err = st.GetChallenge(ctx, domain.ChallengeOAuthState, "fp-1", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	for want := 1; want <= 3; want++ {
		got, err = st.IncrementChallengeAttempts(ctx, domain.ChallengeSecondFactor, "fp-1", now)
		require.NoError(t, err)
		require.Equal(t, want, got.Attempts)
	}

	got, err = st.TakeChallenge(ctx, domain.ChallengeSecondFactor, "fp-1", now)
	require.NoError(t, err)
	require.Equal(t, 3, got.Attempts)
	require.False(t, m.Exists("test:second_factor:fp-1"))

	_, err = st.TakeChallenge(ctx, domain.ChallengeSecondFactor, "fp-1", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.IncrementChallengeAttempts(ctx, domain.ChallengeSecondFactor, "fp-1", now)
	require.ErrorIs(t, err, store.ErrNotFound, "increment must not resurrect a taken challenge")
	require.False(t, m.Exists("test:second_factor:fp-1"))
}

func TestChallengeExpiresByCallerClock(t *testing.T) {
	ctx := context.Background()
	_, st := newTestStore(t)
	now := time.Now()

	require.NoError(t, st.CreateChallenge(ctx, domain.Challenge{
		ID:        "fp-2",
		Kind:      domain.ChallengeOAuthState,
		Payload:   "verifier",
		ExpiresAt: now.Add(time.Minute),
	}))

	later := now.Add(2 * time.Minute)
	_, err := st.GetChallenge(ctx, domain.ChallengeOAuthState, "fp-2", later)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.TakeChallenge(ctx, domain.ChallengeOAuthState, "fp-2", later)
	require.ErrorIs(t, err, store.ErrNotFound)

	n, err := st.DeleteExpiredChallenges(ctx, later)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestChallengeEvictedByRedisTTL(t *testing.T) {
	ctx := context.Background()
	m, st := newTestStore(t)
	now := time.Now()

	require.NoError(t, st.CreateChallenge(ctx, domain.Challenge{
		ID:        "fp-3",
		Kind:      domain.ChallengeEnrollment,
		ExpiresAt: now.Add(10 * time.Minute),
	}))

	m.FastForward(11 * time.Minute)

	_, err := st.GetChallenge(ctx, domain.ChallengeEnrollment, "fp-3", now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTakeChallengeSingleWinner(t *testing.T) {
	ctx := context.Background()
	_, st := newTestStore(t)
	now := time.Now()

	require.NoError(t, st.CreateChallenge(ctx, domain.Challenge{
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
			if _, err := st.TakeChallenge(ctx, domain.ChallengeOAuthState, "race", now); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, winners.Load())
}

func TestIncrementChallengeAttemptsUnderContention(t *testing.T) {
	ctx := context.Background()
	_, st := newTestStore(t)
	now := time.Now()

	require.NoError(t, st.CreateChallenge(ctx, domain.Challenge{
		ID:        "busy",
		Kind:      domain.ChallengeSecondFactor,
		ExpiresAt: now.Add(time.Minute),
	}))

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		counted []int
		failed  []error
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := st.IncrementChallengeAttempts(ctx, domain.ChallengeSecondFactor, "busy", now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, err)
				return
			}
			counted = append(counted, c.Attempts)
		}()
	}
	wg.Wait()

	// A contended increment fails loudly; it never claims the challenge is gone.
	for _, err := range failed {
		require.NotErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, err, goredis.TxFailedErr)
	}

	got, err := st.GetChallenge(ctx, domain.ChallengeSecondFactor, "busy", now)
	require.NoError(t, err)
	require.Len(t, counted, got.Attempts, "every successful increment is reflected in the stored count")
	require.ElementsMatch(t, seq(1, got.Attempts), counted)
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
