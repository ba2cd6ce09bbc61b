package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/store/drivers/sqlite/gen"
)

type challengesRepo struct {
	q *gen.Queries
}

func (r *challengesRepo) CreateChallenge(ctx context.Context, c domain.Challenge) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	err := r.q.CreateChallenge(ctx, gen.CreateChallengeParams{
		ID:         c.ID,
		Kind:       string(c.Kind),
		IdentityID: mapStringNull(c.IdentityID),
		Payload:    c.Payload,
		Attempts:   int64(c.Attempts),
		CreatedAt:  toMillis(c.CreatedAt),
		ExpiresAt:  toMillis(c.ExpiresAt),
	})
	return mapConstraint(err)
}

func (r *challengesRepo) GetChallenge(ctx context.Context, kind domain.ChallengeKind, id string, now time.Time) (domain.Challenge, error) {
	row, err := r.q.GetChallenge(ctx, gen.ChallengeKeyParams{Kind: string(kind), ID: id, Now: toMillis(now)})
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	return mapChallenge(row), nil
}

func (r *challengesRepo) IncrementChallengeAttempts(ctx context.Context, kind domain.ChallengeKind, id string, now time.Time) (domain.Challenge, error) {
	row, err := r.q.IncrementChallengeAttempts(ctx, gen.ChallengeKeyParams{Kind: string(kind), ID: id, Now: toMillis(now)})
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	return mapChallenge(row), nil
}

func (r *challengesRepo) TakeChallenge(ctx context.Context, kind domain.ChallengeKind, id string, now time.Time) (domain.Challenge, error) {
	row, err := r.q.TakeChallenge(ctx, gen.ChallengeKeyParams{Kind: string(kind), ID: id, Now: toMillis(now)})
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	return mapChallenge(row), nil
}

func (r *challengesRepo) DeleteChallenge(ctx context.Context, kind domain.ChallengeKind, id string) error {
	return r.q.DeleteChallenge(ctx, string(kind), id)
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredChallenges(ctx, toMillis(now))
}
