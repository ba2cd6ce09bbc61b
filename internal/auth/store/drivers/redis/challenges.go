// Package redis keeps the challenge store in Redis so pending second
// factors, enrollments and OAuth state survive across replicas without
// touching the identity database.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "identity:challenge"
	maxTxRetries  = 4

	fieldIdentityID = "identity_id"
	fieldPayload    = "payload"
	fieldAttempts   = "attempts"
	fieldCreatedAt  = "created_at"
	fieldExpiresAt  = "expires_at"
)

// ChallengeStore implements store.Challenges on a Redis hash per challenge.
// Keys carry a PEXPIREAT so Redis reclaims them on its own; the stored
// expires_at is still checked against the caller's clock.
type ChallengeStore struct {
	rdb    goredis.UniversalClient
	prefix string
}

var _ store.Challenges = (*ChallengeStore)(nil)

// NewChallengeStore wraps an existing client. An empty prefix uses the default.
func NewChallengeStore(rdb goredis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &ChallengeStore{rdb: rdb, prefix: prefix}
}

// Open parses a redis:// URL and connects.
func Open(ctx context.Context, url, prefix string) (*ChallengeStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewChallengeStore(rdb, prefix), nil
}

func (s *ChallengeStore) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *ChallengeStore) Close() error { return s.rdb.Close() }

func (s *ChallengeStore) key(kind domain.ChallengeKind, id string) string {
	return s.prefix + ":" + string(kind) + ":" + id
}

func (s *ChallengeStore) CreateChallenge(ctx context.Context, c domain.Challenge) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	key := s.key(c.Kind, c.ID)

	return s.watch(ctx, key, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: challenge", store.ErrAlreadyExists)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldIdentityID, c.IdentityID,
				fieldPayload, c.Payload,
				fieldAttempts, c.Attempts,
				fieldCreatedAt, c.CreatedAt.UnixMilli(),
				fieldExpiresAt, c.ExpiresAt.UnixMilli(),
			)
			pipe.PExpireAt(ctx, key, c.ExpiresAt)
			return nil
		})
		return err
	})
}

func (s *ChallengeStore) GetChallenge(ctx context.Context, kind domain.ChallengeKind, id string, now time.Time) (domain.Challenge, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(kind, id)).Result()
	if err != nil {
		return domain.Challenge{}, err
	}
	return decodeChallenge(kind, id, fields, now)
}

func (s *ChallengeStore) IncrementChallengeAttempts(ctx context.Context, kind domain.ChallengeKind, id string, now time.Time) (domain.Challenge, error) {
	key := s.key(kind, id)

	var out domain.Challenge
	err := s.watch(ctx, key, func(tx *goredis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		c, err := decodeChallenge(kind, id, fields, now)
		if err != nil {
			return err
		}

		var incr *goredis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			incr = pipe.HIncrBy(ctx, key, fieldAttempts, 1)
			return nil
		})
		if err != nil {
			return err
		}

		c.Attempts = int(incr.Val())
		out = c
		return nil
	})
	return out, err
}

func (s *ChallengeStore) TakeChallenge(ctx context.Context, kind domain.ChallengeKind, id string, now time.Time) (domain.Challenge, error) {
	key := s.key(kind, id)

	var out domain.Challenge
	err := s.watch(ctx, key, func(tx *goredis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		c, err := decodeChallenge(kind, id, fields, now)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (s *ChallengeStore) DeleteChallenge(ctx context.Context, kind domain.ChallengeKind, id string) error {
	return s.rdb.Del(ctx, s.key(kind, id)).Err()
}

// DeleteExpiredChallenges is a no-op: Redis evicts keys at their PEXPIREAT.
func (s *ChallengeStore) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// watch runs fn under WATCH key, retrying when a concurrent writer
// invalidates the transaction. Running out of retries is an error: the
// challenge may well still exist, so callers must not treat it as gone.
func (s *ChallengeStore) watch(ctx context.Context, key string, fn func(tx *goredis.Tx) error) error {
	for range maxTxRetries {
		err := s.rdb.Watch(ctx, fn, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("challenge %s: gave up after %d contended transactions: %w", key, maxTxRetries, goredis.TxFailedErr)
}

func decodeChallenge(kind domain.ChallengeKind, id string, fields map[string]string, now time.Time) (domain.Challenge, error) {
	if len(fields) == 0 {
		return domain.Challenge{}, store.ErrNotFound
	}

	expiresAt, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("decode challenge expiry: %w", err)
	}
	c := domain.Challenge{
		ID:         id,
		Kind:       kind,
		IdentityID: fields[fieldIdentityID],
		Payload:    fields[fieldPayload],
		ExpiresAt:  time.UnixMilli(expiresAt).UTC(),
	}
	if c.Expired(now) {
		return domain.Challenge{}, store.ErrNotFound
	}

	if v := fields[fieldAttempts]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.Challenge{}, fmt.Errorf("decode challenge attempts: %w", err)
		}
		c.Attempts = n
	}
	if v := fields[fieldCreatedAt]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.Challenge{}, fmt.Errorf("decode challenge creation time: %w", err)
		}
		c.CreatedAt = time.UnixMilli(ms).UTC()
	}
	return c, nil
}
