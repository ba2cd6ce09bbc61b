package gen

import (
	"context"
	"database/sql"
)

const challengeColumns = `id, kind, identity_id, payload, attempts, created_at, expires_at`

func scanChallenge(row rowScanner) (Challenge, error) {
	var c Challenge
	err := row.Scan(
		&c.ID,
		&c.Kind,
		&c.IdentityID,
		&c.Payload,
		&c.Attempts,
		&c.CreatedAt,
		&c.ExpiresAt,
	)
	return c, err
}

const createChallenge = `INSERT INTO challenges (` + challengeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

type CreateChallengeParams struct {
	ID         string
	Kind       string
	IdentityID sql.NullString
	Payload    string
	Attempts   int64
	CreatedAt  int64
	ExpiresAt  int64
}

func (q *Queries) CreateChallenge(ctx context.Context, arg CreateChallengeParams) error {
	_, err := q.db.ExecContext(ctx, createChallenge,
		arg.ID,
		arg.Kind,
		arg.IdentityID,
		arg.Payload,
		arg.Attempts,
		arg.CreatedAt,
		arg.ExpiresAt,
	)
	return err
}

type ChallengeKeyParams struct {
	Kind string
	ID   string
	Now  int64
}

const getChallenge = `SELECT ` + challengeColumns + ` FROM challenges
WHERE kind = ? AND id = ? AND expires_at > ?`

func (q *Queries) GetChallenge(ctx context.Context, arg ChallengeKeyParams) (Challenge, error) {
	return scanChallenge(q.db.QueryRowContext(ctx, getChallenge, arg.Kind, arg.ID, arg.Now))
}

const incrementChallengeAttempts = `UPDATE challenges SET attempts = attempts + 1
WHERE kind = ? AND id = ? AND expires_at > ?
RETURNING ` + challengeColumns

func (q *Queries) IncrementChallengeAttempts(ctx context.Context, arg ChallengeKeyParams) (Challenge, error) {
	return scanChallenge(q.db.QueryRowContext(ctx, incrementChallengeAttempts, arg.Kind, arg.ID, arg.Now))
}

const takeChallenge = `DELETE FROM challenges
WHERE kind = ? AND id = ? AND expires_at > ?
RETURNING ` + challengeColumns

func (q *Queries) TakeChallenge(ctx context.Context, arg ChallengeKeyParams) (Challenge, error) {
	return scanChallenge(q.db.QueryRowContext(ctx, takeChallenge, arg.Kind, arg.ID, arg.Now))
}

const deleteChallenge = `DELETE FROM challenges WHERE kind = ? AND id = ?`

func (q *Queries) DeleteChallenge(ctx context.Context, kind, id string) error {
	_, err := q.db.ExecContext(ctx, deleteChallenge, kind, id)
	return err
}

const deleteExpiredChallenges = `DELETE FROM challenges WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredChallenges(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredChallenges, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
