package gen

import (
	"context"
	"database/sql"
)

const identityColumns = `id, username, email, password_hash, github_id, google_id, avatar_url,
	is_email_verified, two_factor_enabled, totp_secret,
	email_verification_token, email_verification_expires_at,
	password_reset_token, password_reset_expires_at,
	is_admin, is_suspended, is_verified, created_at, updated_at`

func scanIdentity(row rowScanner) (Identity, error) {
	var i Identity
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.PasswordHash,
		&i.GithubID,
		&i.GoogleID,
		&i.AvatarUrl,
		&i.IsEmailVerified,
		&i.TwoFactorEnabled,
		&i.TotpSecret,
		&i.EmailVerificationToken,
		&i.EmailVerificationExpiresAt,
		&i.PasswordResetToken,
		&i.PasswordResetExpiresAt,
		&i.IsAdmin,
		&i.IsSuspended,
		&i.IsVerified,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getIdentityByID = `SELECT ` + identityColumns + ` FROM identities WHERE id = ?`

func (q *Queries) GetIdentityByID(ctx context.Context, id string) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, getIdentityByID, id))
}

const getIdentityByEmail = `SELECT ` + identityColumns + ` FROM identities WHERE email = ?`

func (q *Queries) GetIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, getIdentityByEmail, email))
}

// username is declared COLLATE NOCASE so this match is case-insensitive.
const getIdentityByUsername = `SELECT ` + identityColumns + ` FROM identities WHERE username = ?`

func (q *Queries) GetIdentityByUsername(ctx context.Context, username string) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, getIdentityByUsername, username))
}

const getIdentityByGithubID = `SELECT ` + identityColumns + ` FROM identities WHERE github_id = ?`

func (q *Queries) GetIdentityByGithubID(ctx context.Context, githubID string) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, getIdentityByGithubID, githubID))
}

const getIdentityByGoogleID = `SELECT ` + identityColumns + ` FROM identities WHERE google_id = ?`

func (q *Queries) GetIdentityByGoogleID(ctx context.Context, googleID string) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, getIdentityByGoogleID, googleID))
}

const createIdentity = `INSERT INTO identities (
	id, username, email, password_hash, github_id, google_id, avatar_url,
	is_email_verified, two_factor_enabled, totp_secret,
	email_verification_token, email_verification_expires_at,
	is_admin, is_suspended, is_verified, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateIdentityParams struct {
	ID                         string
	Username                   string
	Email                      string
	PasswordHash               string
	GithubID                   sql.NullString
	GoogleID                   sql.NullString
	AvatarUrl                  string
	IsEmailVerified            bool
	TwoFactorEnabled           bool
	TotpSecret                 sql.NullString
	EmailVerificationToken     sql.NullString
	EmailVerificationExpiresAt sql.NullInt64
	IsAdmin                    bool
	IsSuspended                bool
	IsVerified                 bool
	CreatedAt                  int64
	UpdatedAt                  int64
}

func (q *Queries) CreateIdentity(ctx context.Context, arg CreateIdentityParams) error {
	_, err := q.db.ExecContext(ctx, createIdentity,
		arg.ID,
		arg.Username,
		arg.Email,
		arg.PasswordHash,
		arg.GithubID,
		arg.GoogleID,
		arg.AvatarUrl,
		arg.IsEmailVerified,
		arg.TwoFactorEnabled,
		arg.TotpSecret,
		arg.EmailVerificationToken,
		arg.EmailVerificationExpiresAt,
		arg.IsAdmin,
		arg.IsSuspended,
		arg.IsVerified,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const updateIdentity = `UPDATE identities SET
	username = ?,
	email = ?,
	avatar_url = ?,
	is_email_verified = ?,
	is_admin = ?,
	is_suspended = ?,
	is_verified = ?,
	updated_at = ?
WHERE id = ?`

type UpdateIdentityParams struct {
	Username        string
	Email           string
	AvatarUrl       string
	IsEmailVerified bool
	IsAdmin         bool
	IsSuspended     bool
	IsVerified      bool
	UpdatedAt       int64
	ID              string
}

func (q *Queries) UpdateIdentity(ctx context.Context, arg UpdateIdentityParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateIdentity,
		arg.Username,
		arg.Email,
		arg.AvatarUrl,
		arg.IsEmailVerified,
		arg.IsAdmin,
		arg.IsSuspended,
		arg.IsVerified,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const linkGitHub = `UPDATE identities
SET github_id = ?,
	is_email_verified = 1,
	avatar_url = CASE WHEN avatar_url = '' THEN ? ELSE avatar_url END,
	updated_at = ?
WHERE id = ? AND (github_id IS NULL OR github_id = ?)
RETURNING ` + identityColumns

const linkGoogle = `UPDATE identities
SET google_id = ?,
	is_email_verified = 1,
	avatar_url = CASE WHEN avatar_url = '' THEN ? ELSE avatar_url END,
	updated_at = ?
WHERE id = ? AND (google_id IS NULL OR google_id = ?)
RETURNING ` + identityColumns

type LinkProviderParams struct {
	ProviderUserID string
	AvatarUrl      string
	UpdatedAt      int64
	ID             string
}

func (q *Queries) LinkGitHub(ctx context.Context, arg LinkProviderParams) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, linkGitHub,
		arg.ProviderUserID, arg.AvatarUrl, arg.UpdatedAt, arg.ID, arg.ProviderUserID))
}

func (q *Queries) LinkGoogle(ctx context.Context, arg LinkProviderParams) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, linkGoogle,
		arg.ProviderUserID, arg.AvatarUrl, arg.UpdatedAt, arg.ID, arg.ProviderUserID))
}

const setEmailVerificationToken = `UPDATE identities
SET email_verification_token = ?, email_verification_expires_at = ?, updated_at = ?
WHERE id = ?`

type SetTokenParams struct {
	Token     string
	ExpiresAt int64
	UpdatedAt int64
	ID        string
}

func (q *Queries) SetEmailVerificationToken(ctx context.Context, arg SetTokenParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, setEmailVerificationToken, arg.Token, arg.ExpiresAt, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setPasswordResetToken = `UPDATE identities
SET password_reset_token = ?, password_reset_expires_at = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) SetPasswordResetToken(ctx context.Context, arg SetTokenParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, setPasswordResetToken, arg.Token, arg.ExpiresAt, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const consumeEmailVerificationToken = `UPDATE identities
SET is_email_verified = 1,
	email_verification_token = NULL,
	email_verification_expires_at = NULL,
	updated_at = ?
WHERE email_verification_token = ? AND email_verification_expires_at > ?
RETURNING ` + identityColumns

type ConsumeTokenParams struct {
	UpdatedAt int64
	Token     string
	Now       int64
}

func (q *Queries) ConsumeEmailVerificationToken(ctx context.Context, arg ConsumeTokenParams) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, consumeEmailVerificationToken, arg.UpdatedAt, arg.Token, arg.Now))
}

const consumePasswordResetToken = `UPDATE identities
SET password_hash = ?,
	password_reset_token = NULL,
	password_reset_expires_at = NULL,
	updated_at = ?
WHERE password_reset_token = ? AND password_reset_expires_at > ?
RETURNING ` + identityColumns

type ConsumePasswordResetTokenParams struct {
	PasswordHash string
	UpdatedAt    int64
	Token        string
	Now          int64
}

func (q *Queries) ConsumePasswordResetToken(ctx context.Context, arg ConsumePasswordResetTokenParams) (Identity, error) {
	return scanIdentity(q.db.QueryRowContext(ctx, consumePasswordResetToken, arg.PasswordHash, arg.UpdatedAt, arg.Token, arg.Now))
}

const enableTwoFactor = `UPDATE identities
SET two_factor_enabled = 1, totp_secret = ?, updated_at = ?
WHERE id = ? AND two_factor_enabled = 0`

type EnableTwoFactorParams struct {
	TotpSecret string
	UpdatedAt  int64
	ID         string
}

func (q *Queries) EnableTwoFactor(ctx context.Context, arg EnableTwoFactorParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, enableTwoFactor, arg.TotpSecret, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const disableTwoFactor = `UPDATE identities
SET two_factor_enabled = 0, totp_secret = NULL, updated_at = ?
WHERE id = ? AND two_factor_enabled = 1`

func (q *Queries) DisableTwoFactor(ctx context.Context, updatedAt int64, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, disableTwoFactor, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const clearExpiredEmailVerificationTokens = `UPDATE identities
SET email_verification_token = NULL, email_verification_expires_at = NULL
WHERE email_verification_expires_at <= ?`

func (q *Queries) ClearExpiredEmailVerificationTokens(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, clearExpiredEmailVerificationTokens, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const clearExpiredPasswordResetTokens = `UPDATE identities
SET password_reset_token = NULL, password_reset_expires_at = NULL
WHERE password_reset_expires_at <= ?`

func (q *Queries) ClearExpiredPasswordResetTokens(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, clearExpiredPasswordResetTokens, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
