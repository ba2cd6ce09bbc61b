package gen

import "database/sql"

// Timestamps are unix milliseconds (UTC).

type Identity struct {
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
	PasswordResetToken         sql.NullString
	PasswordResetExpiresAt     sql.NullInt64
	IsAdmin                    bool
	IsSuspended                bool
	IsVerified                 bool
	CreatedAt                  int64
	UpdatedAt                  int64
}

type Challenge struct {
	ID         string
	Kind       string
	IdentityID sql.NullString
	Payload    string
	Attempts   int64
	CreatedAt  int64
	ExpiresAt  int64
}
