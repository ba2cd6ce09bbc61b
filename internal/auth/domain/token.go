package domain

import "time"

// TokenPurpose selects which single-use token pair on an Identity is used.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// TTL returns how long an issued token of this purpose stays valid.
func (p TokenPurpose) TTL() time.Duration {
	switch p {
	case PurposeEmailVerification:
		return 24 * time.Hour
	case PurposePasswordReset:
		return time.Hour
	default:
		return 0
	}
}
