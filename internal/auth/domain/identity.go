package domain

import "time"

// Identity is one human account. Email is always stored lowercased.
//
// TwoFactorEnabled and TOTPSecret move together: the secret is non-nil
// exactly when two-factor is enabled, and it only ever holds SecretCipher
// output, never the base32 plaintext.
type Identity struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2id PHC string

	GitHubID *string
	GoogleID *string

	AvatarURL string

	IsEmailVerified  bool
	TwoFactorEnabled bool
	TOTPSecret       *string // encrypted

	IsAdmin     bool
	IsSuspended bool
	IsVerified  bool // content-trust badge, unrelated to email verification

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProviderID returns the identity's linked account id for p, or nil.
func (i Identity) ProviderID(p Provider) *string {
	switch p {
	case ProviderGitHub:
		return i.GitHubID
	case ProviderGoogle:
		return i.GoogleID
	default:
		return nil
	}
}

// SetProviderID links the identity to an account at p.
func (i *Identity) SetProviderID(p Provider, id string) {
	switch p {
	case ProviderGitHub:
		i.GitHubID = &id
	case ProviderGoogle:
		i.GoogleID = &id
	}
}
