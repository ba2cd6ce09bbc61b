package domain

import "time"

// ChallengeKind separates the ephemeral, session-scoped records kept in the
// challenge store.
type ChallengeKind string

const (
	// ChallengeSecondFactor is a PendingSecondFactor: the password step
	// succeeded and the identity must now present a TOTP code.
	ChallengeSecondFactor ChallengeKind = "second_factor"

	// ChallengeEnrollment holds an EnrollmentSecret (encrypted) until the
	// identity proves possession with a valid code.
	ChallengeEnrollment ChallengeKind = "totp_enrollment"

	// ChallengeOAuthState binds an OAuth redirect to its callback and holds
	// the PKCE verifier.
	ChallengeOAuthState ChallengeKind = "oauth_state"
)

// Challenge is an ephemeral server-side record addressed by an opaque handle.
// ID is the fingerprint of the handle given to the client; the handle itself
// is never stored.
type Challenge struct {
	ID         string
	Kind       ChallengeKind
	IdentityID string // empty for OAuth state
	Payload    string
	Attempts   int
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the challenge is no longer usable at now.
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
