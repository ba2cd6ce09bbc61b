package domain

import "time"

// Session is what a completed login hands back to the client: a signed
// bearer token and when it stops being accepted.
type Session struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"` // always "Bearer"
	ExpiresIn   time.Duration `json:"expires_in"` // seconds until expiry
	ExpiresAt   time.Time     `json:"expires_at"`
	AMR         []string      `json:"amr,omitempty"`
}

// LoginResult is the outcome of a login attempt that did not fail. Exactly
// one of Session and Challenge is set.
type LoginResult struct {
	Identity  Identity
	Session   *Session
	Challenge *MFAChallenge
}

// MFARequired reports whether the caller must complete a second factor.
func (r LoginResult) MFARequired() bool { return r.Challenge != nil }
