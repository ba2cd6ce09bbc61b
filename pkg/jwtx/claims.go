package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the lifetime of a session token when the caller does
// not configure one.
const DefaultSessionTTL = 12 * time.Hour

// Authentication Methods Reference values (RFC 8176) recorded in the amr claim.
const (
	AMRPassword  = "pwd" // password checked
	AMROTP       = "otp" // TOTP code checked
	AMRMFA       = "mfa" // more than one factor
	AMRFederated = "fed" // asserted by an external identity provider
)

// Claims are the session-token claims shared with every platform service
// that trusts identity sessions.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID
	SID string `json:"sid,omitempty"`

	// Authentication Methods Reference, e.g. ["pwd","otp","mfa"]
	AMR []string `json:"amr,omitempty"`

	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`

	// Admin mirrors the identity's admin flag at issuance time.
	Admin bool `json:"adm,omitempty"`
}

// SessionParams describes a session token to be minted.
type SessionParams struct {
	Subject  string
	SID      string
	AMR      []string
	Username string
	Email    string
	Admin    bool
	Issuer   string
	Audience []string
	TTL      time.Duration
	Now      time.Time
}

// NewSessionClaims builds minimally-correct claims.
func NewSessionClaims(p SessionParams) Claims {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings(p.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:      p.SID,
		AMR:      p.AMR,
		Username: p.Username,
		Email:    p.Email,
		Admin:    p.Admin,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasAMR reports whether the token records the given authentication method.
func (c *Claims) HasAMR(method string) bool {
	return slices.Contains(c.AMR, method)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before nbf, allowing leeway for clock skew in both directions.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
