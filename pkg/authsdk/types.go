package authsdk

import (
	"time"

	"github.com/aussiebroadwan/devhub/pkg/jwtx"
)

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse is the JSON shape of every error body.
// Client code should use the APIError type from errors.go instead.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Account Types
// ============================================================================

// SignupRequest creates a password-based identity.
type SignupRequest struct {
	Username string `json:"username" example:"dev1"`
	Email    string `json:"email" example:"dev1@example.com"`
	Password string `json:"password" example:"secret1"`
}

// SignupResponse carries the new identity's id. The account stays
// unverified until the emailed token is submitted.
type SignupResponse struct {
	ID string `json:"id" example:"01HZX3J4V6Q8N5T2W7Y9K1M3P5"`
}

// TokenRequest submits an emailed single-use token.
type TokenRequest struct {
	Token string `json:"token"`
}

// EmailRequest names an address for resend/forgot flows.
type EmailRequest struct {
	Email string `json:"email" example:"dev1@example.com"`
}

// ResetPasswordRequest consumes a reset token and sets a new password.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ============================================================================
// Login Types
// ============================================================================

// LoginRequest is the password step of a login.
type LoginRequest struct {
	Email    string `json:"email" example:"dev1@example.com"`
	Password string `json:"password" example:"secret1"`
}

// MFALoginRequest completes a login that answered 409 mfa_required.
type MFALoginRequest struct {
	MFAToken string `json:"mfa_token"`
	Code     string `json:"code" example:"123456"`
}

// SessionResponse is returned once a login reaches the authenticated state.
type SessionResponse struct {
	// AccessToken is the EdDSA-signed JWT to send as a bearer token
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type" example:"Bearer"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in" example:"43200"`

	// IdentityID is the authenticated identity
	IdentityID string `json:"identity_id"`

	// AMR lists how the identity authenticated (e.g., ["pwd","otp","mfa"])
	AMR []string `json:"amr,omitempty"`
}

// ============================================================================
// MFA Types
// ============================================================================

// MFAEnrollResponse is the response from starting TOTP enrollment.
type MFAEnrollResponse struct {
	EnrollmentToken string    `json:"enrollment_token"`
	Secret          string    `json:"secret" example:"JBSWY3DPEHPK3PXP"`
	OTPAuthURL      string    `json:"otpauth_url"`
	QRCode          string    `json:"qr_code"`
	Issuer          string    `json:"issuer" example:"DevHub"`
	Account         string    `json:"account" example:"dev1@example.com"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// MFAConfirmRequest proves possession of the enrollment secret.
type MFAConfirmRequest struct {
	EnrollmentToken string `json:"enrollment_token"`
	Code            string `json:"code" example:"123456"`
}

// MFADisableRequest turns two-factor off; it needs a current code.
type MFADisableRequest struct {
	Code string `json:"code" example:"123456"`
}

// ============================================================================
// Profile Types
// ============================================================================

// ProfileResponse is the authenticated identity's own profile.
type ProfileResponse struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	IsEmailVerified  bool      `json:"is_email_verified"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	IsAdmin          bool      `json:"is_admin"`
	IsVerified       bool      `json:"is_verified"`
	LinkedProviders  []string  `json:"linked_providers"`
	CreatedAt        time.Time `json:"created_at"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains per-dependency results (readyz only)
	Checks map[string]string `json:"checks,omitempty"`
}

// JWKSResponse contains the JSON Web Key Set used to verify session tokens.
type JWKSResponse jwtx.JWKS
