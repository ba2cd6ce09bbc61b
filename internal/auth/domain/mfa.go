package domain

import "time"

// MFAChallenge is returned when the password step succeeded but a TOTP code
// is still owed.
type MFAChallenge struct {
	MFARequired bool      `json:"mfa_required"` // always true
	MFAToken    string    `json:"mfa_token"`    // opaque handle for the pending second factor
	Methods     []string  `json:"methods"`      // e.g. ["totp"]
	ExpiresAt   time.Time `json:"expires_at"`
}

// MFAEnrollment is handed to an identity starting TOTP enrollment. The
// secret is shown once; the server only keeps it encrypted.
type MFAEnrollment struct {
	EnrollmentToken string    `json:"enrollment_token"`
	Secret          string    `json:"secret"`      // base32, for manual entry
	OTPAuthURL      string    `json:"otpauth_url"` // otpauth:// provisioning URI
	QRCode          string    `json:"qr_code"`     // data:image/png;base64,...
	Issuer          string    `json:"issuer"`
	Account         string    `json:"account"`
	ExpiresAt       time.Time `json:"expires_at"`
}
