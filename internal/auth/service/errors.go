package service

import (
	"errors"

	"github.com/aussiebroadwan/devhub/pkg/authsdk"
)

// Authentication failures. Descriptions shown to callers come from the HTTP
// layer; these values never say whether an account or token exists.
var (
	ErrInvalidCredentials    = errors.New("invalid_credentials")
	ErrEmailNotVerified      = errors.New("email_not_verified")
	ErrAccountSuspended      = errors.New("account_suspended")
	ErrInvalidOrExpiredToken = errors.New("invalid_or_expired_token")
	ErrInvalidCode           = errors.New("invalid_code")
	ErrMFAAlreadyEnabled     = errors.New("mfa_already_enabled")
	ErrMFANotEnabled         = errors.New("mfa_not_enabled")
	ErrLinkageConflict       = errors.New("linkage_conflict")
)

// Request validation failures.
var (
	ErrInvalidUsername   = errors.New("invalid_username")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrWeakPassword      = errors.New("weak_password")
	ErrUsernameTaken     = errors.New("username_taken")
	ErrEmailTaken        = errors.New("email_taken")
	ErrUnknownProvider   = errors.New("unknown_provider")
	ErrOAuthStateInvalid = errors.New("oauth_state_invalid")
)

// MFARequiredError is an alias to the SDK's MFARequiredError so handlers can
// write it straight to the response.
type MFARequiredError = authsdk.MFARequiredError
