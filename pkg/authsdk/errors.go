package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/devhub/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeEmailNotVerified   = "email_not_verified"
	ErrorCodeAccountSuspended   = "account_suspended"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeInvalidCode        = "invalid_code"
	ErrorCodeMFARequired        = "mfa_required"
	ErrorCodeMFAAlreadyEnabled  = "mfa_already_enabled"
	ErrorCodeMFANotEnabled      = "mfa_not_enabled"
	ErrorCodeLinkageConflict    = "linkage_conflict"
	ErrorCodeInvalidState       = "invalid_state"
	ErrorCodeUnknownProvider    = "unknown_provider"
	ErrorCodeInvalidUsername    = "invalid_username"
	ErrorCodeInvalidEmail       = "invalid_email"
	ErrorCodeWeakPassword       = "weak_password"
	ErrorCodeUsernameTaken      = "username_taken"
	ErrorCodeEmailTaken         = "email_taken"
	ErrorCodeRateLimited        = "rate_limit_exceeded"
	ErrorCodeServerError        = "server_error"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is the error body every endpoint returns. It implements the error
// interface and is used both by the server (to write HTTP responses) and by
// the SDK client (to represent errors).
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine-readable error code (e.g., "invalid_credentials")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code so callers can write errors.Is(err, authsdk.ErrInvalidCode).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

// ============================================================================
// Predefined Errors
// ============================================================================

// Descriptions are deliberately generic: none of them reveal whether an
// account or token exists.
var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid email or password",
	}

	ErrEmailNotVerified = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeEmailNotVerified,
		Description: "the email address must be verified before signing in",
	}

	ErrAccountSuspended = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccountSuspended,
		Description: "this account is suspended",
	}

	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is invalid or has expired",
	}

	ErrInvalidCode = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCode,
		Description: "the verification code is invalid",
	}

	ErrMFAAlreadyEnabled = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeMFAAlreadyEnabled,
		Description: "two-factor authentication is already enabled",
	}

	ErrMFANotEnabled = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeMFANotEnabled,
		Description: "two-factor authentication is not enabled",
	}

	ErrLinkageConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeLinkageConflict,
		Description: "the external account could not be linked",
	}

	ErrInvalidState = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidState,
		Description: "the sign-in request is invalid or has expired",
	}

	ErrUnknownProvider = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeUnknownProvider,
		Description: "unknown identity provider",
	}

	ErrInvalidUsername = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidUsername,
		Description: "username must be 3-30 characters of letters, digits, '_', '.' or '-'",
	}

	ErrInvalidEmail = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidEmail,
		Description: "email address is invalid",
	}

	ErrWeakPassword = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeWeakPassword,
		Description: "password must be 6-128 characters",
	}

	ErrUsernameTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeUsernameTaken,
		Description: "username is already taken",
	}

	ErrEmailTaken = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeEmailTaken,
		Description: "email is already registered",
	}

	ErrUnauthorized = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid or expired",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	ErrMethodNotAllowed = &APIError{
		StatusCode:  http.StatusMethodNotAllowed,
		Code:        ErrorCodeInvalidRequest,
		Description: "method not allowed",
	}
)

// NewAPIError creates a new APIError with the given status code, error code, and description.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// ============================================================================
// MFA Error Response
// ============================================================================

// MFARequiredError is returned when the password was accepted but a second
// factor is still owed. It's returned with HTTP 409 Conflict because the
// request is valid but conflicts with the identity's state (2FA enabled).
type MFARequiredError struct {
	// MFAToken is the opaque handle to submit with the TOTP code
	MFAToken string `json:"mfa_token"`

	// Methods lists the available second factors (e.g., ["totp"])
	Methods []string `json:"mfa_methods"`
}

// Error implements the error interface.
func (e *MFARequiredError) Error() string {
	return fmt.Sprintf("MFA required: available methods=%v", e.Methods)
}

// WriteError writes the MFA required error as a 409 Conflict.
func (e *MFARequiredError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusConflict, map[string]any{
		"error":             ErrorCodeMFARequired,
		"error_description": "a second factor is required to complete sign-in",
		"mfa_token":         e.MFAToken,
		"mfa_methods":       e.Methods,
	})
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response into a typed error.
// Returns nil if the response indicates success (2xx status code).
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusConflict {
		var mfaResp struct {
			Error      string   `json:"error"`
			MFAToken   string   `json:"mfa_token"`
			MFAMethods []string `json:"mfa_methods"`
		}
		if err := json.Unmarshal(body, &mfaResp); err == nil {
			if mfaResp.Error == ErrorCodeMFARequired && mfaResp.MFAToken != "" {
				return &MFARequiredError{
					MFAToken: mfaResp.MFAToken,
					Methods:  mfaResp.MFAMethods,
				}
			}
		}
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
