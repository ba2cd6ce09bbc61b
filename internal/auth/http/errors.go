package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/pkg/authsdk"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
)

var serviceErrors = []struct {
	err error
	api *authsdk.APIError
}{
	{service.ErrInvalidCredentials, authsdk.ErrInvalidCredentials},
	{service.ErrEmailNotVerified, authsdk.ErrEmailNotVerified},
	{service.ErrAccountSuspended, authsdk.ErrAccountSuspended},
	{service.ErrInvalidOrExpiredToken, authsdk.ErrInvalidToken},
	{service.ErrInvalidCode, authsdk.ErrInvalidCode},
	{service.ErrMFAAlreadyEnabled, authsdk.ErrMFAAlreadyEnabled},
	{service.ErrMFANotEnabled, authsdk.ErrMFANotEnabled},
	{service.ErrLinkageConflict, authsdk.ErrLinkageConflict},
	{service.ErrOAuthStateInvalid, authsdk.ErrInvalidState},
	{service.ErrUnknownProvider, authsdk.ErrUnknownProvider},
	{service.ErrInvalidUsername, authsdk.ErrInvalidUsername},
	{service.ErrInvalidEmail, authsdk.ErrInvalidEmail},
	{service.ErrWeakPassword, authsdk.ErrWeakPassword},
	{service.ErrUsernameTaken, authsdk.ErrUsernameTaken},
	{service.ErrEmailTaken, authsdk.ErrEmailTaken},
}

// writeServiceError maps a service error onto its API error. Anything not in
// the taxonomy is logged and reported as a server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			m.api.WriteError(w)
			return
		}
	}
	slogx.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	authsdk.ErrServerError.WriteError(w)
}
