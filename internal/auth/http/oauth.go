package http

import (
	"net/http"

	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/pkg/authsdk"
)

// OAuthHandler serves the federated sign-in redirects.
type OAuthHandler struct {
	OAuth *service.OAuthService
}

// HandleStart handles GET /v1/auth/oauth/{provider}/start
//
//	@Summary		Start federated sign-in
//	@Description	Redirects to the provider's consent page with a single-use state and a PKCE challenge.
//	@Tags			Login
//	@Param			provider	path	string	true	"github or google"
//	@Success		302			"Redirect to provider"
//	@Failure		404			{object}	authsdk.ErrorResponse	"unknown_provider"
//	@Router			/v1/auth/oauth/{provider}/start [get].
func (h *OAuthHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.OAuth.Begin(r.Context(), r.PathValue("provider"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback handles GET /v1/auth/oauth/{provider}/callback
//
//	@Summary		Finish federated sign-in
//	@Description	Exchanges the authorization code, links or creates the identity and answers like /v1/auth/login.
//	@Tags			Login
//	@Produce		json
//	@Param			provider	path		string	true	"github or google"
//	@Param			state		query		string	true	"State from the start redirect"
//	@Param			code		query		string	true	"Authorization code"
//	@Success		200			{object}	authsdk.SessionResponse		"Authenticated"
//	@Failure		400			{object}	authsdk.ErrorResponse		"invalid_state"
//	@Failure		404			{object}	authsdk.ErrorResponse		"unknown_provider"
//	@Failure		409			{object}	authsdk.ErrorResponse		"linkage_conflict or mfa_required"
//	@Router			/v1/auth/oauth/{provider}/callback [get].
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("error") != "" {
		// the user declined at the provider
		authsdk.ErrInvalidState.WriteError(w)
		return
	}

	res, err := h.OAuth.Complete(r.Context(), r.PathValue("provider"), q.Get("state"), q.Get("code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeLoginResult(w, res)
}
