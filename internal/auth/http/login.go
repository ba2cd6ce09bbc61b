package http

import (
	"net/http"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/pkg/authsdk"
	"github.com/aussiebroadwan/devhub/pkg/httpx"
)

// LoginHandler serves the password and second-factor steps.
type LoginHandler struct {
	Login *service.LoginOrchestrator
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Sign in with email and password
//	@Description	Returns a session, or 409 mfa_required with an mfa_token when two-factor is enabled.
//	@Tags			Login
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest		true	"Credentials"
//	@Success		200		{object}	authsdk.SessionResponse		"Authenticated"
//	@Failure		401		{object}	authsdk.ErrorResponse		"invalid_credentials"
//	@Failure		403		{object}	authsdk.ErrorResponse		"email_not_verified or account_suspended"
//	@Failure		409		{object}	authsdk.MFARequiredError	"mfa_required"
//	@Failure		429		{object}	authsdk.ErrorResponse		"Rate limit exceeded"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.Login.SubmitPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeLoginResult(w, res)
}

// HandleLoginMFA handles POST /v1/auth/login/mfa
//
//	@Summary		Complete sign-in with a TOTP code
//	@Description	Redeems the mfa_token from a 409 mfa_required answer. A wrong code may be retried until the attempt cap.
//	@Tags			Login
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.MFALoginRequest	true	"MFA token and code"
//	@Success		200		{object}	authsdk.SessionResponse	"Authenticated"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_code"
//	@Router			/v1/auth/login/mfa [post].
func (h *LoginHandler) HandleLoginMFA(w http.ResponseWriter, r *http.Request) {
	var req authsdk.MFALoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.Login.SubmitSecondFactor(r.Context(), req.MFAToken, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeLoginResult(w, res)
}

func writeLoginResult(w http.ResponseWriter, res domain.LoginResult) {
	if res.MFARequired() {
		(&service.MFARequiredError{
			MFAToken: res.Challenge.MFAToken,
			Methods:  res.Challenge.Methods,
		}).WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SessionResponse{
		AccessToken: res.Session.AccessToken,
		TokenType:   res.Session.TokenType,
		ExpiresIn:   int(res.Session.ExpiresIn.Seconds()),
		IdentityID:  res.Identity.ID,
		AMR:         res.Session.AMR,
	})
}
