package http

import (
	"net/http"

	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/pkg/authsdk"
	"github.com/aussiebroadwan/devhub/pkg/httpx"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
)

// AccountHandler serves signup, email verification and password reset.
type AccountHandler struct {
	Accounts *service.AccountService
}

// HandleSignup handles POST /v1/auth/signup
//
//	@Summary		Create an account
//	@Description	Creates an unverified identity and emails a verification token. The email is stored lowercased.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignupRequest	true	"Username, email and password"
//	@Success		201		{object}	authsdk.SignupResponse	"Identity created"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_username, invalid_email or weak_password"
//	@Failure		409		{object}	authsdk.ErrorResponse	"username_taken or email_taken"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limit exceeded"
//	@Router			/v1/auth/signup [post].
func (h *AccountHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignupRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	ident, err := h.Accounts.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.SignupResponse{ID: ident.ID})
}

// HandleVerifyEmail handles POST /v1/auth/email/verify
//
//	@Summary		Verify an email address
//	@Description	Consumes an emailed verification token. Unknown and expired tokens get the same answer.
//	@Tags			Account
//	@Accept			json
//	@Param			request	body	authsdk.TokenRequest	true	"Verification token"
//	@Success		204		"Email verified"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/v1/auth/email/verify [post].
func (h *AccountHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req authsdk.TokenRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if _, err := h.Accounts.VerifyEmail(r.Context(), req.Token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleResendVerification handles POST /v1/auth/email/resend
//
//	@Summary		Resend the verification email
//	@Description	Always answers 202 so the response does not reveal whether the address is registered.
//	@Tags			Account
//	@Accept			json
//	@Param			request	body	authsdk.EmailRequest	true	"Email address"
//	@Success		202		"Accepted"
//	@Router			/v1/auth/email/resend [post].
func (h *AccountHandler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req authsdk.EmailRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Accounts.ResendVerification(r.Context(), req.Email); err != nil {
		slogx.FromContext(r.Context()).Error("resend verification failed", "err", err)
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleForgotPassword handles POST /v1/auth/password/forgot
//
//	@Summary		Request a password reset
//	@Description	Emails a reset token valid for one hour. Always answers 202.
//	@Tags			Account
//	@Accept			json
//	@Param			request	body	authsdk.EmailRequest	true	"Email address"
//	@Success		202		"Accepted"
//	@Router			/v1/auth/password/forgot [post].
func (h *AccountHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.EmailRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		slogx.FromContext(r.Context()).Error("forgot password failed", "err", err)
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleResetPassword handles POST /v1/auth/password/reset
//
//	@Summary		Reset a password
//	@Description	Consumes a reset token and sets the new password.
//	@Tags			Account
//	@Accept			json
//	@Param			request	body	authsdk.ResetPasswordRequest	true	"Reset token and new password"
//	@Success		204		"Password changed"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_token or weak_password"
//	@Router			/v1/auth/password/reset [post].
func (h *AccountHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if _, err := h.Accounts.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
