package http

import (
	"net/http"

	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/pkg/authsdk"
	"github.com/aussiebroadwan/devhub/pkg/httpx"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
)

// MFAHandler handles TOTP enrollment and removal for the signed-in identity.
type MFAHandler struct {
	MFA *service.MFAService
}

// HandleEnroll handles POST /v1/mfa/enroll
//
//	@Summary		Start TOTP enrollment
//	@Description	Generates a TOTP secret and returns it with an otpauth URL and QR code. Two-factor stays off until confirmed.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MFAEnrollResponse	"Secret, provisioning URL and QR code"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		409	{object}	authsdk.ErrorResponse		"mfa_already_enabled"
//	@Router			/v1/mfa/enroll [post].
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	enr, err := h.MFA.BeginEnrollment(ctx, identityID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("mfa enrollment started", "identity_id", identityID)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MFAEnrollResponse{
		EnrollmentToken: enr.EnrollmentToken,
		Secret:          enr.Secret,
		OTPAuthURL:      enr.OTPAuthURL,
		QRCode:          enr.QRCode,
		Issuer:          enr.Issuer,
		Account:         enr.Account,
		ExpiresAt:       enr.ExpiresAt,
	})
}

// HandleConfirm handles POST /v1/mfa/enroll/confirm
//
//	@Summary		Confirm TOTP enrollment
//	@Description	Checks a code generated from the pending secret and enables two-factor.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.MFAConfirmRequest	true	"Enrollment token and code"
//	@Success		204		"Two-factor enabled"
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_code"
//	@Failure		409		{object}	authsdk.ErrorResponse	"mfa_already_enabled"
//	@Router			/v1/mfa/enroll/confirm [post].
func (h *MFAHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	var req authsdk.MFAConfirmRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.MFA.ConfirmEnrollment(ctx, identityID, req.EnrollmentToken, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("mfa enabled", "identity_id", identityID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDisable handles POST /v1/mfa/disable
//
//	@Summary		Disable TOTP
//	@Description	Turns two-factor off. A current code is required.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.MFADisableRequest	true	"Current code"
//	@Success		204		"Two-factor disabled"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_code"
//	@Failure		409		{object}	authsdk.ErrorResponse	"mfa_not_enabled"
//	@Router			/v1/mfa/disable [post].
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	var req authsdk.MFADisableRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.MFA.Disable(ctx, identityID, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("mfa disabled", "identity_id", identityID)
	w.WriteHeader(http.StatusNoContent)
}
