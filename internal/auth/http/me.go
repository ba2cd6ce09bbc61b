package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/pkg/authsdk"
	"github.com/aussiebroadwan/devhub/pkg/httpx"
)

// MeHandler returns the authenticated identity's profile.
type MeHandler struct {
	Accounts *service.AccountService
}

// ServeHTTP handles GET /v1/me
//
//	@Summary		Get own profile
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.ProfileResponse	"Profile"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identityID := httpx.IdentityIDFromContext(r.Context())
	if identityID == "" {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	ident, err := h.Accounts.Profile(r.Context(), identityID)
	if err != nil {
		// a deleted identity holding a still-valid token
		if errors.Is(err, service.ErrInvalidCredentials) {
			authsdk.ErrUnauthorized.WriteError(w)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, profileResponse(ident))
}

func profileResponse(ident domain.Identity) authsdk.ProfileResponse {
	linked := []string{}
	for _, p := range domain.Providers {
		if ident.ProviderID(p) != nil {
			linked = append(linked, string(p))
		}
	}

	return authsdk.ProfileResponse{
		ID:               ident.ID,
		Username:         ident.Username,
		Email:            ident.Email,
		AvatarURL:        ident.AvatarURL,
		IsEmailVerified:  ident.IsEmailVerified,
		TwoFactorEnabled: ident.TwoFactorEnabled,
		IsAdmin:          ident.IsAdmin,
		IsVerified:       ident.IsVerified,
		LinkedProviders:  linked,
		CreatedAt:        ident.CreatedAt,
	}
}
