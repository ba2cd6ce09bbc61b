package authsdk

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/devhub/pkg/jwtx"
)

// GetJWKS retrieves the JSON Web Key Set for session token verification.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}

	return &jwks, nil
}

// NewVerifier fetches the JWKS and returns a verifier other services can use
// to check session tokens offline.
func (c *SDKClient) NewVerifier(ctx context.Context, issuer string, audience []string) (*jwtx.EdDSAVerifier, error) {
	jwks, err := c.GetJWKS(ctx)
	if err != nil {
		return nil, err
	}

	keys := jwtx.NewKeySet()
	if err := keys.ResetFromJWKS(jwtx.JWKS(*jwks)); err != nil {
		return nil, err
	}
	return jwtx.NewVerifierEdDSA(keys, issuer, audience), nil
}
