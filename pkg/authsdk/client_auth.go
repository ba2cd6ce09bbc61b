package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Signup creates an unverified identity and triggers the verification email.
func (c *SDKClient) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/signup", req)
	if err != nil {
		return nil, err
	}

	var out SignupResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyEmail consumes an email verification token.
func (c *SDKClient) VerifyEmail(ctx context.Context, token string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/email/verify", TokenRequest{Token: token})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// ResendVerification always succeeds from the caller's point of view.
func (c *SDKClient) ResendVerification(ctx context.Context, email string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/email/resend", EmailRequest{Email: email})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusAccepted)
}

// ForgotPassword always succeeds from the caller's point of view.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/password/forgot", EmailRequest{Email: email})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusAccepted)
}

// ResetPassword consumes a reset token and sets a new password.
func (c *SDKClient) ResetPassword(ctx context.Context, token, password string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/password/reset", ResetPasswordRequest{Token: token, Password: password})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// Login performs the password step. A *MFARequiredError means a second
// factor is owed.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", req)
	if err != nil {
		return nil, err
	}

	var out SessionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginMFA performs the second-factor step.
func (c *SDKClient) LoginMFA(ctx context.Context, req MFALoginRequest) (*SessionResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login/mfa", req)
	if err != nil {
		return nil, err
	}

	var out SessionResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// OAuthStartURL asks the service to begin a federated login and returns the
// provider authorization URL it redirects to.
func (c *SDKClient) OAuthStartURL(ctx context.Context, provider string) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/auth/oauth/"+url.PathEscape(provider)+"/start", nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return "", readError(resp)
	}
	return resp.Header.Get("Location"), nil
}
