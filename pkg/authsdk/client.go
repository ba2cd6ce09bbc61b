package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the devhub identity service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new identity service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			// OAuth start answers with a redirect the caller wants to see.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// AuthenticateWithPassword logs in and returns a Session. When the identity
// has two-factor enabled the error is a *MFARequiredError; finish with
// CompleteMFALogin.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.Login(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return newSession(c, resp), nil
}

// CompleteMFALogin submits the TOTP code for a pending login.
func (c *SDKClient) CompleteMFALogin(ctx context.Context, mfa *MFARequiredError, code string) (*Session, error) {
	resp, err := c.LoginMFA(ctx, MFALoginRequest{MFAToken: mfa.MFAToken, Code: code})
	if err != nil {
		return nil, err
	}
	return newSession(c, resp), nil
}

// NewSessionFromToken wraps an access token obtained elsewhere (e.g. an
// OAuth callback).
func (c *SDKClient) NewSessionFromToken(accessToken string, expiresIn int) *Session {
	return newSession(c, &SessionResponse{AccessToken: accessToken, TokenType: "Bearer", ExpiresIn: expiresIn})
}
