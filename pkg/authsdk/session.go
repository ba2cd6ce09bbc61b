package authsdk

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrSessionExpired is returned by Session methods once the access token
// has passed its expiry. Sessions are not refreshable; log in again.
var ErrSessionExpired = errors.New("session expired")

// Session represents an authenticated identity holding a bearer token.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	identityID  string
	amr         []string
	expiresAt   time.Time
}

// newSession creates a new authenticated session from a session response.
func newSession(client *SDKClient, resp *SessionResponse) *Session {
	// Subtract a small buffer so requests are not sent with a token that
	// expires in flight.
	expiresAt := time.Now().Add(time.Duration(resp.ExpiresIn)*time.Second - 30*time.Second)

	return &Session{
		client:      client,
		accessToken: resp.AccessToken,
		identityID:  resp.IdentityID,
		amr:         resp.AMR,
		expiresAt:   expiresAt,
	}
}

// AccessToken returns the raw bearer token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// IdentityID returns the identity the session belongs to, when known.
func (s *Session) IdentityID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identityID
}

// AMR returns the authentication methods recorded for this session.
func (s *Session) AMR() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.amr...)
}

func (s *Session) validToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.accessToken == "" || time.Now().After(s.expiresAt) {
		return "", ErrSessionExpired
	}
	return s.accessToken, nil
}

// Me returns the authenticated identity's profile.
func (s *Session) Me(ctx context.Context) (*ProfileResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/me", nil)
	if err != nil {
		return nil, err
	}

	var profile ProfileResponse
	if err := decodeJSON(resp, &profile, http.StatusOK); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.identityID = profile.ID
	s.mu.Unlock()

	return &profile, nil
}

// EnrollMFA starts TOTP enrollment.
func (s *Session) EnrollMFA(ctx context.Context) (*MFAEnrollResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/mfa/enroll", nil)
	if err != nil {
		return nil, err
	}

	var out MFAEnrollResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmMFA finishes enrollment with a code generated from the secret.
func (s *Session) ConfirmMFA(ctx context.Context, enrollmentToken, code string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/mfa/enroll/confirm", MFAConfirmRequest{
		EnrollmentToken: enrollmentToken,
		Code:            code,
	})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// DisableMFA turns two-factor off.
func (s *Session) DisableMFA(ctx context.Context, code string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/mfa/disable", MFADisableRequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}
