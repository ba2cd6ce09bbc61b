package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// OAuthStateTTL bounds the time between redirect and callback.
const OAuthStateTTL = 10 * time.Minute

// OAuthProvider is one external identity provider.
type OAuthProvider interface {
	Name() domain.Provider
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (domain.ProviderProfile, error)
}

// OAuthClientConfig is the registration of this service at a provider.
type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (c OAuthClientConfig) Enabled() bool { return c.ClientID != "" }

func (c OAuthClientConfig) oauth2Config(ep oauth2.Endpoint, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     ep,
		Scopes:       scopes,
	}
}

// GitHubProvider reads the profile from the REST API. GitHub has no
// email_verified claim, so only a primary verified address from
// /user/emails is trusted.
type GitHubProvider struct {
	cfg     *oauth2.Config
	APIBase string
}

func NewGitHubProvider(c OAuthClientConfig) *GitHubProvider {
	return &GitHubProvider{
		cfg:     c.oauth2Config(endpoints.GitHub, "read:user", "user:email"),
		APIBase: "https://api.github.com",
	}
}

// WithEndpoint points the provider at another authorization server.
func (p *GitHubProvider) WithEndpoint(ep oauth2.Endpoint, apiBase string) *GitHubProvider {
	p.cfg.Endpoint = ep
	p.APIBase = strings.TrimRight(apiBase, "/")
	return p
}

func (p *GitHubProvider) Name() domain.Provider { return domain.ProviderGitHub }

func (p *GitHubProvider) AuthCodeURL(state, verifier string) string {
	return p.cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (p *GitHubProvider) Exchange(ctx context.Context, code, verifier string) (domain.ProviderProfile, error) {
	tok, err := p.cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("github: code exchange: %w", err)
	}
	client := p.cfg.Client(ctx, tok)

	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, p.APIBase+"/user", &user); err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("github: %w", err)
	}
	if user.ID == 0 {
		return domain.ProviderProfile{}, errors.New("github: missing user id")
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, p.APIBase+"/user/emails", &emails); err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("github: %w", err)
	}

	profile := domain.ProviderProfile{
		Provider:       domain.ProviderGitHub,
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		DisplayName:    user.Name,
		Login:          user.Login,
		AvatarURL:      user.AvatarURL,
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			profile.Email = NormalizeEmail(e.Email)
			break
		}
	}
	return profile, nil
}

// GoogleProvider reads the OIDC userinfo endpoint and keeps the email only
// when Google marks it verified.
type GoogleProvider struct {
	cfg         *oauth2.Config
	UserInfoURL string
}

func NewGoogleProvider(c OAuthClientConfig) *GoogleProvider {
	return &GoogleProvider{
		cfg:         c.oauth2Config(endpoints.Google, "openid", "email", "profile"),
		UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
	}
}

// WithEndpoint points the provider at another authorization server.
func (p *GoogleProvider) WithEndpoint(ep oauth2.Endpoint, userInfoURL string) *GoogleProvider {
	p.cfg.Endpoint = ep
	p.UserInfoURL = userInfoURL
	return p
}

func (p *GoogleProvider) Name() domain.Provider { return domain.ProviderGoogle }

func (p *GoogleProvider) AuthCodeURL(state, verifier string) string {
	return p.cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (p *GoogleProvider) Exchange(ctx context.Context, code, verifier string) (domain.ProviderProfile, error) {
	tok, err := p.cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("google: code exchange: %w", err)
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, p.cfg.Client(ctx, tok), p.UserInfoURL, &info); err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("google: %w", err)
	}
	if info.Sub == "" {
		return domain.ProviderProfile{}, errors.New("google: missing subject")
	}

	profile := domain.ProviderProfile{
		Provider:       domain.ProviderGoogle,
		ProviderUserID: info.Sub,
		DisplayName:    info.Name,
		AvatarURL:      info.Picture,
	}
	if info.EmailVerified {
		profile.Email = NormalizeEmail(info.Email)
	}
	return profile, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(dst)
}

type oauthState struct {
	Provider domain.Provider `json:"provider"`
	Verifier string          `json:"verifier"`
}

// OAuthService runs the authorization code flow with PKCE. The state value
// is a single-use challenge handle; the verifier never leaves the server.
type OAuthService struct {
	Providers  map[domain.Provider]OAuthProvider
	Challenges store.Challenges
	Linker     *FederatedIdentityLinker
	Login      *LoginOrchestrator
	Now        func() time.Time
}

func (s *OAuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *OAuthService) provider(name string) (OAuthProvider, error) {
	p, err := domain.ParseProvider(name)
	if err != nil {
		return nil, ErrUnknownProvider
	}
	prov, ok := s.Providers[p]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return prov, nil
}

// Begin returns the provider URL to redirect the browser to.
func (s *OAuthService) Begin(ctx context.Context, providerName string) (authURL string, err error) {
	ctx, span := startSpan(ctx, "OAuthService.Begin", attribute.String("oauth.provider", providerName))
	defer func() { endSpan(span, err) }()

	prov, err := s.provider(providerName)
	if err != nil {
		return "", err
	}

	state, err := cryptox.GenerateToken(challengeHandleBytes)
	if err != nil {
		return "", err
	}
	verifier := oauth2.GenerateVerifier()

	payload, err := json.Marshal(oauthState{Provider: prov.Name(), Verifier: verifier})
	if err != nil {
		return "", err
	}

	now := s.now()
	err = s.Challenges.CreateChallenge(ctx, domain.Challenge{
		ID:        cryptox.FingerprintToken(state),
		Kind:      domain.ChallengeOAuthState,
		Payload:   string(payload),
		CreatedAt: now,
		ExpiresAt: now.Add(OAuthStateTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	return prov.AuthCodeURL(state, verifier), nil
}

// Complete handles the provider callback: it redeems state, exchanges the
// code, resolves the identity and continues the login like a password step
// would.
func (s *OAuthService) Complete(ctx context.Context, providerName, state, code string) (res domain.LoginResult, err error) {
	ctx, span := startSpan(ctx, "OAuthService.Complete", attribute.String("oauth.provider", providerName))
	defer func() { endSpan(span, err) }()

	l := slogx.FromContext(ctx)

	prov, err := s.provider(providerName)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if state == "" || code == "" {
		return domain.LoginResult{}, ErrOAuthStateInvalid
	}

	ch, err := s.Challenges.TakeChallenge(ctx, domain.ChallengeOAuthState, cryptox.FingerprintToken(state), s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrOAuthStateInvalid
		}
		return domain.LoginResult{}, fmt.Errorf("failed to load oauth state: %w", err)
	}

	var st oauthState
	if err := json.Unmarshal([]byte(ch.Payload), &st); err != nil || st.Provider != prov.Name() {
		return domain.LoginResult{}, ErrOAuthStateInvalid
	}

	profile, err := prov.Exchange(ctx, code, st.Verifier)
	if err != nil {
		l.Warn("oauth exchange failed", slog.String("provider", string(prov.Name())), slog.Any("error", err))
		return domain.LoginResult{}, ErrOAuthStateInvalid
	}

	ident, err := s.Linker.Resolve(ctx, profile)
	if err != nil {
		return domain.LoginResult{}, err
	}

	return s.Login.CompleteFederated(ctx, ident)
}
