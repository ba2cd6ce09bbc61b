package http_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	authhttp "github.com/aussiebroadwan/devhub/internal/auth/http"
	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/devhub/pkg/authsdk"
	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/aussiebroadwan/devhub/pkg/jwtx"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://identity.devhub.test"

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "devhub-http-test-pepper")
	os.Remove(pepperPath)
	cryptox.SetPepperPath(pepperPath)

	code := m.Run()
	os.Remove(pepperPath)
	os.Exit(code)
}

// outbox records every token the services mail out, keyed by address.
type outbox struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
}

func newOutbox() *outbox {
	return &outbox{verification: map[string]string{}, reset: map[string]string{}}
}

func (o *outbox) SendVerificationEmail(_ context.Context, to, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verification[to] = token
	return nil
}

func (o *outbox) SendPasswordResetEmail(_ context.Context, to, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset[to] = token
	return nil
}

func (o *outbox) verificationToken(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.verification[to]
}

func (o *outbox) resetToken(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reset[to]
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	t      *testing.T
	srv    *httptest.Server
	client *authsdk.SDKClient
	router *authhttp.Router
	store  *sqlite.Store
	mail   *outbox
}

// newTestServer wires the router the way the app does, on wall-clock time
// so issued tokens pass the verifier.
func newTestServer(t *testing.T, providers ...service.OAuthProvider) *testServer {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "identity.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:   testIssuer,
		Audience: []string{"devhub"},
		NumKeys:  1,
	})
	require.NoError(t, err)

	key, err := cryptox.GenerateSecretKey()
	require.NoError(t, err)
	cipher, err := cryptox.NewSecretCipher(key)
	require.NoError(t, err)

	mail := newOutbox()
	totpManager := &service.TOTPManager{Store: st, Cipher: cipher, Issuer: "DevHub"}
	login := &service.LoginOrchestrator{
		Store:      st,
		Challenges: st.Challenges(),
		Passwords:  &service.PasswordAuthenticator{Store: st},
		TOTP:       totpManager,
		Sessions: &service.SessionIssuer{
			KeyManager: km,
			Issuer:     testIssuer,
			Audience:   []string{"devhub"},
			TTL:        time.Hour,
		},
	}

	oauthProviders := map[domain.Provider]service.OAuthProvider{}
	for _, p := range providers {
		oauthProviders[p.Name()] = p
	}

	router := authhttp.NewRouter(km.KeySet, km.Verifier, "test", slogx.Discard())
	router.Accounts = &service.AccountService{
		Store:        st,
		Verification: service.NewEmailVerificationTokens(st),
		Reset:        service.NewPasswordResetTokens(st),
		Mailer:       mail,
	}
	router.Login = login
	router.MFA = &service.MFAService{Store: st, Challenges: st.Challenges(), TOTP: totpManager}
	router.OAuth = &service.OAuthService{
		Providers:  oauthProviders,
		Challenges: st.Challenges(),
		Linker:     &service.FederatedIdentityLinker{Store: st},
		Login:      login,
	}
	router.Readiness["database"] = st
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{
		t:      t,
		srv:    srv,
		client: authsdk.NewSDKClient(srv.URL),
		router: router,
		store:  st,
		mail:   mail,
	}
}

// verifiedAccount signs up over HTTP and redeems the mailed token.
func (s *testServer) verifiedAccount(username, email, password string) string {
	s.t.Helper()
	ctx := context.Background()

	resp, err := s.client.Signup(ctx, authsdk.SignupRequest{Username: username, Email: email, Password: password})
	require.NoError(s.t, err)

	token := s.mail.verificationToken(service.NormalizeEmail(email))
	require.NotEmpty(s.t, token)
	require.NoError(s.t, s.client.VerifyEmail(ctx, token))
	return resp.ID
}
