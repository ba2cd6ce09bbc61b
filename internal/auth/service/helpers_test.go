package service_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/aussiebroadwan/devhub/pkg/jwtx"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://identity.devhub.test"

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "devhub-service-test-pepper")
	os.Remove(pepperPath)
	cryptox.SetPepperPath(pepperPath)

	code := m.Run()
	os.Remove(pepperPath)
	os.Exit(code)
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "identity.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

// clock is a settable time source shared by every component under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

// newClock starts 20s into a 30s TOTP step.
func newClock() *clock {
	return &clock{now: time.Unix(1_700_000_000, 0).UTC()}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	return m.Called(ctx, to, token).Error(0)
}

func (m *mockMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	return m.Called(ctx, to, token).Error(0)
}

// capture records the token passed to the mocked call.
func capture(dst *string) func(mock.Arguments) {
	return func(args mock.Arguments) { *dst = args.String(2) }
}

func newCipher(t *testing.T) *cryptox.SecretCipher {
	t.Helper()
	key, err := cryptox.GenerateSecretKey()
	require.NoError(t, err)
	c, err := cryptox.NewSecretCipher(key)
	require.NoError(t, err)
	return c
}

func newSessionIssuer(t *testing.T) (*service.SessionIssuer, *jwtx.KeyManager) {
	t.Helper()
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:   testIssuer,
		Audience: []string{"devhub"},
		NumKeys:  1,
	})
	require.NoError(t, err)
	return &service.SessionIssuer{
		KeyManager: km,
		Issuer:     testIssuer,
		Audience:   []string{"devhub"},
		TTL:        time.Hour,
	}, km
}

// harness wires the services the way the app does, against one store.
type harness struct {
	t      *testing.T
	clock  *clock
	store  *sqlite.Store
	mailer *mockMailer
	keys   *jwtx.KeyManager

	totp     *service.TOTPManager
	accounts *service.AccountService
	login    *service.LoginOrchestrator
	mfa      *service.MFAService
	linker   *service.FederatedIdentityLinker
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clk := newClock()
	st := newTestStore(t)
	mailer := &mockMailer{}
	sessions, km := newSessionIssuer(t)

	verification := service.NewEmailVerificationTokens(st)
	verification.Now = clk.Now
	reset := service.NewPasswordResetTokens(st)
	reset.Now = clk.Now

	totpManager := &service.TOTPManager{Store: st, Cipher: newCipher(t), Issuer: "DevHub", Now: clk.Now}

	return &harness{
		t:      t,
		clock:  clk,
		store:  st,
		mailer: mailer,
		keys:   km,
		totp:   totpManager,
		accounts: &service.AccountService{
			Store:        st,
			Verification: verification,
			Reset:        reset,
			Mailer:       mailer,
			Now:          clk.Now,
		},
		login: &service.LoginOrchestrator{
			Store:      st,
			Challenges: st.Challenges(),
			Passwords:  &service.PasswordAuthenticator{Store: st},
			TOTP:       totpManager,
			Sessions:   sessions,
			Now:        clk.Now,
		},
		mfa: &service.MFAService{
			Store:      st,
			Challenges: st.Challenges(),
			TOTP:       totpManager,
			Now:        clk.Now,
		},
		linker: &service.FederatedIdentityLinker{Store: st, Now: clk.Now},
	}
}

// signup creates an identity and returns it with its verification token.
func (h *harness) signup(username, email, password string) (domain.Identity, string) {
	h.t.Helper()

	var token string
	h.mailer.On("SendVerificationEmail", mock.Anything, service.NormalizeEmail(email), mock.Anything).
		Return(nil).Once().Run(capture(&token))

	ident, err := h.accounts.Signup(context.Background(), username, email, password)
	require.NoError(h.t, err)
	require.Len(h.t, token, 64)
	return ident, token
}

// verifiedIdentity signs up and verifies in one step.
func (h *harness) verifiedIdentity(username, email, password string) domain.Identity {
	h.t.Helper()
	_, token := h.signup(username, email, password)
	ident, err := h.accounts.VerifyEmail(context.Background(), token)
	require.NoError(h.t, err)
	return ident
}

// enableTOTP enrolls ident and returns the plaintext secret.
func (h *harness) enableTOTP(ident domain.Identity) string {
	h.t.Helper()
	ctx := context.Background()

	enr, err := h.mfa.BeginEnrollment(ctx, ident.ID)
	require.NoError(h.t, err)
	require.NoError(h.t, h.mfa.ConfirmEnrollment(ctx, ident.ID, enr.EnrollmentToken, codeAt(h.t, enr.Secret, h.clock.Now())))
	return enr.Secret
}

func (h *harness) reload(id string) domain.Identity {
	h.t.Helper()
	ident, err := h.store.Identities().GetByID(context.Background(), id)
	require.NoError(h.t, err)
	return ident
}

// requireTwoFactorInvariant checks the flag and the encrypted secret move
// together.
func requireTwoFactorInvariant(t *testing.T, ident domain.Identity) {
	t.Helper()
	require.Equal(t, ident.TwoFactorEnabled, ident.TOTPSecret != nil,
		"two_factor_enabled=%v but secret set=%v", ident.TwoFactorEnabled, ident.TOTPSecret != nil)
}
