package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	httpapi "github.com/aussiebroadwan/devhub/internal/auth/http"
	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	redisstore "github.com/aussiebroadwan/devhub/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/devhub/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/aussiebroadwan/devhub/pkg/jwtx"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
)

const serviceName = "identity"

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the identity service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db              *sqlite.Store
	challenges      store.Challenges
	redis           *redisstore.ChallengeStore // nil unless AUTH_CHALLENGE_STORE=redis
	keyManager      *jwtx.KeyManager
	cipher          *cryptox.SecretCipher
	shutdownTracing func(context.Context) error

	// Services
	mailer       *service.AsyncMailer
	accounts     *service.AccountService
	login        *service.LoginOrchestrator
	oauth        *service.OAuthService
	mfa          *service.MFAService
	housekeeping *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	shutdownTracing, err := SetupTracing(ctx, cfg, serviceName, BuildVersion)
	if err != nil {
		return nil, err
	}
	app.shutdownTracing = shutdownTracing

	cryptox.SetPepperPath(cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initChallengeStore(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if app.keyManager, err = InitSessionKeys(cfg, app.logger); err != nil {
		app.closeStores()
		return nil, err
	}
	if app.cipher, err = InitSecretCipher(cfg, app.logger); err != nil {
		app.closeStores()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.mailer.Start()
	app.housekeeping.Start()

	app.logger.Info("identity service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"challenge_store", app.cfg.ChallengeStore,
		"mail_driver", app.cfg.MailDriver,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()
	// drain queued mail before the process exits
	app.mailer.Stop()

	if err := app.shutdownTracing(ctx); err != nil {
		app.logger.Error("error flushing traces", "error", err)
	}

	if err := app.closeStores(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

// databaseDSN enables foreign keys and WAL for the modernc driver.
func databaseDSN(file string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", file)
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(databaseDSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

// initChallengeStore picks where pending second factors, enrollments and
// OAuth state live. Redis lets several replicas share them.
func (app *Application) initChallengeStore(ctx context.Context) error {
	if app.cfg.ChallengeStore != ChallengeStoreRedis {
		app.challenges = app.db.Challenges()
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := redisstore.Open(pingCtx, app.cfg.RedisURL, app.cfg.RedisPrefix)
	if err != nil {
		return fmt.Errorf("failed to connect challenge store: %w", err)
	}
	app.redis = rdb
	app.challenges = rdb

	app.logger.Info("challenge store connected", "driver", "redis")
	return nil
}

func (app *Application) closeStores() error {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}
	return app.db.Close()
}

func (app *Application) newMailer() service.Mailer {
	if app.cfg.MailDriver == MailDriverSMTP {
		return &service.SMTPMailer{
			Host:      app.cfg.SMTPHost,
			Port:      app.cfg.SMTPPort,
			Username:  app.cfg.SMTPUsername,
			Password:  app.cfg.SMTPPassword,
			From:      app.cfg.SMTPFrom,
			PublicURL: app.cfg.PublicURL,
		}
	}

	return &service.LogMailer{Logger: app.logger, PublicURL: app.cfg.PublicURL}
}

func (app *Application) oauthProviders() map[domain.Provider]service.OAuthProvider {
	providers := map[domain.Provider]service.OAuthProvider{}

	github := service.OAuthClientConfig{
		ClientID:     app.cfg.GitHubClientID,
		ClientSecret: app.cfg.GitHubClientSecret,
		RedirectURL:  app.cfg.GitHubRedirectURL,
	}
	if github.Enabled() {
		providers[domain.ProviderGitHub] = service.NewGitHubProvider(github)
	}

	google := service.OAuthClientConfig{
		ClientID:     app.cfg.GoogleClientID,
		ClientSecret: app.cfg.GoogleClientSecret,
		RedirectURL:  app.cfg.GoogleRedirectURL,
	}
	if google.Enabled() {
		providers[domain.ProviderGoogle] = service.NewGoogleProvider(google)
	}

	for p := range providers {
		app.logger.Info("oauth provider enabled", "provider", p)
	}
	return providers
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.mailer = service.NewAsyncMailer(app.newMailer(), app.logger, app.cfg.MailWorkers, app.cfg.MailQueueSize)

	app.accounts = &service.AccountService{
		Store:        app.db,
		Verification: service.NewEmailVerificationTokens(app.db),
		Reset:        service.NewPasswordResetTokens(app.db),
		Mailer:       app.mailer,
	}

	totp := &service.TOTPManager{
		Store:  app.db,
		Cipher: app.cipher,
		Issuer: app.cfg.TOTPIssuer,
	}

	app.login = &service.LoginOrchestrator{
		Store:      app.db,
		Challenges: app.challenges,
		Passwords:  &service.PasswordAuthenticator{Store: app.db},
		TOTP:       totp,
		Sessions: &service.SessionIssuer{
			KeyManager: app.keyManager,
			Issuer:     app.cfg.Issuer,
			Audience:   app.cfg.Audience,
			TTL:        app.cfg.SessionTTL,
		},
	}

	app.oauth = &service.OAuthService{
		Providers:  app.oauthProviders(),
		Challenges: app.challenges,
		Linker:     &service.FederatedIdentityLinker{Store: app.db},
		Login:      app.login,
	}

	app.mfa = &service.MFAService{
		Store:      app.db,
		Challenges: app.challenges,
		TOTP:       totp,
	}

	app.housekeeping = service.NewHousekeepingService(
		app.db,
		app.challenges,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		BuildVersion,
		app.logger,
	)

	router.Accounts = app.accounts
	router.Login = app.login
	router.OAuth = app.oauth
	router.MFA = app.mfa

	router.Readiness["database"] = app.db
	if app.redis != nil {
		router.Readiness["challenge_store"] = app.redis
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Migrate applies the schema migrations and exits. It is the `identity
// migrate` command.
func Migrate(cfg Config) error {
	logger := slogx.New(slogx.Config{
		Service: serviceName,
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	db, err := sqlite.NewStore(databaseDSN(cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	version, dirty, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("database migrations applied successfully",
		"file", cfg.DatabaseFile,
		"schema_version", version,
		"dirty", dirty,
	)
	return nil
}
