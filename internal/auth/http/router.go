package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/service"
	"github.com/aussiebroadwan/devhub/pkg/httpx"
	"github.com/aussiebroadwan/devhub/pkg/jwtx"
	"github.com/aussiebroadwan/devhub/pkg/slogx"

	_ "github.com/aussiebroadwan/devhub/api/identity" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	// Readiness lists the dependencies /readyz pings, by check name.
	Readiness map[string]Pinger

	Accounts *service.AccountService
	Login    *service.LoginOrchestrator
	OAuth    *service.OAuthService
	MFA      *service.MFAService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Readiness:    map[string]Pinger{},
	}

	// Tracing wraps logging so request logs carry the trace id.
	r.middlewares = []httpx.Middleware{
		otelhttp.NewMiddleware("identity"),
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccount()
	r.registerLogin()
	r.registerOAuth()
	r.registerMFA()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			DevHub Identity Service API
//	@version		0.1.0
//	@description	Accounts, password and federated login, TOTP two-factor and session issuance for DevHub.
//	@description
//	@description				Session tokens are EdDSA (Ed25519) JWTs and can be verified using the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/devhub
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAccount() {
	h := &AccountHandler{Accounts: r.Accounts}

	// signup - strict by IP, each call creates a row and sends mail
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/email/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyEmail),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// resend/forgot send mail, so limit per address as well as per IP
	r.Mux.Handle("POST /v1/auth/email/resend",
		httpx.Chain(http.HandlerFunc(h.HandleResendVerification),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	me := &MeHandler{Accounts: r.Accounts}
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(me,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByIdentity(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerLogin() {
	h := &LoginHandler{Login: r.Login}

	// Rate limited by IP + email to slow down credential stuffing
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	// The orchestrator also caps attempts per mfa_token.
	r.Mux.Handle("POST /v1/auth/login/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleLoginMFA),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerOAuth() {
	h := &OAuthHandler{OAuth: r.OAuth}

	r.Mux.Handle("GET /v1/auth/oauth/{provider}/start",
		httpx.Chain(http.HandlerFunc(h.HandleStart),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/auth/oauth/{provider}/callback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFA: r.MFA}

	// POST /mfa/enroll - moderate rate limit by identity
	securedEnroll := httpx.Chain(http.HandlerFunc(h.HandleEnroll),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByIdentity(httpx.ModerateLimit),
	)

	// confirm and disable take TOTP codes - strict
	securedConfirm := httpx.Chain(http.HandlerFunc(h.HandleConfirm),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByIdentity(httpx.StrictLimit),
	)
	securedDisable := httpx.Chain(http.HandlerFunc(h.HandleDisable),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByIdentity(httpx.StrictLimit),
	)

	r.Mux.Handle("POST /v1/mfa/enroll", securedEnroll)
	r.Mux.Handle("POST /v1/mfa/enroll/confirm", securedConfirm)
	r.Mux.Handle("POST /v1/mfa/disable", securedDisable)
}

func (r *Router) registerSystem() {
	// GET /jwks.json - public endpoint with high limit
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.Readiness, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
