package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/caarlos0/env/v11"
)

const (
	EnvDev        = "dev"
	EnvStaging    = "staging"
	EnvProduction = "production"

	ChallengeStoreSQLite = "sqlite"
	ChallengeStoreRedis  = "redis"

	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"
)

type Config struct {
	Env                  string        `env:"ENV" envDefault:"dev"`                    // dev, staging, production
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`             // debug, info, warn, error
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`            // json, text
	Port                 int           `env:"PORT" envDefault:"8080"`                  // HTTP server port
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`  // Graceful shutdown timeout
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`   // Expired challenge/token purge
	OTLPEndpoint         string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`             // Tracing is off when empty

	Issuer       string        `env:"AUTH_ISSUER" envDefault:"devhub-identity"`
	Audience     []string      `env:"AUTH_AUDIENCE" envDefault:"devhub" envSeparator:","`
	SessionTTL   time.Duration `env:"AUTH_SESSION_TTL" envDefault:"12h"`
	NumKeys      int           `env:"AUTH_NUM_KEYS" envDefault:"3"`
	DatabaseFile string        `env:"AUTH_DATABASE_FILE" envDefault:"identity.db"`
	PepperFile   string        `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`
	PublicURL    string        `env:"AUTH_PUBLIC_URL" envDefault:"http://localhost:8080"` // base for links in mail

	TOTPIssuer        string `env:"AUTH_TOTP_ISSUER" envDefault:"DevHub"`
	TOTPEncryptionKey string `env:"AUTH_TOTP_ENCRYPTION_KEY"` // 64 hex chars or base64 of 32 bytes

	ChallengeStore string `env:"AUTH_CHALLENGE_STORE" envDefault:"sqlite"` // sqlite, redis
	RedisURL       string `env:"AUTH_REDIS_URL"`
	RedisPrefix    string `env:"AUTH_REDIS_PREFIX" envDefault:"identity:"`

	MailDriver    string `env:"AUTH_MAIL_DRIVER" envDefault:"log"` // log, smtp
	MailWorkers   int    `env:"AUTH_MAIL_WORKERS" envDefault:"2"`
	MailQueueSize int    `env:"AUTH_MAIL_QUEUE_SIZE" envDefault:"256"`
	SMTPHost      string `env:"AUTH_SMTP_HOST"`
	SMTPPort      int    `env:"AUTH_SMTP_PORT" envDefault:"587"`
	SMTPUsername  string `env:"AUTH_SMTP_USERNAME"`
	SMTPPassword  string `env:"AUTH_SMTP_PASSWORD"`
	SMTPFrom      string `env:"AUTH_SMTP_FROM" envDefault:"DevHub <no-reply@devhub.local>"`

	GitHubClientID     string `env:"AUTH_GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"AUTH_GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string `env:"AUTH_GITHUB_REDIRECT_URL"`
	GoogleClientID     string `env:"AUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"AUTH_GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"AUTH_GOOGLE_REDIRECT_URL"`
}

// ConfigurationError reports a setting the service refuses to start with.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// LoadConfig reads the environment. The result is not yet validated.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool { return c.Env == EnvProduction }

// Validate checks settings that cannot be fixed up at runtime. Outside
// production a missing TOTP encryption key is tolerated; see
// InitSecretCipher.
func (c Config) Validate() error {
	switch c.Env {
	case EnvDev, EnvStaging, EnvProduction:
	default:
		return &ConfigurationError{Field: "ENV", Reason: fmt.Sprintf("unknown environment %q", c.Env)}
	}

	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigurationError{Field: "PORT", Reason: "must be between 1 and 65535"}
	}
	if c.SessionTTL <= 0 {
		return &ConfigurationError{Field: "AUTH_SESSION_TTL", Reason: "must be positive"}
	}
	if c.NumKeys < 1 || c.NumKeys > 10 {
		return &ConfigurationError{Field: "AUTH_NUM_KEYS", Reason: "must be between 1 and 10"}
	}

	if c.IsProduction() {
		if strings.TrimSpace(c.TOTPEncryptionKey) == "" {
			return &ConfigurationError{Field: "AUTH_TOTP_ENCRYPTION_KEY", Reason: "required in production"}
		}
		if _, err := cryptox.ParseSecretKey(c.TOTPEncryptionKey); err != nil {
			return &ConfigurationError{Field: "AUTH_TOTP_ENCRYPTION_KEY", Reason: "must be 64 hex characters or base64 of 32 bytes"}
		}
	}

	switch c.ChallengeStore {
	case ChallengeStoreSQLite:
	case ChallengeStoreRedis:
		if c.RedisURL == "" {
			return &ConfigurationError{Field: "AUTH_REDIS_URL", Reason: "required when AUTH_CHALLENGE_STORE=redis"}
		}
	default:
		return &ConfigurationError{Field: "AUTH_CHALLENGE_STORE", Reason: fmt.Sprintf("unknown store %q", c.ChallengeStore)}
	}

	switch c.MailDriver {
	case MailDriverLog:
		// The log driver writes verification and reset links in clear.
		if c.IsProduction() {
			return &ConfigurationError{Field: "AUTH_MAIL_DRIVER", Reason: "log driver is not allowed in production"}
		}
	case MailDriverSMTP:
		if c.SMTPHost == "" {
			return &ConfigurationError{Field: "AUTH_SMTP_HOST", Reason: "required when AUTH_MAIL_DRIVER=smtp"}
		}
	default:
		return &ConfigurationError{Field: "AUTH_MAIL_DRIVER", Reason: fmt.Sprintf("unknown driver %q", c.MailDriver)}
	}
	if c.MailWorkers < 1 {
		return &ConfigurationError{Field: "AUTH_MAIL_WORKERS", Reason: "must be at least 1"}
	}

	return nil
}
