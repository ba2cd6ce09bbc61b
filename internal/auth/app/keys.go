package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/aussiebroadwan/devhub/pkg/jwtx"
)

// InitSessionKeys generates the Ed25519 signing keys for session tokens.
//
// Keys live only in memory: every session issued before a restart stops
// verifying once the process is replaced. Other services fetch the current
// public keys from /.well-known/jwks.json.
func InitSessionKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	logger.Info("initializing ephemeral key manager", "num_keys", cfg.NumKeys)

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		NumKeys:  cfg.NumKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
	}

	logger.Info("generated ephemeral signing keys",
		"num_keys", keyManager.NumSigners(),
		"issuer", cfg.Issuer,
	)
	logger.Warn("sessions issued before this start are no longer valid")

	return keyManager, nil
}

// InitSecretCipher builds the cipher protecting stored TOTP secrets.
//
// Production refuses to start without a valid key (Validate enforces that).
// Elsewhere a missing or malformed key is replaced by a random one, which
// leaves every secret enrolled under it unreadable after a restart.
func InitSecretCipher(cfg Config, logger *slog.Logger) (*cryptox.SecretCipher, error) {
	key, err := cryptox.ParseSecretKey(cfg.TOTPEncryptionKey)
	if err != nil {
		if cfg.IsProduction() {
			return nil, &ConfigurationError{Field: "AUTH_TOTP_ENCRYPTION_KEY", Reason: "must be 64 hex characters or base64 of 32 bytes"}
		}

		logger.Warn("AUTH_TOTP_ENCRYPTION_KEY missing or invalid, using an ephemeral key; enrolled TOTP secrets will not survive a restart",
			"env", cfg.Env,
		)
		if key, err = cryptox.GenerateSecretKey(); err != nil {
			return nil, err
		}
	}

	return cryptox.NewSecretCipher(key)
}
