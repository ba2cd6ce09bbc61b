package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"go.opentelemetry.io/otel/attribute"
)

// tokenBytes is the entropy of an emailed token; it is sent as 64 hex chars.
const tokenBytes = cryptox.TokenSize256

// TokenLifecycle issues and consumes the single-use tokens of one purpose.
// Only the SHA-256 fingerprint of a token is stored, and each identity has at
// most one live token per purpose: issuing again overwrites the previous one.
type TokenLifecycle struct {
	Store   store.Store
	Purpose domain.TokenPurpose
	TTL     time.Duration
	Now     func() time.Time
}

// NewEmailVerificationTokens returns the 24h email verification lifecycle.
func NewEmailVerificationTokens(st store.Store) *TokenLifecycle {
	return &TokenLifecycle{Store: st, Purpose: domain.PurposeEmailVerification, TTL: domain.PurposeEmailVerification.TTL()}
}

// NewPasswordResetTokens returns the 1h password reset lifecycle.
func NewPasswordResetTokens(st store.Store) *TokenLifecycle {
	return &TokenLifecycle{Store: st, Purpose: domain.PurposePasswordReset, TTL: domain.PurposePasswordReset.TTL()}
}

func (t *TokenLifecycle) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Issue generates a fresh token for ident and returns it for out-of-band
// delivery. The caller never gets another chance to read it.
func (t *TokenLifecycle) Issue(ctx context.Context, ident domain.Identity) (string, error) {
	return t.issue(ctx, t.Store.Identities(), ident)
}

func (t *TokenLifecycle) issue(ctx context.Context, repo store.Identities, ident domain.Identity) (token string, err error) {
	ctx, span := startSpan(ctx, "TokenLifecycle.Issue", attribute.String("token.purpose", string(t.Purpose)))
	defer func() { endSpan(span, err) }()

	token, err = cryptox.GenerateHexToken(tokenBytes)
	if err != nil {
		return "", err
	}

	expiresAt := t.now().Add(t.TTL)
	if err := repo.SetToken(ctx, ident.ID, t.Purpose, cryptox.FingerprintToken(token), expiresAt); err != nil {
		return "", fmt.Errorf("failed to store %s token: %w", t.Purpose, err)
	}
	return token, nil
}

// Consume redeems an email verification token and marks the identity
// verified. Unknown and expired tokens are indistinguishable.
func (t *TokenLifecycle) Consume(ctx context.Context, token string) (ident domain.Identity, err error) {
	ctx, span := startSpan(ctx, "TokenLifecycle.Consume", attribute.String("token.purpose", string(t.Purpose)))
	defer func() { endSpan(span, err) }()

	if t.Purpose != domain.PurposeEmailVerification {
		return domain.Identity{}, fmt.Errorf("consume is not defined for %s tokens", t.Purpose)
	}

	fp, ok := fingerprint(token)
	if !ok {
		return domain.Identity{}, ErrInvalidOrExpiredToken
	}

	ident, err = t.Store.Identities().ConsumeEmailVerification(ctx, fp, t.now())
	return ident, mapConsumeErr(err)
}

// ConsumeReset redeems a password reset token and stores passwordHash in the
// same statement.
func (t *TokenLifecycle) ConsumeReset(ctx context.Context, token, passwordHash string) (ident domain.Identity, err error) {
	ctx, span := startSpan(ctx, "TokenLifecycle.ConsumeReset", attribute.String("token.purpose", string(t.Purpose)))
	defer func() { endSpan(span, err) }()

	if t.Purpose != domain.PurposePasswordReset {
		return domain.Identity{}, fmt.Errorf("consume reset is not defined for %s tokens", t.Purpose)
	}

	fp, ok := fingerprint(token)
	if !ok {
		return domain.Identity{}, ErrInvalidOrExpiredToken
	}

	ident, err = t.Store.Identities().ConsumePasswordReset(ctx, fp, passwordHash, t.now())
	return ident, mapConsumeErr(err)
}

func fingerprint(token string) (string, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return "", false
	}
	return cryptox.FingerprintToken(token), true
}

func mapConsumeErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidOrExpiredToken
	}
	return err
}
