package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/pkg/idx"
	"github.com/aussiebroadwan/devhub/pkg/jwtx"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
)

// SessionEstablisher is called exactly once per login, at the moment the
// login becomes authenticated.
type SessionEstablisher interface {
	EstablishSession(ctx context.Context, ident domain.Identity, amr []string) (domain.Session, error)
}

// SessionIssuer mints EdDSA session tokens from the process key manager.
type SessionIssuer struct {
	KeyManager *jwtx.KeyManager
	Issuer     string
	Audience   []string
	TTL        time.Duration
	Now        func() time.Time
}

var _ SessionEstablisher = (*SessionIssuer)(nil)

// EstablishSession refuses unverified and suspended identities regardless
// of how the caller got here.
func (s *SessionIssuer) EstablishSession(ctx context.Context, ident domain.Identity, amr []string) (sess domain.Session, err error) {
	ctx, span := startSpan(ctx, "SessionIssuer.EstablishSession")
	defer func() { endSpan(span, err) }()

	if !ident.IsEmailVerified {
		return domain.Session{}, ErrEmailNotVerified
	}
	if ident.IsSuspended {
		return domain.Session{}, ErrAccountSuspended
	}

	signer := s.KeyManager.GetSigner()
	if signer == nil {
		return domain.Session{}, fmt.Errorf("no signing key available")
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	claims := jwtx.NewSessionClaims(jwtx.SessionParams{
		Subject:  ident.ID,
		SID:      idx.New().String(),
		AMR:      amr,
		Username: ident.Username,
		Email:    ident.Email,
		Admin:    ident.IsAdmin,
		Issuer:   s.Issuer,
		Audience: s.Audience,
		TTL:      ttl,
		Now:      now,
	})

	token, err := signer.Sign(claims)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	slogx.FromContext(ctx).Info("session established",
		slog.String("identity_id", ident.ID),
		slog.String("sid", claims.SID),
		slog.Any("amr", amr),
	)

	return domain.Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   ttl,
		ExpiresAt:   now.Add(ttl),
		AMR:         amr,
	}, nil
}
