package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/aussiebroadwan/devhub/pkg/idx"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
)

// AccountService holds the self-service flows around an identity: signup,
// email verification and password reset.
type AccountService struct {
	Store        store.Store
	Verification *TokenLifecycle
	Reset        *TokenLifecycle
	Mailer       Mailer
	Now          func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Signup creates an unverified identity and mails its verification token.
func (s *AccountService) Signup(ctx context.Context, username, email, password string) (ident domain.Identity, err error) {
	ctx, span := startSpan(ctx, "AccountService.Signup")
	defer func() { endSpan(span, err) }()

	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)

	if err := ValidateUsername(username); err != nil {
		return domain.Identity{}, err
	}
	if err := ValidateEmail(email); err != nil {
		return domain.Identity{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return domain.Identity{}, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	ident = domain.Identity{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var token string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Identities().Create(ctx, ident); err != nil {
			return err
		}
		var issueErr error
		token, issueErr = s.Verification.issue(ctx, tx.Identities(), ident)
		return issueErr
	})
	if err != nil {
		switch store.ConflictColumn(err) {
		case "email":
			return domain.Identity{}, ErrEmailTaken
		case "username":
			return domain.Identity{}, ErrUsernameTaken
		}
		return domain.Identity{}, fmt.Errorf("failed to create identity: %w", err)
	}

	slogx.FromContext(ctx).Info("identity created", slog.String("identity_id", ident.ID))
	s.send(ctx, ident, token, s.Mailer.SendVerificationEmail)
	return ident, nil
}

// VerifyEmail redeems a verification token.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (domain.Identity, error) {
	ident, err := s.Verification.Consume(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}
	slogx.FromContext(ctx).Info("email verified", slog.String("identity_id", ident.ID))
	return ident, nil
}

// ResendVerification issues a fresh token for an unverified identity. It
// reports success whether or not the address belongs to anyone.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	ident, ok, err := s.lookup(ctx, email)
	if err != nil || !ok || ident.IsEmailVerified {
		return err
	}

	token, err := s.Verification.Issue(ctx, ident)
	if err != nil {
		return err
	}
	s.send(ctx, ident, token, s.Mailer.SendVerificationEmail)
	return nil
}

// ForgotPassword mails a reset token when the address is known. Like
// ResendVerification it never reveals whether it was.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	ident, ok, err := s.lookup(ctx, email)
	if err != nil || !ok {
		return err
	}

	token, err := s.Reset.Issue(ctx, ident)
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("password reset requested", slog.String("identity_id", ident.ID))
	s.send(ctx, ident, token, s.Mailer.SendPasswordResetEmail)
	return nil
}

// ResetPassword redeems a reset token and replaces the password.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) (domain.Identity, error) {
	if err := ValidatePassword(newPassword); err != nil {
		return domain.Identity{}, err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	ident, err := s.Reset.ConsumeReset(ctx, token, hash)
	if err != nil {
		return domain.Identity{}, err
	}
	slogx.FromContext(ctx).Info("password reset", slog.String("identity_id", ident.ID))
	return ident, nil
}

// Profile returns the identity behind an authenticated session.
func (s *AccountService) Profile(ctx context.Context, identityID string) (domain.Identity, error) {
	ident, err := s.Store.Identities().GetByID(ctx, identityID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Identity{}, ErrInvalidCredentials
	}
	return ident, err
}

func (s *AccountService) lookup(ctx context.Context, email string) (domain.Identity, bool, error) {
	ident, err := s.Store.Identities().GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Identity{}, false, nil
	}
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("failed to look up identity: %w", err)
	}
	return ident, true, nil
}

// send hands the token to the mailer. Delivery failures are logged and
// never fail the flow that issued the token.
func (s *AccountService) send(ctx context.Context, ident domain.Identity, token string, fn func(context.Context, string, string) error) {
	if err := fn(ctx, ident.Email, token); err != nil {
		slogx.FromContext(ctx).Error("failed to dispatch mail",
			slog.String("identity_id", ident.ID),
			slog.Any("error", err),
		)
	}
}
