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
	"github.com/aussiebroadwan/devhub/pkg/jwtx"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
)

const (
	// SecondFactorTTL bounds how long a password-verified login may wait
	// for its TOTP code.
	SecondFactorTTL = 5 * time.Minute

	// MaxSecondFactorAttempts is the number of wrong codes a pending second
	// factor absorbs before it is discarded.
	MaxSecondFactorAttempts = 5

	challengeHandleBytes = cryptox.TokenSize256
)

// LoginOrchestrator drives a login from password (or provider assertion)
// to an established session. A session is only ever established once every
// enabled factor has been checked.
type LoginOrchestrator struct {
	Store      store.Store
	Challenges store.Challenges
	Passwords  *PasswordAuthenticator
	TOTP       *TOTPManager
	Sessions   SessionEstablisher
	Now        func() time.Time
}

func (o *LoginOrchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// SubmitPassword checks email and password. The result either carries a
// session or, when two-factor is enabled, the challenge handle for
// SubmitSecondFactor.
func (o *LoginOrchestrator) SubmitPassword(ctx context.Context, email, password string) (res domain.LoginResult, err error) {
	ctx, span := startSpan(ctx, "LoginOrchestrator.SubmitPassword")
	defer func() { endSpan(span, err) }()

	l := slogx.FromContext(ctx)

	ident, err := o.Passwords.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			l.Info("login rejected", slog.String("reason", "invalid_credentials"))
		}
		return domain.LoginResult{}, err
	}

	if !ident.IsEmailVerified {
		l.Info("login rejected", slog.String("identity_id", ident.ID), slog.String("reason", "email_not_verified"))
		return domain.LoginResult{}, ErrEmailNotVerified
	}

	return o.firstFactorPassed(ctx, ident, jwtx.AMRPassword)
}

// CompleteFederated continues a login whose first factor was asserted by an
// external provider. Two-factor identities still owe a TOTP code.
func (o *LoginOrchestrator) CompleteFederated(ctx context.Context, ident domain.Identity) (domain.LoginResult, error) {
	if !ident.IsEmailVerified {
		return domain.LoginResult{}, ErrEmailNotVerified
	}
	return o.firstFactorPassed(ctx, ident, jwtx.AMRFederated)
}

func (o *LoginOrchestrator) firstFactorPassed(ctx context.Context, ident domain.Identity, method string) (domain.LoginResult, error) {
	if ident.IsSuspended {
		slogx.FromContext(ctx).Warn("login rejected",
			slog.String("identity_id", ident.ID),
			slog.String("reason", "account_suspended"),
		)
		return domain.LoginResult{}, ErrAccountSuspended
	}

	if !ident.TwoFactorEnabled {
		sess, err := o.Sessions.EstablishSession(ctx, ident, []string{method})
		if err != nil {
			return domain.LoginResult{}, err
		}
		return domain.LoginResult{Identity: ident, Session: &sess}, nil
	}

	handle, err := cryptox.GenerateToken(challengeHandleBytes)
	if err != nil {
		return domain.LoginResult{}, err
	}

	now := o.now()
	ch := domain.Challenge{
		ID:         cryptox.FingerprintToken(handle),
		Kind:       domain.ChallengeSecondFactor,
		IdentityID: ident.ID,
		Payload:    method,
		CreatedAt:  now,
		ExpiresAt:  now.Add(SecondFactorTTL),
	}
	if err := o.Challenges.CreateChallenge(ctx, ch); err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to store second factor challenge: %w", err)
	}

	slogx.FromContext(ctx).Info("second factor required", slog.String("identity_id", ident.ID))

	return domain.LoginResult{
		Identity: ident,
		Challenge: &domain.MFAChallenge{
			MFARequired: true,
			MFAToken:    handle,
			Methods:     []string{"totp"},
			ExpiresAt:   ch.ExpiresAt,
		},
	}, nil
}

// SubmitSecondFactor redeems the handle returned by a first factor with a
// TOTP code. Every submission uses up one attempt; a wrong code keeps the
// handle usable until the cap is reached and a right one consumes it.
func (o *LoginOrchestrator) SubmitSecondFactor(ctx context.Context, mfaToken, code string) (res domain.LoginResult, err error) {
	ctx, span := startSpan(ctx, "LoginOrchestrator.SubmitSecondFactor")
	defer func() { endSpan(span, err) }()

	l := slogx.FromContext(ctx)

	mfaToken = strings.TrimSpace(mfaToken)
	if mfaToken == "" {
		return domain.LoginResult{}, ErrInvalidOrExpiredToken
	}
	id := cryptox.FingerprintToken(mfaToken)
	now := o.now()

	// The attempt is counted before the code is looked at, so concurrent
	// guesses cannot all read the same count and slip past the cap.
	ch, err := o.Challenges.IncrementChallengeAttempts(ctx, domain.ChallengeSecondFactor, id, now)
	if err != nil {
		return domain.LoginResult{}, mapChallengeErr(err)
	}
	if ch.Attempts > MaxSecondFactorAttempts {
		o.discard(ctx, ch)
		return domain.LoginResult{}, ErrInvalidOrExpiredToken
	}

	ident, err := o.Store.Identities().GetByID(ctx, ch.IdentityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			o.discard(ctx, ch)
			return domain.LoginResult{}, ErrInvalidOrExpiredToken
		}
		return domain.LoginResult{}, fmt.Errorf("failed to load identity: %w", err)
	}

	if err := o.TOTP.VerifyLoginCode(ctx, ident, code); err != nil {
		if errors.Is(err, ErrMFANotEnabled) {
			// Two-factor was turned off after the password step.
			o.discard(ctx, ch)
			return domain.LoginResult{}, ErrInvalidOrExpiredToken
		}
		if !errors.Is(err, ErrInvalidCode) {
			return domain.LoginResult{}, err
		}

		if ch.Attempts >= MaxSecondFactorAttempts {
			l.Warn("second factor attempts exhausted", slog.String("identity_id", ident.ID))
			o.discard(ctx, ch)
		} else {
			l.Info("second factor rejected", slog.String("identity_id", ident.ID), slog.Int("attempts", ch.Attempts))
		}
		return domain.LoginResult{}, ErrInvalidCode
	}

	// Only one concurrent submission of a valid code gets the session.
	if _, err := o.Challenges.TakeChallenge(ctx, ch.Kind, ch.ID, now); err != nil {
		return domain.LoginResult{}, mapChallengeErr(err)
	}

	if ident.IsSuspended {
		return domain.LoginResult{}, ErrAccountSuspended
	}

	first := ch.Payload
	if first == "" {
		first = jwtx.AMRPassword
	}
	sess, err := o.Sessions.EstablishSession(ctx, ident, []string{first, jwtx.AMROTP, jwtx.AMRMFA})
	if err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginResult{Identity: ident, Session: &sess}, nil
}

func (o *LoginOrchestrator) discard(ctx context.Context, ch domain.Challenge) {
	if err := o.Challenges.DeleteChallenge(ctx, ch.Kind, ch.ID); err != nil {
		slogx.FromContext(ctx).Error("failed to discard challenge",
			slog.String("kind", string(ch.Kind)),
			slog.Any("error", err),
		)
	}
}

func mapChallengeErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidOrExpiredToken
	}
	return fmt.Errorf("failed to load challenge: %w", err)
}
