package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/aussiebroadwan/devhub/pkg/cryptox"
	"github.com/aussiebroadwan/devhub/pkg/slogx"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 6
	MaxPasswordLength = 128
	maxEmailLength    = 254
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,30}$`)

// NormalizeEmail trims and lowercases an address. Every lookup and write
// goes through it so the stored form is canonical.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername enforces 3-30 characters of [A-Za-z0-9_.-].
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateEmail expects an already-normalized address.
func ValidateEmail(email string) error {
	if email == "" || len(email) > maxEmailLength {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndexByte(email, '@'):], ".") {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword is applied when a password is chosen, never at login.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// PasswordAuthenticator checks email+password pairs. It is read-only.
type PasswordAuthenticator struct {
	Store store.Store

	dummyOnce sync.Once
	dummyHash string
}

// Verify returns the identity owning email when password matches. An unknown
// email and a wrong password both yield ErrInvalidCredentials, and an unknown
// email still pays for one hash verification.
func (a *PasswordAuthenticator) Verify(ctx context.Context, email, password string) (domain.Identity, error) {
	l := slogx.FromContext(ctx)
	email = NormalizeEmail(email)

	ident, err := a.Store.Identities().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifyPassword(password, a.dummy())
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, fmt.Errorf("failed to look up identity: %w", err)
	}

	if err := cryptox.VerifyPassword(password, ident.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("stored password hash could not be verified",
				slog.String("identity_id", ident.ID),
				slog.Any("error", err),
			)
		}
		return domain.Identity{}, ErrInvalidCredentials
	}

	return ident, nil
}

func (a *PasswordAuthenticator) dummy() string {
	a.dummyOnce.Do(func() {
		h, err := cryptox.UnusablePasswordHash()
		if err == nil {
			a.dummyHash = h
		}
	})
	return a.dummyHash
}
