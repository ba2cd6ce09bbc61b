package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
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

const (
	placeholderEmailDomain = "users.noreply.devhub.invalid"
	usernameSuffixAttempts = 5
	usernameSuffixBase     = MaxUsernameLength - 5
)

// FederatedIdentityLinker maps a provider assertion onto exactly one
// identity: an existing link, an account with the same email, or a new
// password-less account.
type FederatedIdentityLinker struct {
	Store store.Store
	Now   func() time.Time
}

// Resolve returns the identity for profile, linking or creating as needed.
// It never replaces an identity's existing link to a different account at
// the same provider.
func (l *FederatedIdentityLinker) Resolve(ctx context.Context, profile domain.ProviderProfile) (ident domain.Identity, err error) {
	ctx, span := startSpan(ctx, "FederatedIdentityLinker.Resolve")
	defer func() { endSpan(span, err) }()

	if profile.ProviderUserID == "" {
		return domain.Identity{}, fmt.Errorf("provider %s returned no user id", profile.Provider)
	}
	repo := l.Store.Identities()

	// 1. already linked
	ident, err = repo.GetByProviderID(ctx, profile.Provider, profile.ProviderUserID)
	if err == nil {
		return ident, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Identity{}, fmt.Errorf("failed to look up provider link: %w", err)
	}

	email := NormalizeEmail(profile.Email)
	if email != "" && ValidateEmail(email) != nil {
		email = ""
	}

	// 2. merge into the account owning the asserted email
	if email != "" {
		ident, err = repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return l.link(ctx, ident, profile)
		case !errors.Is(err, store.ErrNotFound):
			return domain.Identity{}, fmt.Errorf("failed to look up identity: %w", err)
		}
	}

	// 3. new account
	return l.create(ctx, profile, email)
}

func (l *FederatedIdentityLinker) link(ctx context.Context, ident domain.Identity, profile domain.ProviderProfile) (domain.Identity, error) {
	logger := slogx.FromContext(ctx).With(
		slog.String("identity_id", ident.ID),
		slog.String("provider", string(profile.Provider)),
	)

	if existing := ident.ProviderID(profile.Provider); existing != nil && *existing != profile.ProviderUserID {
		logger.Warn("provider link conflict")
		return domain.Identity{}, ErrLinkageConflict
	}

	// The read above may be stale; the store only writes the link while the
	// slot is still empty or already ours.
	linked, err := l.Store.Identities().LinkProvider(ctx, ident.ID, profile.Provider, profile.ProviderUserID, profile.AvatarURL)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrAlreadyExists), errors.Is(err, store.ErrNotFound):
		logger.Warn("provider link conflict", slog.Any("error", err))
		return domain.Identity{}, ErrLinkageConflict
	default:
		return domain.Identity{}, fmt.Errorf("failed to link identity: %w", err)
	}

	logger.Info("provider linked")
	return linked, nil
}

func (l *FederatedIdentityLinker) create(ctx context.Context, profile domain.ProviderProfile, email string) (domain.Identity, error) {
	if email == "" {
		email = PlaceholderEmail(profile.Provider, profile.ProviderUserID)
	}

	hash, err := cryptox.UnusablePasswordHash()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to generate placeholder password: %w", err)
	}

	now := time.Now().UTC()
	if l.Now != nil {
		now = l.Now().UTC()
	}

	ident := domain.Identity{
		ID:              idx.NewAt(now).String(),
		Email:           email,
		PasswordHash:    hash,
		AvatarURL:       profile.AvatarURL,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	ident.SetProviderID(profile.Provider, profile.ProviderUserID)

	base := SynthesizeUsername(profile)
	for attempt := 0; attempt <= usernameSuffixAttempts; attempt++ {
		ident.Username = base
		if attempt > 0 {
			ident.Username = withRandomSuffix(base)
		}

		err = l.Store.Identities().Create(ctx, ident)
		if err == nil {
			slogx.FromContext(ctx).Info("identity created from provider",
				slog.String("identity_id", ident.ID),
				slog.String("provider", string(profile.Provider)),
			)
			return ident, nil
		}
		if store.ConflictColumn(err) != "username" {
			break
		}
	}

	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a race with a concurrent callback for the same email or
		// provider account, or ran out of username candidates.
		return domain.Identity{}, ErrLinkageConflict
	}
	return domain.Identity{}, fmt.Errorf("failed to create identity: %w", err)
}

// PlaceholderEmail is the address given to accounts whose provider did not
// disclose a verified email. The .invalid TLD never routes.
func PlaceholderEmail(p domain.Provider, providerUserID string) string {
	return NormalizeEmail(fmt.Sprintf("%s-%s@%s", p, providerUserID, placeholderEmailDomain))
}

// SynthesizeUsername derives a valid username from the profile: display
// name, then provider login, then email local part.
func SynthesizeUsername(profile domain.ProviderProfile) string {
	candidates := []string{profile.DisplayName, profile.Login}
	if at := strings.IndexByte(profile.Email, '@'); at > 0 {
		candidates = append(candidates, profile.Email[:at])
	}

	var name string
	for _, c := range candidates {
		if name = sanitizeUsername(c); name != "" {
			break
		}
	}
	if name == "" {
		name = "user"
	}

	if len(name) > MaxUsernameLength {
		name = name[:MaxUsernameLength]
	}
	for len(name) < MinUsernameLength {
		name += "_"
	}
	return name
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_.-")
}

func withRandomSuffix(base string) string {
	if len(base) > usernameSuffixBase {
		base = base[:usernameSuffixBase]
	}
	var buf [2]byte
	_, _ = rand.Read(buf[:])
	return base + "_" + hex.EncodeToString(buf[:])
}
