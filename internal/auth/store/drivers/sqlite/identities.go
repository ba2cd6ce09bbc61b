package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/aussiebroadwan/devhub/internal/auth/store/drivers/sqlite/gen"
)

type identitiesRepo struct {
	q *gen.Queries
}

func (r *identitiesRepo) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	row, err := r.q.GetIdentityByID(ctx, id)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) GetByEmail(ctx context.Context, email string) (domain.Identity, error) {
	row, err := r.q.GetIdentityByEmail(ctx, email)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) GetByUsername(ctx context.Context, username string) (domain.Identity, error) {
	row, err := r.q.GetIdentityByUsername(ctx, username)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) GetByProviderID(ctx context.Context, p domain.Provider, providerUserID string) (domain.Identity, error) {
	var (
		row gen.Identity
		err error
	)
	switch p {
	case domain.ProviderGitHub:
		row, err = r.q.GetIdentityByGithubID(ctx, providerUserID)
	case domain.ProviderGoogle:
		row, err = r.q.GetIdentityByGoogleID(ctx, providerUserID)
	default:
		return domain.Identity{}, fmt.Errorf("unsupported provider %q", p)
	}
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) Create(ctx context.Context, i domain.Identity) error {
	now := time.Now()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = i.CreatedAt
	}

	err := r.q.CreateIdentity(ctx, gen.CreateIdentityParams{
		ID:               i.ID,
		Username:         i.Username,
		Email:            i.Email,
		PasswordHash:     i.PasswordHash,
		GithubID:         mapOptionalString(i.GitHubID),
		GoogleID:         mapOptionalString(i.GoogleID),
		AvatarUrl:        i.AvatarURL,
		IsEmailVerified:  i.IsEmailVerified,
		TwoFactorEnabled: i.TwoFactorEnabled,
		TotpSecret:       mapOptionalString(i.TOTPSecret),
		IsAdmin:          i.IsAdmin,
		IsSuspended:      i.IsSuspended,
		IsVerified:       i.IsVerified,
		CreatedAt:        toMillis(i.CreatedAt),
		UpdatedAt:        toMillis(i.UpdatedAt),
	})
	return mapConstraint(err)
}

func (r *identitiesRepo) Update(ctx context.Context, i domain.Identity) error {
	n, err := r.q.UpdateIdentity(ctx, gen.UpdateIdentityParams{
		Username:        i.Username,
		Email:           i.Email,
		AvatarUrl:       i.AvatarURL,
		IsEmailVerified: i.IsEmailVerified,
		IsAdmin:         i.IsAdmin,
		IsSuspended:     i.IsSuspended,
		IsVerified:      i.IsVerified,
		UpdatedAt:       toMillis(time.Now()),
		ID:              i.ID,
	})
	if err != nil {
		return mapConstraint(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *identitiesRepo) LinkProvider(ctx context.Context, id string, p domain.Provider, providerUserID, avatarURL string) (domain.Identity, error) {
	arg := gen.LinkProviderParams{
		ProviderUserID: providerUserID,
		AvatarUrl:      avatarURL,
		UpdatedAt:      toMillis(time.Now()),
		ID:             id,
	}

	var (
		row gen.Identity
		err error
	)
	switch p {
	case domain.ProviderGitHub:
		row, err = r.q.LinkGitHub(ctx, arg)
	case domain.ProviderGoogle:
		row, err = r.q.LinkGoogle(ctx, arg)
	default:
		return domain.Identity{}, fmt.Errorf("unsupported provider %q", p)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Identity{}, r.conflictOrNotFound(ctx, id)
	}
	if err != nil {
		return domain.Identity{}, mapConstraint(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) SetToken(
	ctx context.Context,
	id string,
	purpose domain.TokenPurpose,
	fingerprint string,
	expiresAt time.Time,
) error {
	arg := gen.SetTokenParams{
		Token:     fingerprint,
		ExpiresAt: toMillis(expiresAt),
		UpdatedAt: toMillis(time.Now()),
		ID:        id,
	}

	var (
		n   int64
		err error
	)
	switch purpose {
	case domain.PurposeEmailVerification:
		n, err = r.q.SetEmailVerificationToken(ctx, arg)
	case domain.PurposePasswordReset:
		n, err = r.q.SetPasswordResetToken(ctx, arg)
	default:
		return fmt.Errorf("unsupported token purpose %q", purpose)
	}
	if err != nil {
		return mapConstraint(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *identitiesRepo) ConsumeEmailVerification(ctx context.Context, fingerprint string, now time.Time) (domain.Identity, error) {
	row, err := r.q.ConsumeEmailVerificationToken(ctx, gen.ConsumeTokenParams{
		UpdatedAt: toMillis(now),
		Token:     fingerprint,
		Now:       toMillis(now),
	})
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) ConsumePasswordReset(ctx context.Context, fingerprint, passwordHash string, now time.Time) (domain.Identity, error) {
	row, err := r.q.ConsumePasswordResetToken(ctx, gen.ConsumePasswordResetTokenParams{
		PasswordHash: passwordHash,
		UpdatedAt:    toMillis(now),
		Token:        fingerprint,
		Now:          toMillis(now),
	})
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return mapIdentity(row), nil
}

func (r *identitiesRepo) EnableTwoFactor(ctx context.Context, id, encryptedSecret string) error {
	n, err := r.q.EnableTwoFactor(ctx, gen.EnableTwoFactorParams{
		TotpSecret: encryptedSecret,
		UpdatedAt:  toMillis(time.Now()),
		ID:         id,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return r.conflictOrNotFound(ctx, id)
	}
	return nil
}

func (r *identitiesRepo) DisableTwoFactor(ctx context.Context, id string) error {
	n, err := r.q.DisableTwoFactor(ctx, toMillis(time.Now()), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return r.conflictOrNotFound(ctx, id)
	}
	return nil
}

// conflictOrNotFound explains a conditional update that matched no rows.
func (r *identitiesRepo) conflictOrNotFound(ctx context.Context, id string) error {
	if _, err := r.q.GetIdentityByID(ctx, id); err != nil {
		return mapNotFound(err)
	}
	return store.ErrConflict
}

func (r *identitiesRepo) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	ms := toMillis(now)
	a, err := r.q.ClearExpiredEmailVerificationTokens(ctx, ms)
	if err != nil {
		return 0, err
	}
	b, err := r.q.ClearExpiredPasswordResetTokens(ctx, ms)
	if err != nil {
		return a, err
	}
	return a + b, nil
}
