package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/devhub/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned when a conditional write finds the row in a
	// state other than the one the caller expected.
	ErrConflict = errors.New("store: conflict")

	// ErrNestedTx is returned by Tx on a store that is already a transaction.
	ErrNestedTx = errors.New("store: nested transaction")
)

// ConflictColumn returns the column named by an ErrAlreadyExists error
// ("email", "username", "github_id", ...), or "" for any other error.
func ConflictColumn(err error) string {
	if !errors.Is(err, ErrAlreadyExists) {
		return ""
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return ""
}

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable, and so a
// Tx-scoped Store can hand out the same repos bound to the transaction.
type Store interface {
	Identities() Identities
	Challenges() Challenges

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// Called on a Tx, fn joins the open transaction.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Identities interface {
	// GetByID returns an identity by id.
	GetByID(ctx context.Context, id string) (domain.Identity, error)

	// GetByEmail looks up by the lowercased email.
	GetByEmail(ctx context.Context, email string) (domain.Identity, error)

	// GetByUsername is case-insensitive.
	GetByUsername(ctx context.Context, username string) (domain.Identity, error)

	// GetByProviderID returns the identity linked to an external account.
	GetByProviderID(ctx context.Context, p domain.Provider, providerUserID string) (domain.Identity, error)

	// Create inserts a new identity. A unique violation on email, username or
	// a provider id is reported as ErrAlreadyExists wrapped with the column.
	Create(ctx context.Context, i domain.Identity) error

	// Update writes the profile and flag columns and bumps updated_at. It
	// never touches the password hash, tokens, provider links or two-factor
	// columns.
	Update(ctx context.Context, i domain.Identity) error

	// LinkProvider sets the provider id, marks the email verified and fills
	// the avatar when it is empty, in one conditional statement. It returns
	// ErrConflict when the identity is already linked to a different account
	// at p, and ErrAlreadyExists when providerUserID belongs to another
	// identity.
	LinkProvider(ctx context.Context, id string, p domain.Provider, providerUserID, avatarURL string) (domain.Identity, error)

	// SetToken replaces the token fingerprint and expiry for purpose.
	SetToken(ctx context.Context, id string, purpose domain.TokenPurpose, fingerprint string, expiresAt time.Time) error

	// ConsumeEmailVerification atomically marks the email verified and clears
	// the token when fingerprint matches an unexpired token. At most one
	// caller ever succeeds for a given token.
	ConsumeEmailVerification(ctx context.Context, fingerprint string, now time.Time) (domain.Identity, error)

	// ConsumePasswordReset atomically sets the new password hash and clears
	// the token, with the same single-winner guarantee.
	ConsumePasswordReset(ctx context.Context, fingerprint, passwordHash string, now time.Time) (domain.Identity, error)

	// EnableTwoFactor stores the encrypted secret and sets the flag in one
	// statement. Returns ErrConflict when two-factor is already enabled.
	EnableTwoFactor(ctx context.Context, id, encryptedSecret string) error

	// DisableTwoFactor clears both the flag and the secret. Returns
	// ErrConflict when two-factor is not enabled.
	DisableTwoFactor(ctx context.Context, id string) error

	// ClearExpiredTokens nulls token columns whose expiry has passed.
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type Challenges interface {
	// CreateChallenge stores a new challenge.
	CreateChallenge(ctx context.Context, c domain.Challenge) error

	// GetChallenge returns the challenge only if it has not expired.
	GetChallenge(ctx context.Context, kind domain.ChallengeKind, id string, now time.Time) (domain.Challenge, error)

	// IncrementChallengeAttempts bumps the failed attempt counter and returns
	// the updated challenge.
	IncrementChallengeAttempts(ctx context.Context, kind domain.ChallengeKind, id string, now time.Time) (domain.Challenge, error)

	// TakeChallenge atomically reads and deletes an unexpired challenge, so a
	// handle can be redeemed at most once.
	TakeChallenge(ctx context.Context, kind domain.ChallengeKind, id string, now time.Time) (domain.Challenge, error)

	// DeleteChallenge removes a challenge; missing rows are not an error.
	DeleteChallenge(ctx context.Context, kind domain.ChallengeKind, id string) error

	// DeleteExpiredChallenges is housekeeping.
	DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error)
}
