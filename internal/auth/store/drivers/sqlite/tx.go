package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/devhub/internal/auth/store"
	"github.com/aussiebroadwan/devhub/internal/auth/store/drivers/sqlite/gen"
)

// txStore hands out the same repositories as Store, bound to one *sql.Tx.
type txStore struct {
	tx *sql.Tx
	q  *gen.Queries
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx, q: gen.New(tx)}
}

func (t *txStore) Identities() store.Identities { return &identitiesRepo{q: t.q} }
func (t *txStore) Challenges() store.Challenges { return &challengesRepo{q: t.q} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Tx(context.Context) (store.Tx, error) {
	return nil, store.ErrNestedTx
}

// WithTx runs fn inside the open transaction. The outermost WithTx owns
// commit and rollback.
func (t *txStore) WithTx(_ context.Context, fn func(tx store.Tx) error) error {
	return fn(t)
}

// The connection is held by the transaction, and the schema is migrated
// before any transaction opens.
func (t *txStore) Ping(context.Context) error { return nil }
func (t *txStore) ApplyMigrations() error     { return nil }
func (t *txStore) Close() error               { return nil }
