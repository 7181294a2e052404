// Package store persists ledger entries keyed by asset id.
//
// Four implementations of the Store interface are provided:
//   - MemoryStore: in-process, for tests and ephemeral runs.
//   - FileStore: a single JSON snapshot on disk, replaced atomically on every write.
//   - SQLiteStore: one row per entry in an embedded SQLite database.
//   - PostgresStore: one row per entry in PostgreSQL, for shared deployments.
//
// Every implementation preserves insertion order in List and hands out copies,
// so callers can never mutate committed state.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
)

// ErrNotFound is returned by Get when no entry exists for the id.
var ErrNotFound = errors.New("ledger entry not found")

// Store is the persistence interface of the ledger service.
type Store interface {
	// Get returns the entry for id, or ErrNotFound.
	Get(ctx context.Context, id string) (ledger.Entry, error)

	// Put atomically replaces the entry stored under entry.Asset.ID. A new id is
	// appended after all existing ids.
	Put(ctx context.Context, entry ledger.Entry) error

	// Update loads the entry for id, passes it to fn and stores the entry fn
	// returns, as one atomic step. Updates of the same id are serialised, across
	// processes too for the SQL backends. An error from fn aborts the update
	// and is returned unchanged.
	Update(ctx context.Context, id string, fn UpdateFunc) error

	// List returns the current projection of every entry in insertion order.
	List(ctx context.Context) ([]ledger.Asset, error)

	// Len returns the number of entries.
	Len(ctx context.Context) (int, error)

	// Close releases the resources held by the store.
	Close() error
}

// UpdateFunc computes the replacement of an entry. current is nil when no entry
// exists for the id.
type UpdateFunc func(current *ledger.Entry) (ledger.Entry, error)

func runUpdate(id string, current *ledger.Entry, fn UpdateFunc) (ledger.Entry, error) {
	next, err := fn(current)
	if err != nil {
		return ledger.Entry{}, err
	}
	if next.Asset.ID != id {
		return ledger.Entry{}, fmt.Errorf("update %s: replacement carries id %q", id, next.Asset.ID)
	}
	return next, nil
}
