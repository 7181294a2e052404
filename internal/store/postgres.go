package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	"go.uber.org/zap"
)

// PostgresStore persists one row per ledger entry in the ledger_entries table
// (see migrations/001_ledger_entries.up.sql).
type PostgresStore struct {
	pool    *pgxpool.Pool
	ownPool bool
	logger  *zap.Logger
}

// NewPostgres returns a PostgresStore over an existing pool. Close does not
// close a pool supplied by the caller.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// OpenPostgres connects to databaseURL and returns a store that owns the pool.
func OpenPostgres(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgres(pool, logger)
	s.ownPool = true
	return s, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (ledger.Entry, error) {
	var assetJSON, historyJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT asset, history FROM ledger_entries WHERE asset_id = $1`, id,
	).Scan(&assetJSON, &historyJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Entry{}, ErrNotFound
	}
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("get ledger entry %s: %w", id, err)
	}
	return decodeEntry(assetJSON, historyJSON)
}

const pgUpsert = `
INSERT INTO ledger_entries (asset_id, asset, history, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (asset_id) DO UPDATE
SET asset = EXCLUDED.asset, history = EXCLUDED.history, updated_at = NOW()`

// Put implements Store. It is a blind write; read-modify-write callers use Update.
func (s *PostgresStore) Put(ctx context.Context, entry ledger.Entry) error {
	assetJSON, historyJSON, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, pgUpsert, entry.Asset.ID, string(assetJSON), string(historyJSON)); err != nil {
		return fmt.Errorf("upsert ledger entry: %w", err)
	}
	return nil
}

// Update implements Store. The transaction takes an advisory lock on the asset
// id before reading the row, so an Update from another process waits until
// this one commits and then sees its result. The lock also covers ids that
// have no row yet, which SELECT ... FOR UPDATE cannot.
func (s *PostgresStore) Update(ctx context.Context, id string, fn UpdateFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", id); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	var current *ledger.Entry
	var assetJSON, historyJSON []byte
	err = tx.QueryRow(ctx,
		`SELECT asset, history FROM ledger_entries WHERE asset_id = $1 FOR UPDATE`, id,
	).Scan(&assetJSON, &historyJSON)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return fmt.Errorf("get ledger entry %s: %w", id, err)
	default:
		e, err := decodeEntry(assetJSON, historyJSON)
		if err != nil {
			return err
		}
		current = &e
	}

	next, err := runUpdate(id, current, fn)
	if err != nil {
		return err
	}
	newAsset, newHistory, err := encodeEntry(next)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, pgUpsert, id, string(newAsset), string(newHistory)); err != nil {
		return fmt.Errorf("upsert ledger entry: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}

	s.logger.Debug("ledger entry updated",
		zap.String("asset_id", id),
		zap.Int("blocks", len(next.History)),
	)
	return nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context) ([]ledger.Asset, error) {
	rows, err := s.pool.Query(ctx, `SELECT asset FROM ledger_entries ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	assets := []ledger.Asset{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		var a ledger.Asset
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// Len implements Store.
func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	if s.ownPool {
		s.pool.Close()
	}
	return nil
}

func encodeEntry(e ledger.Entry) (assetJSON, historyJSON []byte, err error) {
	assetJSON, err = json.Marshal(e.Asset)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal asset: %w", err)
	}
	history := e.History
	if history == nil {
		history = []ledger.Block{}
	}
	historyJSON, err = json.Marshal(history)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal history: %w", err)
	}
	return assetJSON, historyJSON, nil
}

func decodeEntry(assetJSON, historyJSON []byte) (ledger.Entry, error) {
	var e ledger.Entry
	if err := json.Unmarshal(assetJSON, &e.Asset); err != nil {
		return ledger.Entry{}, fmt.Errorf("decode asset: %w", err)
	}
	if err := json.Unmarshal(historyJSON, &e.History); err != nil {
		return ledger.Entry{}, fmt.Errorf("decode history: %w", err)
	}
	return e, nil
}
