package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
	"go.uber.org/zap"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_id   TEXT    NOT NULL UNIQUE,
	asset      TEXT    NOT NULL,
	history    TEXT    NOT NULL,
	updated_at TEXT    NOT NULL
)`

const sqliteUpsert = `
INSERT INTO ledger_entries (asset_id, asset, history, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(asset_id) DO UPDATE
SET asset = excluded.asset, history = excluded.history, updated_at = excluded.updated_at`

// SQLiteStore persists one row per ledger entry in an embedded SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	// _txlock=immediate takes the write lock at BEGIN, so an Update in another
	// process cannot read the row between our read and our write.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	logger.Info("sqlite ledger store ready", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (ledger.Entry, error) {
	var assetJSON, historyJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT asset, history FROM ledger_entries WHERE asset_id = ?`, id,
	).Scan(&assetJSON, &historyJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Entry{}, ErrNotFound
	}
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("get ledger entry %s: %w", id, err)
	}
	return decodeEntry([]byte(assetJSON), []byte(historyJSON))
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, entry ledger.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := sqliteWrite(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// Update implements Store. The read and the write share one immediate
// transaction.
func (s *SQLiteStore) Update(ctx context.Context, id string, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current *ledger.Entry
	var assetJSON, historyJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT asset, history FROM ledger_entries WHERE asset_id = ?`, id,
	).Scan(&assetJSON, &historyJSON)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("get ledger entry %s: %w", id, err)
	default:
		e, err := decodeEntry([]byte(assetJSON), []byte(historyJSON))
		if err != nil {
			return err
		}
		current = &e
	}

	next, err := runUpdate(id, current, fn)
	if err != nil {
		return err
	}
	if err := sqliteWrite(ctx, tx, next); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

func sqliteWrite(ctx context.Context, tx *sql.Tx, entry ledger.Entry) error {
	assetJSON, historyJSON, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, sqliteUpsert,
		entry.Asset.ID, string(assetJSON), string(historyJSON), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert ledger entry: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]ledger.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT asset FROM ledger_entries ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	assets := []ledger.Asset{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		var a ledger.Asset
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("decode asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// Len implements Store.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }
