package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	"go.uber.org/zap"
)

// FileStore keeps the whole ledger in memory and persists it as one JSON
// snapshot file. It is suitable for a single process only.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	snap   *Snapshot
	logger *zap.Logger
}

// OpenFile opens the snapshot at path. A missing file yields an empty store.
// A corrupt file is moved aside to "<path>.corrupt-<unix>" and also yields an
// empty store, so a damaged snapshot never prevents startup.
func OpenFile(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	fs := &FileStore{path: path, snap: NewSnapshot(), logger: logger}

	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("ledger snapshot not found, starting empty", zap.String("path", path))
		return fs, nil
	case err != nil:
		logger.Warn("ledger snapshot unreadable, starting empty", zap.String("path", path), zap.Error(err))
		return fs, nil
	}
	defer f.Close() //nolint:errcheck

	snap, err := Load(f)
	if err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		if renameErr := os.Rename(path, aside); renameErr != nil {
			logger.Error("move corrupt snapshot aside", zap.Error(renameErr))
		}
		logger.Warn("ledger snapshot corrupt, starting empty",
			zap.String("path", path),
			zap.String("moved_to", aside),
			zap.Error(err),
		)
		return fs, nil
	}
	fs.snap = snap
	logger.Info("ledger snapshot loaded", zap.String("path", path), zap.Int("entries", snap.Len()))
	return fs, nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, id string) (ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.snap.Get(id)
	if !ok {
		return ledger.Entry{}, ErrNotFound
	}
	return e, nil
}

// Put implements Store. The new snapshot becomes visible to readers only after
// it has been written to disk; on a write error the store is unchanged.
func (s *FileStore) Put(_ context.Context, entry ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.clone()
	next.Put(entry.Asset.ID, entry)
	if err := SaveFile(s.path, next); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	s.snap = next
	return nil
}

// Update implements Store. Like Put, the result is visible only once it is on disk.
func (s *FileStore) Update(_ context.Context, id string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current *ledger.Entry
	if e, ok := s.snap.Get(id); ok {
		current = &e
	}
	entry, err := runUpdate(id, current, fn)
	if err != nil {
		return err
	}
	next := s.snap.clone()
	next.Put(id, entry)
	if err := SaveFile(s.path, next); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	s.snap = next
	return nil
}

// List implements Store.
func (s *FileStore) List(_ context.Context) ([]ledger.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Assets(), nil
}

// Len implements Store.
func (s *FileStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Len(), nil
}

// Close implements Store. Every Put is already durable, so there is nothing to flush.
func (s *FileStore) Close() error { return nil }
