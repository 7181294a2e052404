package main

import (
	"context"
	"fmt"

	"github.com/jmerrifield20/ProvenanceLedger/internal/store"
	"go.uber.org/zap"
)

// openStore opens the configured storage backend.
func openStore(ctx context.Context, cfg config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Backend {
	case "memory":
		logger.Warn("using in-memory ledger: history is lost on exit")
		return store.NewMemory(), nil
	case "file", "":
		s, err := store.OpenFile(cfg.FilePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open ledger file: %w", err)
		}
		logger.Info("ledger file opened", zap.String("path", cfg.FilePath))
		return s, nil
	case "sqlite":
		s, err := store.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		logger.Info("sqlite ledger opened", zap.String("path", cfg.SQLitePath))
		return s, nil
	case "postgres":
		s, err := store.OpenPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		logger.Info("connected to postgres")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}
