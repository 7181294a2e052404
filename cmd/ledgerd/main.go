// Command ledgerd serves the provenance ledger over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceLedger/internal/chain"
	"github.com/jmerrifield20/ProvenanceLedger/internal/handler"
	"github.com/jmerrifield20/ProvenanceLedger/internal/identity"
	"github.com/jmerrifield20/ProvenanceLedger/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, cfgFound, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: %v\n", err)
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	if cfg.Debug {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync() //nolint:errcheck

	if !cfgFound {
		logger.Warn("no config file found, using defaults and env vars")
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatal("ledgerd exited with error", zap.Error(err))
	}
}

func run(cfg config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Storage ──────────────────────────────────────────────────────────────
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	hasher, err := chain.HasherByName(cfg.Hasher)
	if err != nil {
		return err
	}
	svc := service.New(st, logger, service.WithHasher(hasher))

	// ── Seed + integrity check ───────────────────────────────────────────────
	if cfg.SeedDemo {
		seeded, err := svc.SeedDemo(ctx)
		if err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		if seeded {
			logger.Info("empty ledger seeded", zap.String("asset_id", service.DemoAssetID))
		}
	}

	report, err := svc.VerifyAll(ctx)
	if err != nil {
		return fmt.Errorf("verify ledger: %w", err)
	}
	if !report.Valid() {
		for id, reason := range report.Invalid {
			logger.Warn("ledger integrity check FAILED", zap.String("asset_id", id), zap.String("reason", reason))
		}
	} else {
		logger.Info("ledger verified", zap.Int("assets", report.Checked), zap.String("hasher", cfg.Hasher))
	}
	if assets, err := svc.ListAssets(ctx); err == nil {
		handler.RecordAssets(assets)
	}

	// ── Identity ─────────────────────────────────────────────────────────────
	var tokens *identity.TokenIssuer
	if cfg.IdentityEnabled {
		key, err := identity.LoadOrCreateKey(cfg.KeyFile)
		if err != nil {
			return fmt.Errorf("load signing key: %w", err)
		}
		tokens = identity.NewTokenIssuer(key, cfg.Issuer, cfg.TokenTTL)
		logger.Info("role tokens enabled", zap.String("issuer", cfg.Issuer), zap.Duration("ttl", tokens.TTL()))
	} else {
		logger.Warn("identity disabled: the acting role is taken from the request")
	}

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(ctx, cfg, svc, st, tokens, logger)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledgerd HTTP listening", zap.Int("port", cfg.Port), zap.String("backend", cfg.Backend))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP listen: %w", err)
		}
	}
	logger.Info("shutting down ledgerd...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("ledgerd stopped")
	return nil
}
