package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceLedger/internal/identity"
	"github.com/jmerrifield20/ProvenanceLedger/internal/service"
	"github.com/jmerrifield20/ProvenanceLedger/internal/store"
	"go.uber.org/zap"
)

func TestLoadConfig_defaults(t *testing.T) {
	cfg, found, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if found {
		t.Skip("a ledgerd.yaml is present in the test directory")
	}
	if cfg.Port != 8080 || cfg.Backend != "file" || cfg.Hasher != "fnv" || !cfg.SeedDemo {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.TokenTTL)
	}
	if cfg.Issuer != "http://localhost:8080" {
		t.Errorf("Issuer = %q", cfg.Issuer)
	}
}

func TestLoadConfig_overrides(t *testing.T) {
	t.Setenv("LEDGER_HASHER", "sha256")
	t.Setenv("IDENTITY_ENABLED", "true")

	cfg, _, err := loadConfig([]string{"--port", "9090", "--backend", "SQLite", "--debug"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != 9090 || cfg.Backend != "sqlite" || !cfg.Debug {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Hasher != "sha256" || !cfg.IdentityEnabled {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadConfig_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledgerd.yaml")
	yaml := "server:\n  port: 7070\nledger:\n  backend: memory\n  seed_demo: false\n"
	if err := writeFile(path, yaml); err != nil {
		t.Fatal(err)
	}
	cfg, found, err := loadConfig([]string{"--config", path})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !found || cfg.Port != 7070 || cfg.Backend != "memory" || cfg.SeedDemo {
		t.Errorf("config file not applied: found=%v %+v", found, cfg)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for _, backend := range []string{"memory", "file", "sqlite"} {
		cfg := config{
			Backend:    backend,
			FilePath:   filepath.Join(dir, "ledger.json"),
			SQLitePath: filepath.Join(dir, "ledger.db"),
		}
		st, err := openStore(ctx, cfg, zap.NewNop())
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		_ = st.Close()
	}
	if _, err := openStore(ctx, config{Backend: "etcd"}, zap.NewNop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemory()
	svc := service.New(st, zap.NewNop())
	if _, err := svc.SeedDemo(ctx); err != nil {
		t.Fatal(err)
	}
	key, err := identity.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	tokens := identity.NewTokenIssuer(key, "http://localhost:8080", time.Hour)
	cfg := config{CORSOrigins: []string{"*"}, RateLimitRPS: 0}
	router := newRouter(ctx, cfg, svc, st, tokens, zap.NewNop())

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	if w := get("/healthz"); w.Code != http.StatusOK {
		t.Errorf("/healthz: %d", w.Code)
	}
	if w := get("/.well-known/jwks.json"); w.Code != http.StatusOK {
		t.Errorf("/.well-known/jwks.json: %d", w.Code)
	}

	w := get("/api/v1/assets/" + service.DemoAssetID + "/verify")
	var verify map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &verify)
	if w.Code != http.StatusOK || verify["valid"] != true {
		t.Errorf("seeded asset verify: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	// Submissions need a role token when identity is enabled.
	body, _ := json.Marshal(map[string]any{"function": "createAsset", "role": "SUPPLIER", "args": map[string]string{"id": "X"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated submit: %d, want 401", w.Code)
	}

	w = get("/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ledger_requests_total") {
		t.Errorf("/metrics missing ledger metrics: %d", w.Code)
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
