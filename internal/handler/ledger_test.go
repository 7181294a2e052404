package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceLedger/internal/handler"
	"github.com/jmerrifield20/ProvenanceLedger/internal/identity"
	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	"github.com/jmerrifield20/ProvenanceLedger/internal/service"
	"github.com/jmerrifield20/ProvenanceLedger/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func setupLedgerRouter(t *testing.T, tokens *identity.TokenIssuer) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.NewMemory()
	svc := service.New(st, zap.NewNop())
	r := gin.New()
	v1 := r.Group("/api/v1")
	handler.NewLedgerHandler(svc, tokens, zap.NewNop()).Register(v1)
	if tokens != nil {
		handler.NewIdentityHandler(tokens, zap.NewNop()).Register(v1)
	}
	return r, st
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func submit(t *testing.T, r http.Handler, role, fn string, args map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, r, http.MethodPost, "/api/v1/transactions",
		handler.SubmitRequest{Function: fn, Args: args, Role: role}, nil)
}

func createBody(id string) map[string]string {
	return map[string]string{"id": id, "name": "Apples", "category": "Fruit", "origin": "Valley", "harvestDate": "2024-01-01"}
}

func TestSubmitTransaction_201(t *testing.T) {
	router, _ := setupLedgerRouter(t, nil)

	w := submit(t, router, "supplier", ledger.FuncCreateAsset, createBody("A1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp["tx_id"]) != 64 {
		t.Errorf("tx_id = %q, want 64 hex chars", resp["tx_id"])
	}
}

func TestSubmitTransaction_roleHeader(t *testing.T) {
	router, _ := setupLedgerRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/transactions",
		handler.SubmitRequest{Function: ledger.FuncCreateAsset, Args: createBody("A1")},
		map[string]string{handler.RoleHeader: "SUPPLIER"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitTransaction_errorMapping(t *testing.T) {
	router, _ := setupLedgerRouter(t, nil)
	if w := submit(t, router, "SUPPLIER", ledger.FuncCreateAsset, createBody("A1")); w.Code != http.StatusCreated {
		t.Fatalf("seed create: %d", w.Code)
	}

	tests := []struct {
		name string
		role string
		fn   string
		args map[string]string
		want int
	}{
		{"duplicate", "SUPPLIER", ledger.FuncCreateAsset, createBody("A1"), http.StatusConflict},
		{"wrong role", "RETAILER", ledger.FuncProcessAsset, map[string]string{"id": "A1"}, http.StatusForbidden},
		{"skipped stage", "LOGISTICS", ledger.FuncTransportAsset, map[string]string{"id": "A1"}, http.StatusConflict},
		{"missing asset", "PROCESSOR", ledger.FuncProcessAsset, map[string]string{"id": "ZZ"}, http.StatusNotFound},
		{"unknown function", "SUPPLIER", "burnAsset", map[string]string{"id": "A1"}, http.StatusBadRequest},
		{"blank id", "SUPPLIER", ledger.FuncCreateAsset, map[string]string{"id": " "}, http.StatusBadRequest},
		{"unknown role", "AUDITOR", ledger.FuncCreateAsset, createBody("A2"), http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := submit(t, router, tc.role, tc.fn, tc.args)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestSubmitTransaction_400_malformed(t *testing.T) {
	router, _ := setupLedgerRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetAsset(t *testing.T) {
	router, _ := setupLedgerRouter(t, nil)
	submit(t, router, "SUPPLIER", ledger.FuncCreateAsset, createBody("A1"))

	w := doJSON(t, router, http.MethodGet, "/api/v1/assets/A1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var entry ledger.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.Asset.ID != "A1" || len(entry.History) != 1 {
		t.Errorf("unexpected entry: %+v", entry)
	}

	if w := doJSON(t, router, http.MethodGet, "/api/v1/assets/nope", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing asset: expected 404, got %d", w.Code)
	}
}

func TestListAssets(t *testing.T) {
	router, _ := setupLedgerRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/v1/assets", nil, nil)
	var resp struct {
		Assets []ledger.Asset `json:"assets"`
		Count  int            `json:"count"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Count != 0 || resp.Assets == nil {
		t.Fatalf("empty list: status %d, body %s", w.Code, w.Body.String())
	}

	submit(t, router, "SUPPLIER", ledger.FuncCreateAsset, createBody("B"))
	submit(t, router, "SUPPLIER", ledger.FuncCreateAsset, createBody("A"))

	w = doJSON(t, router, http.MethodGet, "/api/v1/assets", nil, nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 2 || resp.Assets[0].ID != "B" || resp.Assets[1].ID != "A" {
		t.Errorf("unexpected list: %s", w.Body.String())
	}
}

func TestVerifyAsset(t *testing.T) {
	router, st := setupLedgerRouter(t, nil)
	submit(t, router, "SUPPLIER", ledger.FuncCreateAsset, createBody("A1"))

	w := doJSON(t, router, http.MethodGet, "/api/v1/assets/A1/verify", nil, nil)
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp["valid"] != true {
		t.Fatalf("expected valid=true, got %d %s", w.Code, w.Body.String())
	}

	ctx := context.Background()
	entry, _ := st.Get(ctx, "A1")
	entry.History[0].Inputs["origin"] = "Elsewhere"
	_ = st.Put(ctx, entry)

	w = doJSON(t, router, http.MethodGet, "/api/v1/assets/A1/verify", nil, nil)
	resp = nil
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp["valid"] != false {
		t.Fatalf("expected valid=false, got %d %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, router, http.MethodGet, "/api/v1/assets/nope/verify", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing asset: expected 404, got %d", w.Code)
	}
}

func TestSubmitTransaction_withIdentity(t *testing.T) {
	key, err := identity.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	tokens := identity.NewTokenIssuer(key, "https://ledger.example.test", time.Hour)
	router, _ := setupLedgerRouter(t, tokens)

	// No token: rejected even with a role in the body.
	if w := submit(t, router, "SUPPLIER", ledger.FuncCreateAsset, createBody("A1")); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/identity/token", map[string]string{"role": "supplier"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("issue token: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var tok struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &tok)
	if tok.ExpiresIn != 3600 {
		t.Errorf("expires_in = %d, want 3600", tok.ExpiresIn)
	}
	auth := map[string]string{"Authorization": "Bearer " + tok.Token}

	// The token's role wins over the body.
	w = doJSON(t, router, http.MethodPost, "/api/v1/transactions",
		handler.SubmitRequest{Function: ledger.FuncProcessAsset, Args: map[string]string{"id": "A1"}, Role: "PROCESSOR"}, auth)
	if w.Code != http.StatusNotFound {
		t.Fatalf("process before create: expected 404, got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodPost, "/api/v1/transactions",
		handler.SubmitRequest{Function: ledger.FuncCreateAsset, Args: createBody("A1"), Role: "RETAILER"}, auth)
	if w.Code != http.StatusCreated {
		t.Fatalf("create with token: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, router, http.MethodPost, "/api/v1/identity/token", map[string]string{"role": "AUDITOR"}, nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown role token: expected 400, got %d", w.Code)
	}
}

func TestReadRoutes_optionalRole(t *testing.T) {
	key, err := identity.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	tokens := identity.NewTokenIssuer(key, "https://ledger.example.test", time.Hour)
	token, err := tokens.Issue("consumer")
	if err != nil {
		t.Fatal(err)
	}

	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(handler.RequestLogger(zap.New(core)))
	handler.NewLedgerHandler(service.New(store.NewMemory(), zap.NewNop()), tokens, zap.NewNop()).Register(r.Group("/api/v1"))

	if w := doJSON(t, r, http.MethodGet, "/api/v1/assets", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("anonymous read: expected 200, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/v1/assets", nil, map[string]string{"Authorization": "Bearer bogus"}); w.Code != http.StatusOK {
		t.Fatalf("read with bad token: expected 200, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/v1/assets", nil, map[string]string{"Authorization": "Bearer " + token}); w.Code != http.StatusOK {
		t.Fatalf("read with token: expected 200, got %d", w.Code)
	}

	entries := logs.FilterMessage("request").All()
	if len(entries) != 3 {
		t.Fatalf("logged %d requests, want 3", len(entries))
	}
	for i, want := range []string{"", "", "CONSUMER"} {
		got, _ := entries[i].ContextMap()["role"].(string)
		if got != want {
			t.Errorf("request %d: role field = %q, want %q", i, got, want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind ledger.Kind
		want int
	}{
		{ledger.KindInvalidArgument, http.StatusBadRequest},
		{ledger.KindUnknownOperation, http.StatusBadRequest},
		{ledger.KindUnauthorized, http.StatusForbidden},
		{ledger.KindNotFound, http.StatusNotFound},
		{ledger.KindAlreadyExists, http.StatusConflict},
		{ledger.KindInvalidStateTransition, http.StatusConflict},
		{ledger.KindPersistenceFailure, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := handler.StatusFor(ledger.Errorf(tc.kind, "x")); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.kind, got, tc.want)
		}
	}
}
