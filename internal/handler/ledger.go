// Package handler exposes the provenance ledger over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceLedger/internal/identity"
	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	"github.com/jmerrifield20/ProvenanceLedger/internal/service"
	"go.uber.org/zap"
)

// RoleHeader carries the acting organization role when identity tokens are disabled.
const RoleHeader = "X-Org-Role"

// Ledger is the subset of the ledger service used by LedgerHandler.
type Ledger interface {
	SubmitTransaction(ctx context.Context, role ledger.Role, functionName string, args map[string]string) (string, error)
	QueryAsset(ctx context.Context, id string) (ledger.Entry, error)
	ListAssets(ctx context.Context) ([]ledger.Asset, error)
	VerifyAsset(ctx context.Context, id string) error
}

// SubmitRequest is the body of POST /transactions.
type SubmitRequest struct {
	Function string            `json:"function" binding:"required"`
	Args     map[string]string `json:"args"`
	Role     string            `json:"role"`
}

// LedgerHandler handles transaction submission and asset queries.
type LedgerHandler struct {
	svc    Ledger
	tokens *identity.TokenIssuer // nil = role taken from the request
	logger *zap.Logger
}

// NewLedgerHandler creates a LedgerHandler. tokens may be nil to accept the
// acting role from the request body or the X-Org-Role header.
func NewLedgerHandler(svc Ledger, tokens *identity.TokenIssuer, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/transactions", h.requireRole(), h.SubmitTransaction)

	assets := rg.Group("/assets", h.optionalRole())
	{
		assets.GET("", h.ListAssets)
		assets.GET("/:id", h.GetAsset)
		assets.GET("/:id/verify", h.VerifyAsset)
	}
}

// requireRole returns the RequireRole middleware when identity is enabled,
// or a no-op middleware for open mode.
func (h *LedgerHandler) requireRole() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return identity.RequireRole(h.tokens)
}

// optionalRole records the caller's role token on read routes when identity
// is enabled. Reads never require one.
func (h *LedgerHandler) optionalRole() gin.HandlerFunc {
	if h.tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return identity.OptionalRole(h.tokens)
}

// actingRole resolves the invoker role for a submission.
func (h *LedgerHandler) actingRole(c *gin.Context, req SubmitRequest) (ledger.Role, bool) {
	if h.tokens != nil {
		return identity.RoleFromCtx(c)
	}
	raw := req.Role
	if strings.TrimSpace(raw) == "" {
		raw = c.GetHeader(RoleHeader)
	}
	return ledger.ParseRole(raw)
}

// SubmitTransaction handles POST /transactions.
func (h *LedgerHandler) SubmitTransaction(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, ok := h.actingRole(c, req)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a known organization role is required"})
		return
	}

	txID, err := h.svc.SubmitTransaction(c.Request.Context(), role, req.Function, req.Args)
	if err != nil {
		RecordTransaction(req.Function, string(ledger.KindOf(err)))
		h.writeError(c, err)
		return
	}
	RecordTransaction(req.Function, "committed")

	h.logger.Info("transaction committed",
		zap.String("function", req.Function),
		zap.String("role", string(role)),
		zap.String("tx_id", txID),
		zap.String("request_id", RequestIDFromCtx(c)),
	)
	c.JSON(http.StatusCreated, gin.H{"tx_id": txID})
}

// ListAssets handles GET /assets.
func (h *LedgerHandler) ListAssets(c *gin.Context) {
	assets, err := h.svc.ListAssets(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	RecordAssets(assets)
	c.JSON(http.StatusOK, gin.H{"assets": assets, "count": len(assets)})
}

// GetAsset handles GET /assets/:id.
func (h *LedgerHandler) GetAsset(c *gin.Context) {
	entry, err := h.svc.QueryAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// VerifyAsset handles GET /assets/:id/verify. Integrity failures are reported
// in the body with status 200; only a missing asset or a store error is an
// HTTP error.
func (h *LedgerHandler) VerifyAsset(c *gin.Context) {
	id := c.Param("id")
	err := h.svc.VerifyAsset(c.Request.Context(), id)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"valid": true})
		return
	}

	if !errors.Is(err, service.ErrIntegrity) {
		h.writeError(c, err)
		return
	}

	h.logger.Warn("asset integrity check failed", zap.String("asset_id", id), zap.Error(err))
	c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
}
