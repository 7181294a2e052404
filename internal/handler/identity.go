package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceLedger/internal/identity"
	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	"go.uber.org/zap"
)

// IdentityHandler enrols callers into an organization role.
type IdentityHandler struct {
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewIdentityHandler creates an IdentityHandler.
func NewIdentityHandler(tokens *identity.TokenIssuer, logger *zap.Logger) *IdentityHandler {
	return &IdentityHandler{tokens: tokens, logger: logger}
}

// Register wires the identity routes onto the API group.
func (h *IdentityHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/identity/token", h.IssueToken)
}

// IssueToken handles POST /identity/token.
//
// There is no enrolment check: any caller may obtain a token for any known
// role.
//
//	Request:  {"role": "SUPPLIER"}
//	Response: {"token": "...", "token_type": "Bearer", "expires_in": 3600}
func (h *IdentityHandler) IssueToken(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.tokens.Issue(req.Role)
	if errors.Is(err, identity.ErrUnknownRole) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("issue token", zap.String("role", req.Role), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	role, _ := ledger.ParseRole(req.Role)
	RecordTokenIssued(role)
	h.logger.Info("role token issued", zap.String("role", string(role)))

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(h.tokens.TTL().Seconds()),
	})
}
