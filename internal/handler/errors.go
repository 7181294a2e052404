package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	"go.uber.org/zap"
)

// StatusFor maps a ledger error to its HTTP status code.
func StatusFor(err error) int {
	switch ledger.KindOf(err) {
	case ledger.KindInvalidArgument, ledger.KindUnknownOperation:
		return http.StatusBadRequest
	case ledger.KindUnauthorized:
		return http.StatusForbidden
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindAlreadyExists, ledger.KindInvalidStateTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as {"error": ..., "kind": ...}. Store failures are
// logged and their cause is not echoed to the client.
func (h *LedgerHandler) writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	kind := ledger.KindOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("ledger request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", RequestIDFromCtx(c)),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "ledger storage unavailable", "kind": kind})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}
