package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
)

const ctxRoleClaims = "ledger_role_claims"

// RequireRole returns a Gin middleware that enforces a valid Bearer role token.
//
// On success it injects the *RoleClaims into the context under the
// "ledger_role_claims" key.
func RequireRole(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer role token required",
			})
			return
		}

		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token: " + err.Error(),
			})
			return
		}

		c.Set(ctxRoleClaims, claims)
		c.Next()
	}
}

// OptionalRole tries to parse a Bearer role token. Unlike RequireRole it never
// aborts; it skips injection when the header is absent or invalid.
func OptionalRole(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, ok := bearer(c); ok {
			if claims, err := tokens.Verify(tokenStr); err == nil {
				c.Set(ctxRoleClaims, claims)
			}
		}
		c.Next()
	}
}

// ClaimsFromCtx retrieves the claims injected by RequireRole or OptionalRole.
func ClaimsFromCtx(c *gin.Context) *RoleClaims {
	v, _ := c.Get(ctxRoleClaims)
	claims, _ := v.(*RoleClaims)
	return claims
}

// RoleFromCtx returns the authenticated role, or false when no token was accepted.
func RoleFromCtx(c *gin.Context) (ledger.Role, bool) {
	claims := ClaimsFromCtx(c)
	if claims == nil {
		return "", false
	}
	return claims.Role, true
}

func bearer(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true
}
