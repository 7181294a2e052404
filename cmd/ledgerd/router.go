package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceLedger/internal/handler"
	"github.com/jmerrifield20/ProvenanceLedger/internal/identity"
	"github.com/jmerrifield20/ProvenanceLedger/internal/store"
	"go.uber.org/zap"
)

// newRouter assembles the HTTP surface. tokens is nil when identity is
// disabled. ctx bounds the rate limiter's cleanup goroutine.
func newRouter(ctx context.Context, cfg config, svc handler.Ledger, st store.Store, tokens *identity.TokenIssuer, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsOrigins := cfg.CORSOrigins
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", handler.RoleHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.Use(handler.RequestID())
	router.Use(handler.SecurityHeaders())
	router.Use(handler.BodyLimit(1 << 20))

	if cfg.RateLimitRPS > 0 {
		router.Use(handler.RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}
	router.Use(handler.PrometheusMiddleware())
	router.Use(handler.RequestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		if _, err := st.Len(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "ledger storage unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	handler.NewLedgerHandler(svc, tokens, logger).Register(v1)
	if tokens != nil {
		handler.NewIdentityHandler(tokens, logger).Register(v1)
		router.GET("/.well-known/jwks.json", identity.JWKSHandler(tokens))
	}
	return router
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
