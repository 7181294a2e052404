package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
	"github.com/jmerrifield20/ProvenanceLedger/internal/rules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ledgerTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transactions_total",
		Help: "Total submitted transactions by function and outcome.",
	}, []string{"function", "outcome"})

	ledgerAssets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_assets",
		Help: "Number of tracked assets by lifecycle status, as of the last listing.",
	}, []string{"status"})

	ledgerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	ledgerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	ledgerTokensIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_tokens_issued_total",
		Help: "Total role tokens issued by role.",
	}, []string{"role"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		ledgerRequestsTotal.WithLabelValues(method, path, status).Inc()
		ledgerRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordTransaction records one submission. outcome is "committed" or the
// error kind; an untyped failure is counted as "Internal".
func RecordTransaction(function, outcome string) {
	if outcome == "" {
		outcome = "Internal"
	}
	if _, known := rules.Lookup(function); !known {
		function = "unknown"
	}
	ledgerTransactionsTotal.WithLabelValues(function, outcome).Inc()
}

// RecordAssets sets the per-status asset gauge from a full listing.
func RecordAssets(assets []ledger.Asset) {
	counts := make(map[ledger.Status]int, len(assets))
	for _, a := range assets {
		counts[a.Status]++
	}
	for _, st := range []ledger.Status{
		ledger.StatusHarvested, ledger.StatusProcessed, ledger.StatusInTransit,
		ledger.StatusOnShelf, ledger.StatusSold,
	} {
		ledgerAssets.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}

// RecordTokenIssued records a role token issuance.
func RecordTokenIssued(role ledger.Role) {
	ledgerTokensIssuedTotal.WithLabelValues(string(role)).Inc()
}
