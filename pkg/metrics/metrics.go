// Package metrics exposes Prometheus collectors for the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainvest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainvest_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// IntentsCreatedTotal counts transaction intents by currency
	IntentsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainvest_intents_created_total",
			Help: "Total number of transaction intents created",
		},
		[]string{"currency"},
	)

	// VerificationOutcomesTotal counts poller terminal outcomes
	VerificationOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainvest_verification_outcomes_total",
			Help: "Terminal outcomes of intent verification",
		},
		[]string{"outcome"},
	)

	// OracleProbesTotal counts chain oracle probes by currency and result
	OracleProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainvest_oracle_probes_total",
			Help: "Chain oracle probes by result (found, none, uncertain)",
		},
		[]string{"currency", "result"},
	)

	// PositionsOpenedTotal counts investment positions opened by plan
	PositionsOpenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainvest_positions_opened_total",
			Help: "Investment positions opened",
		},
		[]string{"plan"},
	)

	// SweepDuration observes accrual sweep duration
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainvest_accrual_sweep_duration_seconds",
			Help:    "Duration of full accrual sweeps",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	// SweepAccountsTotal counts per-account sweep results
	SweepAccountsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainvest_sweep_accounts_total",
			Help: "Accounts processed by accrual sweeps",
		},
		[]string{"result"},
	)

	// DatabaseConnectionsGauge tracks database pool state
	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chainvest_database_connections",
			Help: "Database connection pool state",
		},
		[]string{"state"},
	)
)

// RecordOracleProbe records a single oracle probe result
func RecordOracleProbe(currency, result string) {
	OracleProbesTotal.WithLabelValues(currency, result).Inc()
}

// RecordVerificationOutcome records an intent reaching a terminal tracking state
func RecordVerificationOutcome(outcome string) {
	VerificationOutcomesTotal.WithLabelValues(outcome).Inc()
}

// Middleware records request counts and latency for every route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
