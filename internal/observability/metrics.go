// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scanner.
type Metrics struct {
	// Detection metrics
	DetectionRunsTotal *prometheus.CounterVec
	DetectionDuration  prometheus.Histogram
	ContractsAnalyzed  prometheus.Counter
	SymbolsScored      prometheus.Counter
	AnomaliesStored    prometheus.Counter
	HighConviction     prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulDetection prometheus.Gauge
	UptimeSeconds           prometheus.Counter
}

// NewMetrics creates a Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "insider_scanner"
	}

	return &Metrics{
		DetectionRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "runs_total",
			Help:      "Total number of detection runs by status",
		}, []string{"status"}),
		DetectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "duration_seconds",
			Help:      "Detection pass duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		ContractsAnalyzed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "contracts_analyzed_total",
			Help:      "Total number of option contracts analyzed",
		}),
		SymbolsScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "symbols_scored_total",
			Help:      "Total number of symbols scored",
		}),
		AnomaliesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "anomalies_stored_total",
			Help:      "Total number of anomaly records stored",
		}),
		HighConviction: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "high_conviction_symbols",
			Help:      "High-conviction symbols found by the most recent run",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulDetection: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_detection_timestamp",
			Help:      "Unix timestamp of last successful detection run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDetectionRun records one detection run's outcome.
func RecordDetectionRun(status string, durationSeconds float64) {
	DefaultMetrics.DetectionRunsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		DefaultMetrics.DetectionDuration.Observe(durationSeconds)
		DefaultMetrics.LastSuccessfulDetection.Set(float64(time.Now().Unix()))
	}
}

// RecordContractsAnalyzed adds to the analyzed-contracts counter.
func RecordContractsAnalyzed(n int) {
	if n > 0 {
		DefaultMetrics.ContractsAnalyzed.Add(float64(n))
	}
}

// RecordSymbolsScored adds to the scored-symbols counter.
func RecordSymbolsScored(n int) {
	if n > 0 {
		DefaultMetrics.SymbolsScored.Add(float64(n))
	}
}

// RecordAnomaliesStored adds to the stored-anomalies counter.
func RecordAnomaliesStored(n int) {
	if n > 0 {
		DefaultMetrics.AnomaliesStored.Add(float64(n))
	}
}

// SetHighConviction updates the high-conviction gauge for the latest run.
func SetHighConviction(n int) {
	DefaultMetrics.HighConviction.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
