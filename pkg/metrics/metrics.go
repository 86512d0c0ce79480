package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the referral service
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight *prometheus.GaugeVec
	DBConnPoolStats  *prometheus.GaugeVec

	CommissionsCreated prometheus.Counter
	RefundsClawedBack  prometheus.Counter
	PayoutsExecuted    *prometheus.CounterVec
	PayoutsFailed      *prometheus.CounterVec
}

// NewMetrics creates a new metrics instance on the default registry
func NewMetrics(serviceName string) *Metrics {
	return NewMetricsWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new metrics instance on the given registry
func NewMetricsWithRegistry(serviceName string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cryptonary",
				Subsystem: serviceName,
				Name:      "requests_total",
				Help:      "Total number of requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cryptonary",
				Subsystem: serviceName,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "cryptonary",
				Subsystem: serviceName,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
			[]string{"method"},
		),
		DBConnPoolStats: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "cryptonary",
				Subsystem: serviceName,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"stat"}, // stat can be: open, in_use, idle, wait_count, etc.
		),
		CommissionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cryptonary",
				Subsystem: serviceName,
				Name:      "commissions_created_total",
				Help:      "Total number of promoter commissions created",
			},
		),
		RefundsClawedBack: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cryptonary",
				Subsystem: serviceName,
				Name:      "refunds_clawed_back_total",
				Help:      "Total number of refund commission adjustments created",
			},
		),
		PayoutsExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cryptonary",
				Subsystem: serviceName,
				Name:      "payouts_executed_total",
				Help:      "Total number of promoter payouts executed",
			},
			[]string{"method"},
		),
		PayoutsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cryptonary",
				Subsystem: serviceName,
				Name:      "payouts_failed_total",
				Help:      "Total number of promoter payouts that failed execution",
			},
			[]string{"method"},
		),
	}
}

// RecordDBPoolStats records database connection pool statistics
func (m *Metrics) RecordDBPoolStats(open, inUse, idle int, waitCount int64, waitDuration time.Duration) {
	m.DBConnPoolStats.WithLabelValues("open").Set(float64(open))
	m.DBConnPoolStats.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(idle))
	m.DBConnPoolStats.WithLabelValues("wait_count").Set(float64(waitCount))
	m.DBConnPoolStats.WithLabelValues("wait_duration_ms").Set(float64(waitDuration.Milliseconds()))
}
