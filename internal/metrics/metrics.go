package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the ledger's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	transitions        *prometheus.CounterVec
	volume             *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec
	retries            *prometheus.CounterVec
	recovered          *prometheus.CounterVec
	reconciliation     *prometheus.CounterVec
	eventsDropped      prometheus.Counter
	eventDeliveryFails prometheus.Counter
}

// New registers the ledger collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_ledger",
			Name:      "transaction_transitions_total",
			Help:      "Transaction status transitions by type and resulting status",
		}, []string{"type", "status"}),
		volume: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_ledger",
			Name:      "completed_volume_minor_units_total",
			Help:      "Absolute minor-unit volume of completed transactions",
		}, []string{"type", "currency"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wallet_ledger",
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_ledger",
			Name:      "retries_total",
			Help:      "Transaction retry attempts by outcome",
		}, []string{"outcome"}),
		recovered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_ledger",
			Name:      "stuck_transactions_recovered_total",
			Help:      "Processing transactions resolved by the recovery job",
		}, []string{"status"}),
		reconciliation: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet_ledger",
			Name:      "reconciliation_reports_total",
			Help:      "Reconciliation reports by status",
		}, []string{"status"}),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wallet_ledger",
			Name:      "events_dropped_total",
			Help:      "Status events dropped because the dispatch queue was full",
		}),
		eventDeliveryFails: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wallet_ledger",
			Name:      "event_delivery_failures_total",
			Help:      "Status events the publisher failed to deliver",
		}),
	}
}

func (m *Metrics) ObserveTransition(txType, status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(txType, status).Inc()
}

func (m *Metrics) ObserveCompleted(txType, currency string, absAmount int64) {
	if m == nil {
		return
	}
	m.volume.WithLabelValues(txType, currency).Add(float64(absAmount))
}

// ObserveOperation records latency since start
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operationDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveRetry(outcome string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRecovered(status string) {
	if m == nil {
		return
	}
	m.recovered.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveReconciliation(status string) {
	if m == nil {
		return
	}
	m.reconciliation.WithLabelValues(status).Inc()
}

func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

func (m *Metrics) EventDeliveryFailed() {
	if m == nil {
		return
	}
	m.eventDeliveryFails.Inc()
}

// Handler exposes the registry for scraping
func Handler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	h := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
