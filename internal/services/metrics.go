package services

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sellerops/internal/models"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Block dispatch metrics
	BlockDispatches        *prometheus.CounterVec
	BlockDispatchLatency   *prometheus.HistogramVec
	StepCompletions        prometheus.Counter
	FlowRuns               *prometheus.CounterVec
	BlockConfigCacheEvents *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// InitMetrics registers the Prometheus metrics with the default registry.
// Safe to call more than once; later calls return the same instance.
func InitMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics(promauto.With(prometheus.DefaultRegisterer))
	})
	return globalMetrics
}

// NewMetricsWithRegistry registers the metrics with reg (used by tests)
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(promauto.With(reg))
}

func newMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		// Block dispatches by category, demo/functional and outcome
		BlockDispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sellerops_block_dispatch_total",
			Help: "Total number of block dispatches",
		}, []string{"category", "mode", "status"}),

		BlockDispatchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sellerops_block_dispatch_duration_seconds",
			Help:    "Block dispatch latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"mode"}),

		StepCompletions: factory.NewCounter(prometheus.CounterOpts{
			Name: "sellerops_step_completions_total",
			Help: "Total number of step completion events",
		}),

		FlowRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sellerops_flow_runs_total",
			Help: "Total number of flow runs by trigger",
		}, []string{"trigger"}),

		BlockConfigCacheEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sellerops_block_config_cache_total",
			Help: "Block configuration cache lookups by result",
		}, []string{"result"}), // hit or miss
	}
}

// ObserveDispatch records one finished block dispatch
func (m *Metrics) ObserveDispatch(category models.Category, mode, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BlockDispatches.WithLabelValues(string(category), mode, status).Inc()
	m.BlockDispatchLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// RecordStepCompletion counts one step completion event
func (m *Metrics) RecordStepCompletion() {
	if m == nil {
		return
	}
	m.StepCompletions.Inc()
}

// RecordFlowRun counts one flow run
func (m *Metrics) RecordFlowRun(trigger models.Trigger) {
	if m == nil {
		return
	}
	m.FlowRuns.WithLabelValues(string(trigger)).Inc()
}

// RecordCacheLookup counts a block configuration cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.BlockConfigCacheEvents.WithLabelValues(result).Inc()
}
