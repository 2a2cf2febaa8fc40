// Package metrics exposes Prometheus instruments for the materializer.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MaterializerMetrics captures per-run and per-chunk materialization metrics.
type MaterializerMetrics struct {
	runDuration      *prometheus.HistogramVec
	ordersCreated    prometheus.Counter
	ordersSkipped    *prometheus.CounterVec
	chunksCommitted  prometheus.Counter
	chunksFailed     prometheus.Counter
	counterRetries   prometheus.Counter
	counterAllocated prometheus.Counter
}

// Config labels the metrics with the emitting service.
type Config struct {
	ServiceName string
	Environment string
}

var (
	materializerMetricsOnce sync.Once
	materializerMetrics     *MaterializerMetrics
)

// MaterializerWithConfig builds the process-wide materializer metrics
// singleton with explicit labels.
func MaterializerWithConfig(cfg Config) *MaterializerMetrics {
	materializerMetricsOnce.Do(func() {
		materializerMetrics = newMaterializerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return materializerMetrics
}

// ResetMaterializerMetricsForTest clears the singleton between test runs.
func ResetMaterializerMetricsForTest() {
	materializerMetricsOnce = sync.Once{}
	materializerMetrics = nil
}

func newMaterializerMetrics(registerer prometheus.Registerer, cfg Config) *MaterializerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "sakambari"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "development"
	}
	constLabels := prometheus.Labels{
		"service":     serviceName,
		"environment": environment,
	}

	m := &MaterializerMetrics{
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "materializer_run_duration_seconds",
			Help:        "Wall time of one materialization pass.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"outcome"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "materializer_orders_created_total",
			Help:        "Orders persisted by the materializer.",
			ConstLabels: constLabels,
		}),
		ordersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "materializer_orders_skipped_total",
			Help:        "Subscriptions skipped during materialization.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		chunksCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "materializer_chunks_committed_total",
			Help:        "Write chunks committed atomically.",
			ConstLabels: constLabels,
		}),
		chunksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "materializer_chunks_failed_total",
			Help:        "Write chunks abandoned after retries.",
			ConstLabels: constLabels,
		}),
		counterRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "materializer_counter_retries_total",
			Help:        "Order counter transaction retries under contention.",
			ConstLabels: constLabels,
		}),
		counterAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "materializer_counter_allocated_total",
			Help:        "Order numbers reserved from the counter.",
			ConstLabels: constLabels,
		}),
	}

	collectors := []prometheus.Collector{
		m.runDuration,
		m.ordersCreated,
		m.ordersSkipped,
		m.chunksCommitted,
		m.chunksFailed,
		m.counterRetries,
		m.counterAllocated,
	}
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
	return m
}

// ObserveRun records the duration and outcome of one pass.
func (m *MaterializerMetrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// AddOrdersCreated increments the created counter.
func (m *MaterializerMetrics) AddOrdersCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ordersCreated.Add(float64(n))
}

// AddOrdersSkipped increments the skipped counter for a reason label.
func (m *MaterializerMetrics) AddOrdersSkipped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ordersSkipped.WithLabelValues(reason).Add(float64(n))
}

// ChunkCommitted increments the committed-chunk counter.
func (m *MaterializerMetrics) ChunkCommitted() {
	if m == nil {
		return
	}
	m.chunksCommitted.Inc()
}

// ChunkFailed increments the failed-chunk counter.
func (m *MaterializerMetrics) ChunkFailed() {
	if m == nil {
		return
	}
	m.chunksFailed.Inc()
}

// CounterRetry increments the contention-retry counter.
func (m *MaterializerMetrics) CounterRetry() {
	if m == nil {
		return
	}
	m.counterRetries.Inc()
}

// CounterAllocated records reserved order numbers.
func (m *MaterializerMetrics) CounterAllocated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.counterAllocated.Add(float64(n))
}
