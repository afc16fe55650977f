package observe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "treeline").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the flush duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "treeline",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// Metrics collects Prometheus metrics from the engine and reconciler
// observer hooks. It implements both observer interfaces, so one instance
// can be passed to state.WithObserver and render.WithRenderObserver.
//
// Metrics collected:
//   - treeline_mutations_total: Counter of committed mutations
//   - treeline_mutation_vetoes_total: Counter of vetoed mutations
//   - treeline_flushes_total: Counter of flush cycles
//   - treeline_flush_rounds: Histogram of rounds per flush
//   - treeline_flush_duration_seconds: Histogram of flush duration
//   - treeline_flush_computations: Histogram of computations run per flush
//   - treeline_computation_runs_total: Counter of computation executions
//   - treeline_computation_errors_total: Counter of recovered computation panics
//   - treeline_batch_divergences_total: Counter of aborted runaway flushes
//   - treeline_renders_total: Counter of render passes by mode and status
//   - treeline_render_ops: Histogram of target operations per render pass
//   - treeline_render_fallbacks_total: Counter of batched-to-direct downgrades
type Metrics struct {
	mutationsTotal    prometheus.Counter
	vetoesTotal       prometheus.Counter
	flushesTotal      prometheus.Counter
	flushRounds       prometheus.Histogram
	flushDuration     prometheus.Histogram
	flushComputations prometheus.Histogram
	compRunsTotal     *prometheus.CounterVec
	compErrorsTotal   *prometheus.CounterVec
	divergencesTotal  prometheus.Counter
	rendersTotal      *prometheus.CounterVec
	renderOps         *prometheus.HistogramVec
	fallbacksTotal    prometheus.Counter
}

// NewMetrics registers the runtime metrics and returns the observer.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		mutationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mutations_total",
			Help:        "Total number of committed state mutations",
			ConstLabels: config.ConstLabels,
		}),

		vetoesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mutation_vetoes_total",
			Help:        "Total number of mutations rejected by middleware",
			ConstLabels: config.ConstLabels,
		}),

		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of notification flush cycles",
			ConstLabels: config.ConstLabels,
		}),

		flushRounds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_rounds",
			Help:        "Cascade rounds executed per flush cycle",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 3, 5, 10, 25, 50, 100},
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Flush cycle duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		flushComputations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_computations",
			Help:        "Computations executed per flush cycle",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),

		compRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "computation_runs_total",
			Help:        "Total computation executions by name",
			ConstLabels: config.ConstLabels,
		}, []string{"computation"}),

		compErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "computation_errors_total",
			Help:        "Total recovered computation panics by name",
			ConstLabels: config.ConstLabels,
		}, []string{"computation"}),

		divergencesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "batch_divergences_total",
			Help:        "Total flush cycles aborted by the divergence guard",
			ConstLabels: config.ConstLabels,
		}),

		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Total render passes by strategy and status",
			ConstLabels: config.ConstLabels,
		}, []string{"mode", "status"}),

		renderOps: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_ops",
			Help:        "Target operations performed per render pass",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 5, 10, 25, 50, 100, 500, 2500},
		}, []string{"mode"}),

		fallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_fallbacks_total",
			Help:        "Total automatic downgrades from batched to direct rendering",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Engine observer hooks.

func (m *Metrics) MutationCommitted(path string, value any) {
	m.mutationsTotal.Inc()
}

func (m *Metrics) MutationVetoed(path string) {
	m.vetoesTotal.Inc()
}

func (m *Metrics) FlushStart() {}

func (m *Metrics) FlushEnd(rounds, computations int, d time.Duration) {
	m.flushesTotal.Inc()
	m.flushRounds.Observe(float64(rounds))
	m.flushComputations.Observe(float64(computations))
	m.flushDuration.Observe(d.Seconds())
}

func (m *Metrics) ComputationRan(name string, d time.Duration) {
	m.compRunsTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) ComputationFailed(name string, err error) {
	m.compErrorsTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) BatchDiverged(rounds int) {
	m.divergencesTotal.Inc()
}

// Reconciler observer hooks.

func (m *Metrics) Applied(mode string, ops int) {
	m.rendersTotal.WithLabelValues(mode, "success").Inc()
	m.renderOps.WithLabelValues(mode).Observe(float64(ops))
}

func (m *Metrics) ApplyFailed(mode string, err error) {
	m.rendersTotal.WithLabelValues(mode, "error").Inc()
}

func (m *Metrics) FallbackTriggered(failures int) {
	m.fallbacksTotal.Inc()
}
