package instrument

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/signals/pkg/reactive"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "signals").
	Namespace string

	// Subsystem is the metrics subsystem (default: "graph").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for recompute duration.
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

// WithBuckets sets the histogram buckets.
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

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "signals",
		Subsystem: "graph",
		// Recomputations are usually microseconds.
		Buckets:  prometheus.ExponentialBuckets(0.000001, 4, 12),
		Registry: prometheus.DefaultRegisterer,
	}
}

// Metrics is a reactive.Observer that exports graph activity to Prometheus.
type Metrics struct {
	recomputations    *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	notifications     *prometheus.CounterVec
	followersNotified prometheus.Counter
	hotSignals        prometheus.Gauge
	transitions       *prometheus.CounterVec
	cycles            *prometheus.CounterVec
}

// NewMetrics registers the graph metrics and returns the observer.
// Registering twice on the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		recomputations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputations_total",
			Help:        "Total number of tracked recomputations of hot derived signals",
			ConstLabels: config.ConstLabels,
		}, []string{"changed"}),

		recomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recompute_duration_seconds",
			Help:        "Duration of tracked recomputations in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of notify cascades by signal kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		followersNotified: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "followers_notified_total",
			Help:        "Total number of follower invocations",
			ConstLabels: config.ConstLabels,
		}),

		hotSignals: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "hot_signals",
			Help:        "Number of derived signals currently hot",
			ConstLabels: config.ConstLabels,
		}),

		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transitions_total",
			Help:        "Total number of hot/cold transitions",
			ConstLabels: config.ConstLabels,
		}, []string{"to"}),

		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycles_detected_total",
			Help:        "Total number of detected reactive cycles",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}

// OnRecompute implements reactive.Observer.
func (m *Metrics) OnRecompute(_ reactive.Node, started time.Time, changed bool) {
	label := "false"
	if changed {
		label = "true"
	}
	m.recomputations.WithLabelValues(label).Inc()
	if !started.IsZero() {
		m.recomputeDuration.Observe(time.Since(started).Seconds())
	}
}

// OnNotify implements reactive.Observer.
func (m *Metrics) OnNotify(n reactive.Node, followers int) {
	m.notifications.WithLabelValues(n.Kind().String()).Inc()
	m.followersNotified.Add(float64(followers))
}

// OnTransition implements reactive.Observer.
func (m *Metrics) OnTransition(_ reactive.Node, hot bool) {
	if hot {
		m.hotSignals.Inc()
		m.transitions.WithLabelValues("hot").Inc()
		return
	}
	m.hotSignals.Dec()
	m.transitions.WithLabelValues("cold").Inc()
}

// OnCycle implements reactive.Observer.
func (m *Metrics) OnCycle(n reactive.Node) {
	m.cycles.WithLabelValues(n.Kind().String()).Inc()
}

var _ reactive.Observer = (*Metrics)(nil)
