package vscroll

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsConfig configures NewMetrics.
type MetricsConfig struct {
	// Namespace is the Prometheus namespace for all metrics.
	// Default: "hxcore"
	Namespace string

	// Subsystem is the Prometheus subsystem for all metrics.
	// Default: "vscroll"
	Subsystem string

	// Buckets are the histogram buckets for page durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Namespace: "hxcore",
		Subsystem: "vscroll",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics records what feeds serve. A nil *Metrics records nothing.
type Metrics struct {
	pages    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	items    *prometheus.CounterVec
}

// NewMetrics creates and registers the feed metrics.
func NewMetrics(config *MetricsConfig) (*Metrics, error) {
	if config == nil {
		config = DefaultMetricsConfig()
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if config.Buckets == nil {
		config.Buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "pages_total",
				Help:      "Total number of feed pages served, by request outcome",
			},
			[]string{"feed", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "page_duration_seconds",
				Help:      "Duration of loading and rendering a feed page in seconds",
				Buckets:   config.Buckets,
			},
			[]string{"feed", "outcome"},
		),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "items_total",
				Help:      "Total number of items rendered by feeds",
			},
			[]string{"feed"},
		),
	}

	for _, c := range []prometheus.Collector{m.pages, m.duration, m.items} {
		if err := config.Registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordPage records one served page.
func (m *Metrics) RecordPage(feed string, outcome Outcome, items int, d time.Duration) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(feed, outcome.String()).Inc()
	m.duration.WithLabelValues(feed, outcome.String()).Observe(d.Seconds())
	if items > 0 {
		m.items.WithLabelValues(feed).Add(float64(items))
	}
}
