package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "mcts"
	searchSubsystem  = "search"
)

// PromMetrics holds the search metrics exported to Prometheus. Register it
// once per registry and share it between collectors; the agent label tells
// searchers apart.
type PromMetrics struct {
	SearchesTotal   *prometheus.CounterVec
	IterationsTotal *prometheus.CounterVec
	NodesTotal      *prometheus.CounterVec
	Iterations      *prometheus.HistogramVec
	Depth           *prometheus.HistogramVec
	DurationSeconds *prometheus.HistogramVec
}

// NewPromMetrics creates the search metrics and registers them on reg.
// It panics on duplicate registration, like promauto does.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	factory := promauto.With(reg)
	return &PromMetrics{
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: searchSubsystem,
			Name:      "searches_total",
			Help:      "Total number of completed searches by agent",
		}, []string{"agent"}),
		IterationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: searchSubsystem,
			Name:      "iterations_total",
			Help:      "Total select/expand, simulate and backpropagate iterations by agent",
		}, []string{"agent"}),
		NodesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: searchSubsystem,
			Name:      "nodes_total",
			Help:      "Total tree nodes created by expansion by agent",
		}, []string{"agent"}),
		Iterations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: searchSubsystem,
			Name:      "iterations",
			Help:      "Iterations completed per search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~260k
		}, []string{"agent"}),
		Depth: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: searchSubsystem,
			Name:      "max_depth",
			Help:      "Deepest node reached per search",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}, []string{"agent"}),
		DurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: searchSubsystem,
			Name:      "duration_seconds",
			Help:      "Wall-clock search duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"agent"}),
	}
}

type promCollector struct {
	collector
	agent   string
	metrics *PromMetrics
}

// NewPromCollector returns a collector that records like NewCollector and
// exports each completed search under the given agent label.
func NewPromCollector(m *PromMetrics, agent string) Collector {
	return &promCollector{agent: agent, metrics: m}
}

func (p *promCollector) Complete() SearchMetric {
	metric := p.collector.Complete()

	p.metrics.SearchesTotal.WithLabelValues(p.agent).Inc()
	p.metrics.IterationsTotal.WithLabelValues(p.agent).Add(float64(metric.Iterations))
	p.metrics.NodesTotal.WithLabelValues(p.agent).Add(float64(metric.Nodes))
	p.metrics.Iterations.WithLabelValues(p.agent).Observe(float64(metric.Iterations))
	p.metrics.Depth.WithLabelValues(p.agent).Observe(float64(metric.MaxDepth))
	p.metrics.DurationSeconds.WithLabelValues(p.agent).Observe(metric.Duration.Seconds())

	return metric
}

