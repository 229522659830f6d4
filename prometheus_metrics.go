package globalcache

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements the Metrics interface using Prometheus
type PrometheusMetrics struct {
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	registry   *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance
// If registry is nil, a fresh registry is created
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	pm := &PrometheusMetrics{
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		registry:   registry,
	}

	pm.registerDefaultMetrics()
	return pm
}

// registerDefaultMetrics registers all standard cache metrics
func (p *PrometheusMetrics) registerDefaultMetrics() {
	p.counters[MetricBackendOps] = promauto.With(p.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "globalcache",
			Subsystem: "backend",
			Name:      "operations_total",
			Help:      "Total number of backend operations",
		},
		[]string{"operation", "backend"},
	)

	p.counters[MetricBackendErrors] = promauto.With(p.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "globalcache",
			Subsystem: "backend",
			Name:      "errors_total",
			Help:      "Total number of backend errors",
		},
		[]string{"operation", "backend"},
	)

	p.counters[MetricCacheHits] = promauto.With(p.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "globalcache",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Reads that found a value",
		},
		[]string{"operation", "backend"},
	)

	p.counters[MetricCacheMisses] = promauto.With(p.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "globalcache",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Reads that resolved to absent",
		},
		[]string{"operation", "backend"},
	)

	p.counters[MetricEntitySave] = promauto.With(p.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "globalcache",
			Subsystem: "entity",
			Name:      "saves_total",
			Help:      "Entity projections written",
		},
		[]string{"entity"},
	)

	p.counters[MetricEntityDereference] = promauto.With(p.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "globalcache",
			Subsystem: "entity",
			Name:      "dereferences_total",
			Help:      "Secondary entity reads resolved through the primary record",
		},
		[]string{"entity"},
	)

	p.histograms[MetricBackendLatency] = promauto.With(p.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "globalcache",
			Subsystem: "backend",
			Name:      "operation_duration_seconds",
			Help:      "Backend operation duration in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "backend"},
	)

	p.gauges[MetricBreakerState] = promauto.With(p.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "globalcache",
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"breaker"},
	)
}

// Increment increments a Prometheus counter
func (p *PrometheusMetrics) Increment(name string, tags ...string) {
	p.mu.Lock()
	counter, ok := p.counters[name]
	if !ok {
		counter = promauto.With(p.registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "globalcache",
				Name:      sanitizeMetricName(name),
				Help:      "Dynamic counter: " + name,
			},
			p.extractLabels(tags),
		)
		p.counters[name] = counter
	}
	p.mu.Unlock()

	counter.With(p.extractLabelValues(tags)).Inc()
}

// Gauge sets a Prometheus gauge value
func (p *PrometheusMetrics) Gauge(name string, value float64, tags ...string) {
	p.mu.Lock()
	gauge, ok := p.gauges[name]
	if !ok {
		gauge = promauto.With(p.registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "globalcache",
				Name:      sanitizeMetricName(name),
				Help:      "Dynamic gauge: " + name,
			},
			p.extractLabels(tags),
		)
		p.gauges[name] = gauge
	}
	p.mu.Unlock()

	gauge.With(p.extractLabelValues(tags)).Set(value)
}

// Histogram records a value in a Prometheus histogram
func (p *PrometheusMetrics) Histogram(name string, value float64, tags ...string) {
	p.mu.Lock()
	histogram, ok := p.histograms[name]
	if !ok {
		histogram = promauto.With(p.registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "globalcache",
				Name:      sanitizeMetricName(name),
				Help:      "Dynamic histogram: " + name,
				Buckets:   prometheus.DefBuckets,
			},
			p.extractLabels(tags),
		)
		p.histograms[name] = histogram
	}
	p.mu.Unlock()

	histogram.With(p.extractLabelValues(tags)).Observe(value)
}

// Timing records a duration in a Prometheus histogram
func (p *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...string) {
	p.Histogram(name, duration.Seconds(), tags...)
}

// extractLabels extracts label names from tags (every even index)
func (p *PrometheusMetrics) extractLabels(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	labels := make([]string, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		labels = append(labels, tags[i])
	}
	return labels
}

// extractLabelValues creates a label map from tags (key-value pairs)
func (p *PrometheusMetrics) extractLabelValues(tags []string) prometheus.Labels {
	labels := make(prometheus.Labels, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		labels[tags[i]] = tags[i+1]
	}
	return labels
}

// GetRegistry returns the underlying Prometheus registry
func (p *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return p.registry
}

// sanitizeMetricName turns dotted metric names into valid Prometheus names.
// The namespace prefix is dropped since it is set on the collector options.
func sanitizeMetricName(name string) string {
	name = strings.TrimPrefix(name, "globalcache.")
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
