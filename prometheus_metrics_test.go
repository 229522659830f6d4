package globalcache

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func gatheredNames(t *testing.T, registry *prometheus.Registry) []string {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	return names
}

func hasMetric(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func TestNewPrometheusMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	if metrics.GetRegistry() != registry {
		t.Error("registry not set correctly")
	}
	if len(metrics.counters) == 0 || len(metrics.gauges) == 0 || len(metrics.histograms) == 0 {
		t.Error("expected default collectors to be registered")
	}
}

func TestNewPrometheusMetrics_NilRegistry(t *testing.T) {
	metrics := NewPrometheusMetrics(nil)
	if metrics.GetRegistry() == nil {
		t.Fatal("expected a private registry when nil is passed")
	}
	if metrics.GetRegistry() == prometheus.DefaultRegisterer {
		t.Error("nil registry must not fall back to the global registerer")
	}
}

func TestPrometheusMetrics_BackendCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	metrics.Increment(MetricBackendOps, "operation", "get_value", "backend", "redis")
	metrics.Increment(MetricBackendOps, "operation", "get_value", "backend", "redis")
	metrics.Increment(MetricBackendOps, "operation", "set_scan", "backend", "aerospike")

	got := testutil.ToFloat64(metrics.counters[MetricBackendOps].WithLabelValues("get_value", "redis"))
	if got != 2 {
		t.Errorf("get_value/redis = %v, want 2", got)
	}
	if !hasMetric(gatheredNames(t, registry), "globalcache_backend_operations_total") {
		t.Error("expected globalcache_backend_operations_total")
	}
}

func TestPrometheusMetrics_EntityCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	metrics.Increment(MetricEntitySave, "entity", "device")
	metrics.Increment(MetricEntityDereference, "entity", "device")

	if got := testutil.ToFloat64(metrics.counters[MetricEntitySave].WithLabelValues("device")); got != 1 {
		t.Errorf("device saves = %v, want 1", got)
	}
}

func TestPrometheusMetrics_Timing(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	metrics.Timing(MetricBackendLatency, 3*time.Millisecond, "operation", "map_get_all", "backend", "redis")

	if !hasMetric(gatheredNames(t, registry), "globalcache_backend_operation_duration_seconds") {
		t.Error("expected latency histogram")
	}
}

func TestPrometheusMetrics_BreakerGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	metrics.Gauge(MetricBreakerState, 2, "breaker", "redis")

	if got := testutil.ToFloat64(metrics.gauges[MetricBreakerState].WithLabelValues("redis")); got != 2 {
		t.Errorf("breaker state = %v, want 2", got)
	}
}

func TestPrometheusMetrics_DynamicMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	metrics.Increment(MetricEntitySaveError, "entity", "variable")
	metrics.Increment(MetricUDFRegister, "result", "ok")
	metrics.Histogram("globalcache.payload.size", 42)

	names := gatheredNames(t, registry)
	for _, want := range []string{
		"globalcache_entity_save_error",
		"globalcache_udf_register",
		"globalcache_payload_size",
	} {
		if !hasMetric(names, want) {
			t.Errorf("expected %s in %v", want, names)
		}
	}
}

func TestSanitizeMetricName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"globalcache.entity.save_error", "entity_save_error"},
		{"custom.metric-name", "custom_metric_name"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := sanitizeMetricName(tt.in); got != tt.want {
			t.Errorf("sanitizeMetricName(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if strings.Contains(sanitizeMetricName(tt.in), ".") {
			t.Errorf("sanitized name still contains a dot: %q", tt.in)
		}
	}
}
