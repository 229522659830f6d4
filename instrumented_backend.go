package globalcache

import (
	"context"
	"time"
)

// InstrumentedBackend wraps a Backend with metrics and debug logging.
// Every operation records MetricBackendOps and MetricBackendLatency tagged
// with operation and backend; failures add MetricBackendErrors and point
// reads add MetricCacheHits or MetricCacheMisses.
type InstrumentedBackend struct {
	next    Backend
	logger  Logger
	metrics Metrics
}

// NewInstrumentedBackend wraps next. Nil logger or metrics become no-ops.
func NewInstrumentedBackend(next Backend, logger Logger, metrics Metrics) *InstrumentedBackend {
	if metrics == nil {
		metrics = &NoOpMetrics{}
	}
	return &InstrumentedBackend{next: next, logger: orNoOp(logger), metrics: metrics}
}

// Unwrap returns the wrapped backend
func (b *InstrumentedBackend) Unwrap() Backend {
	return b.next
}

func (b *InstrumentedBackend) observe(op, key string, start time.Time, err error) {
	name := b.next.Name()
	b.metrics.Increment(MetricBackendOps, "operation", op, "backend", name)
	b.metrics.Timing(MetricBackendLatency, time.Since(start), "operation", op, "backend", name)
	if err != nil {
		b.metrics.Increment(MetricBackendErrors, "operation", op, "backend", name)
		b.logger.Warn("backend operation failed", "operation", op, "backend", name, "key", key, "error", err)
		return
	}
	b.logger.Debug("backend operation", "operation", op, "backend", name, "key", key, "duration", time.Since(start))
}

func (b *InstrumentedBackend) lookup(op string, found bool, err error) {
	if err != nil {
		return
	}
	name := b.next.Name()
	if found {
		b.metrics.Increment(MetricCacheHits, "operation", op, "backend", name)
	} else {
		b.metrics.Increment(MetricCacheMisses, "operation", op, "backend", name)
	}
}

func (b *InstrumentedBackend) PutValue(ctx context.Context, key, value string) error {
	start := time.Now()
	err := b.next.PutValue(ctx, key, value)
	b.observe("put_value", key, start, err)
	return err
}

func (b *InstrumentedBackend) GetValue(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	v, found, err := b.next.GetValue(ctx, key)
	b.observe("get_value", key, start, err)
	b.lookup("get_value", found, err)
	return v, found, err
}

func (b *InstrumentedBackend) MapPutValue(ctx context.Context, key, field, value string) error {
	start := time.Now()
	err := b.next.MapPutValue(ctx, key, field, value)
	b.observe("map_put_value", key, start, err)
	return err
}

func (b *InstrumentedBackend) MapGetValue(ctx context.Context, key, field string) (string, bool, error) {
	start := time.Now()
	v, found, err := b.next.MapGetValue(ctx, key, field)
	b.observe("map_get_value", key, start, err)
	b.lookup("map_get_value", found, err)
	return v, found, err
}

func (b *InstrumentedBackend) MapGetAll(ctx context.Context, key string) (map[string]string, error) {
	start := time.Now()
	fields, err := b.next.MapGetAll(ctx, key)
	b.observe("map_get_all", key, start, err)
	b.lookup("map_get_all", len(fields) > 0, err)
	return fields, err
}

func (b *InstrumentedBackend) MapDeleteValue(ctx context.Context, key, field string) error {
	start := time.Now()
	err := b.next.MapDeleteValue(ctx, key, field)
	b.observe("map_delete_value", key, start, err)
	return err
}

func (b *InstrumentedBackend) MapIncrement(ctx context.Context, key, field string, delta int64) (int64, error) {
	start := time.Now()
	n, err := b.next.MapIncrement(ctx, key, field, delta)
	b.observe("map_increment", key, start, err)
	return n, err
}

func (b *InstrumentedBackend) SetAddMany(ctx context.Context, key string, members ...string) error {
	start := time.Now()
	err := b.next.SetAddMany(ctx, key, members...)
	b.observe("set_add_many", key, start, err)
	return err
}

func (b *InstrumentedBackend) SetRemoveMany(ctx context.Context, key string, members ...string) error {
	start := time.Now()
	err := b.next.SetRemoveMany(ctx, key, members...)
	b.observe("set_remove_many", key, start, err)
	return err
}

func (b *InstrumentedBackend) SetScan(ctx context.Context, key string) ([]string, error) {
	start := time.Now()
	members, err := b.next.SetScan(ctx, key)
	b.observe("set_scan", key, start, err)
	return members, err
}

func (b *InstrumentedBackend) SetClear(ctx context.Context, key string) error {
	start := time.Now()
	err := b.next.SetClear(ctx, key)
	b.observe("set_clear", key, start, err)
	return err
}

func (b *InstrumentedBackend) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := b.next.Delete(ctx, key)
	b.observe("delete", key, start, err)
	return err
}

func (b *InstrumentedBackend) Name() string {
	return b.next.Name()
}

func (b *InstrumentedBackend) Ping(ctx context.Context) error {
	start := time.Now()
	err := b.next.Ping(ctx)
	b.observe("ping", "", start, err)
	return err
}

func (b *InstrumentedBackend) Close() error {
	return b.next.Close()
}
