package globalcache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures a BreakerBackend
type BreakerConfig struct {
	Name string
	// MaxRequests allowed through while half-open
	MaxRequests uint32
	// Interval after which closed-state counts reset; zero never resets
	Interval time.Duration
	// Timeout spent open before probing again
	Timeout time.Duration
	// ConsecutiveFailures that trip the breaker
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig returns defaults suited to a shared cache backend
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		MaxRequests:         1,
		Interval:            30 * time.Second,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerBackend fails fast with ErrBackendUnavailable while the wrapped
// backend keeps failing. Only retryable failures (unavailable, timeout) count
// against it; absent reads and caller errors such as ErrNotCounter do not.
type BreakerBackend struct {
	next    Backend
	cb      *gobreaker.CircuitBreaker
	name    string
	logger  Logger
	metrics Metrics
}

// NewBreakerBackend wraps next with a circuit breaker
func NewBreakerBackend(next Backend, cfg BreakerConfig, logger Logger, metrics Metrics) *BreakerBackend {
	if metrics == nil {
		metrics = &NoOpMetrics{}
	}
	if cfg.Name == "" {
		cfg.Name = next.Name()
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultBreakerConfig(cfg.Name).ConsecutiveFailures
	}

	b := &BreakerBackend{
		next:    next,
		name:    cfg.Name,
		logger:  orNoOp(logger),
		metrics: metrics,
	}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("backend circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			b.metrics.Gauge(MetricBreakerState, float64(to), "breaker", name)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
	})
	return b
}

// State returns the breaker state
func (b *BreakerBackend) State() gobreaker.State {
	return b.cb.State()
}

// Unwrap returns the wrapped backend
func (b *BreakerBackend) Unwrap() Backend {
	return b.next
}

func (b *BreakerBackend) run(op string, fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return b.translate(op, err)
}

func (b *BreakerBackend) translate(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return WithContext(ErrBackendUnavailable, map[string]interface{}{
			"operation": op,
			"breaker":   b.name,
			"reason":    err.Error(),
		})
	}
	return err
}

type fieldRead struct {
	value string
	found bool
}

func (b *BreakerBackend) read(op string, fn func() (string, bool, error)) (string, bool, error) {
	var out fieldRead
	err := b.run(op, func() error {
		v, found, err := fn()
		out = fieldRead{value: v, found: found}
		return err
	})
	if err != nil {
		return "", false, err
	}
	return out.value, out.found, nil
}

func (b *BreakerBackend) PutValue(ctx context.Context, key, value string) error {
	return b.run("put_value", func() error { return b.next.PutValue(ctx, key, value) })
}

func (b *BreakerBackend) GetValue(ctx context.Context, key string) (string, bool, error) {
	return b.read("get_value", func() (string, bool, error) { return b.next.GetValue(ctx, key) })
}

func (b *BreakerBackend) MapPutValue(ctx context.Context, key, field, value string) error {
	return b.run("map_put_value", func() error { return b.next.MapPutValue(ctx, key, field, value) })
}

func (b *BreakerBackend) MapGetValue(ctx context.Context, key, field string) (string, bool, error) {
	return b.read("map_get_value", func() (string, bool, error) { return b.next.MapGetValue(ctx, key, field) })
}

func (b *BreakerBackend) MapGetAll(ctx context.Context, key string) (map[string]string, error) {
	var fields map[string]string
	err := b.run("map_get_all", func() error {
		var err error
		fields, err = b.next.MapGetAll(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (b *BreakerBackend) MapDeleteValue(ctx context.Context, key, field string) error {
	return b.run("map_delete_value", func() error { return b.next.MapDeleteValue(ctx, key, field) })
}

func (b *BreakerBackend) MapIncrement(ctx context.Context, key, field string, delta int64) (int64, error) {
	var n int64
	err := b.run("map_increment", func() error {
		var err error
		n, err = b.next.MapIncrement(ctx, key, field, delta)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (b *BreakerBackend) SetAddMany(ctx context.Context, key string, members ...string) error {
	return b.run("set_add_many", func() error { return b.next.SetAddMany(ctx, key, members...) })
}

func (b *BreakerBackend) SetRemoveMany(ctx context.Context, key string, members ...string) error {
	return b.run("set_remove_many", func() error { return b.next.SetRemoveMany(ctx, key, members...) })
}

func (b *BreakerBackend) SetScan(ctx context.Context, key string) ([]string, error) {
	var members []string
	err := b.run("set_scan", func() error {
		var err error
		members, err = b.next.SetScan(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (b *BreakerBackend) SetClear(ctx context.Context, key string) error {
	return b.run("set_clear", func() error { return b.next.SetClear(ctx, key) })
}

func (b *BreakerBackend) Delete(ctx context.Context, key string) error {
	return b.run("delete", func() error { return b.next.Delete(ctx, key) })
}

func (b *BreakerBackend) Name() string {
	return b.next.Name()
}

// Ping bypasses the breaker so health checks always reach the backend.
func (b *BreakerBackend) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

func (b *BreakerBackend) Close() error {
	return b.next.Close()
}
