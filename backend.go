package globalcache

import (
	"context"
)

// Backend defines the operation set shared by every cache store.
// Redis keeps native hashes, sets and counters; Aerospike keeps flat records
// with bins and emulates sets through a registered UDF. Callers never branch
// on which one they hold.
//
// Reads of a missing key, field or member resolve to absent (found == false,
// err == nil). Errors are reserved for backend failures.
type Backend interface {
	// Scalar key-value
	PutValue(ctx context.Context, key, value string) error
	GetValue(ctx context.Context, key string) (value string, found bool, err error)

	// Map (record with named fields)
	MapPutValue(ctx context.Context, key, field, value string) error
	MapGetValue(ctx context.Context, key, field string) (value string, found bool, err error)
	MapGetAll(ctx context.Context, key string) (map[string]string, error)
	MapDeleteValue(ctx context.Context, key, field string) error

	// MapIncrement atomically adds delta to field and returns the cumulative
	// value. A missing field starts from zero. MapGetValue reports the same
	// counter in decimal string form on every backend.
	MapIncrement(ctx context.Context, key, field string, delta int64) (int64, error)

	// Unique-member sets
	SetAddMany(ctx context.Context, key string, members ...string) error
	SetRemoveMany(ctx context.Context, key string, members ...string) error
	SetScan(ctx context.Context, key string) ([]string, error)
	SetClear(ctx context.Context, key string) error

	// Delete removes everything stored at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Name identifies the backend kind in logs and metrics ("redis", "aerospike").
	Name() string

	// Health check
	Ping(ctx context.Context) error

	// Resource cleanup
	Close() error
}

// BackendOption configures optional backend collaborators
type BackendOption func(*backendOptions)

type backendOptions struct {
	logger     Logger
	ownsClient bool
}

// WithBackendLogger sets the logger used by a backend
func WithBackendLogger(logger Logger) BackendOption {
	return func(o *backendOptions) {
		o.logger = logger
	}
}

// WithOwnedClient makes Close() also close the underlying client
func WithOwnedClient() BackendOption {
	return func(o *backendOptions) {
		o.ownsClient = true
	}
}

func applyBackendOptions(opts []BackendOption) backendOptions {
	o := backendOptions{logger: &NoOpLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = orNoOp(o.logger)
	return o
}
