package globalcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements Backend with native Redis hashes, sets and HINCRBY.
//
// Representation: map fields and counters come back as strings, so a counter
// incremented to 10 reads back as "10".
type RedisBackend struct {
	redis      *redis.Client
	logger     Logger
	ownsClient bool
}

// NewRedisBackend wraps an already configured Redis client.
// The client is shared; it is only closed by Close() with WithOwnedClient.
func NewRedisBackend(client *redis.Client, opts ...BackendOption) *RedisBackend {
	o := applyBackendOptions(opts)
	return &RedisBackend{
		redis:      client,
		logger:     WithFields(o.logger, "backend", "redis"),
		ownsClient: o.ownsClient,
	}
}

// Name returns "redis"
func (r *RedisBackend) Name() string {
	return "redis"
}

// PutValue stores a scalar with no expiry
func (r *RedisBackend) PutValue(ctx context.Context, key, value string) error {
	if err := r.redis.Set(ctx, key, value, 0).Err(); err != nil {
		return r.fail("put value", key, err)
	}
	return nil
}

// GetValue reads a scalar; a missing key is absent
func (r *RedisBackend) GetValue(ctx context.Context, key string) (string, bool, error) {
	val, err := r.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, r.fail("get value", key, err)
	}
	return val, true, nil
}

// MapPutValue sets a single hash field
func (r *RedisBackend) MapPutValue(ctx context.Context, key, field, value string) error {
	if err := r.redis.HSet(ctx, key, field, value).Err(); err != nil {
		return r.fail("map put", key, err)
	}
	return nil
}

// MapGetValue reads a single hash field; missing key or field is absent
func (r *RedisBackend) MapGetValue(ctx context.Context, key, field string) (string, bool, error) {
	val, err := r.redis.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, r.fail("map get", key, err)
	}
	return val, true, nil
}

// MapGetAll returns every field of the hash, empty when the key is missing
func (r *RedisBackend) MapGetAll(ctx context.Context, key string) (map[string]string, error) {
	vals, err := r.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, r.fail("map get all", key, err)
	}
	return vals, nil
}

// MapDeleteValue removes a hash field
func (r *RedisBackend) MapDeleteValue(ctx context.Context, key, field string) error {
	if err := r.redis.HDel(ctx, key, field).Err(); err != nil {
		return r.fail("map delete", key, err)
	}
	return nil
}

// MapIncrement runs HINCRBY
func (r *RedisBackend) MapIncrement(ctx context.Context, key, field string, delta int64) (int64, error) {
	val, err := r.redis.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		// Redis rejects non-integer fields with a server error, not a transport one.
		var redisErr redis.Error
		if errors.As(err, &redisErr) {
			return 0, WithContext(ErrNotCounter, map[string]interface{}{
				"key":    key,
				"field":  field,
				"reason": redisErr.Error(),
			})
		}
		return 0, r.fail("map increment", key, err)
	}
	return val, nil
}

// SetAddMany runs SADD; an empty batch is a no-op
func (r *RedisBackend) SetAddMany(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := r.redis.SAdd(ctx, key, toInterfaces(members)...).Err(); err != nil {
		return r.fail("set add", key, err)
	}
	return nil
}

// SetRemoveMany runs SREM; an empty batch is a no-op
func (r *RedisBackend) SetRemoveMany(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := r.redis.SRem(ctx, key, toInterfaces(members)...).Err(); err != nil {
		return r.fail("set remove", key, err)
	}
	return nil
}

// SetScan returns all members, empty when the key is missing
func (r *RedisBackend) SetScan(ctx context.Context, key string) ([]string, error) {
	members, err := r.redis.SMembers(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}
	if err != nil {
		return nil, r.fail("set scan", key, err)
	}
	return members, nil
}

// SetClear deletes the set key
func (r *RedisBackend) SetClear(ctx context.Context, key string) error {
	return r.Delete(ctx, key)
}

// Delete removes the key regardless of its type
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, key).Err(); err != nil {
		return r.fail("delete", key, err)
	}
	return nil
}

// Ping checks the connection
func (r *RedisBackend) Ping(ctx context.Context) error {
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return r.fail("ping", "", err)
	}
	return nil
}

// Close releases the client if this backend owns it
func (r *RedisBackend) Close() error {
	if r.ownsClient && r.redis != nil {
		return r.redis.Close()
	}
	return nil
}

// fail logs a backend failure and tags it as ErrBackendUnavailable
func (r *RedisBackend) fail(op, key string, err error) error {
	r.logger.Warn("redis operation failed", "operation", op, "key", key, "error", err)
	return fmt.Errorf("redis %s %q: %w", op, key, errors.Join(ErrBackendUnavailable, err))
}

func toInterfaces(members []string) []interface{} {
	out := make([]interface{}, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}
