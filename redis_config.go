package globalcache

import (
	"os"
	"strconv"

	as "github.com/aerospike/aerospike-client-go/v7"
	"github.com/redis/go-redis/v9"
)

// RedisOptions returns redis.Options populated from standard environment variables.
//
// Environment variables read (with defaults):
//   - REDIS_ADDR (default: "localhost:6379")
//   - REDIS_PASSWORD (default: "")
//   - REDIS_DB (default: 0)
//
// Users can still construct redis.Options manually for advanced scenarios (Redis
// Cluster, Sentinel, custom TLS, connection pools, etc.).
//
// Example usage:
//
//	redisClient := redis.NewClient(globalcache.RedisOptions())
//	defer redisClient.Close()
//
//	backend := globalcache.NewRedisBackend(redisClient)
func RedisOptions() *redis.Options {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	return &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}
}

// RedisOptionsWithOverrides returns redis.Options with explicit overrides for common parameters.
// Pass empty strings or zero to fall back to the environment.
func RedisOptionsWithOverrides(addr, password string, poolSize, minIdleConns int) *redis.Options {
	opts := RedisOptions()

	if addr != "" {
		opts.Addr = addr
	}
	if password != "" {
		opts.Password = password
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}
	if minIdleConns > 0 {
		opts.MinIdleConns = minIdleConns
	}

	return opts
}

// AerospikeHost returns the seed host from the environment.
//
// Environment variables read (with defaults):
//   - AEROSPIKE_HOST (default: "localhost")
//   - AEROSPIKE_PORT (default: 3000)
func AerospikeHost() *as.Host {
	host := os.Getenv("AEROSPIKE_HOST")
	if host == "" {
		host = "localhost"
	}
	return as.NewHost(host, getEnvAsInt("AEROSPIKE_PORT", 3000))
}

// AerospikeConfigFromEnv returns DefaultAerospikeConfig with
// AEROSPIKE_NAMESPACE and AEROSPIKE_SET applied when set.
func AerospikeConfigFromEnv() AerospikeConfig {
	cfg := DefaultAerospikeConfig()
	if ns := os.Getenv("AEROSPIKE_NAMESPACE"); ns != "" {
		cfg.Namespace = ns
	}
	if set := os.Getenv("AEROSPIKE_SET"); set != "" {
		cfg.SetName = set
	}
	return cfg
}

// getEnvAsInt reads an integer environment variable with a default fallback.
func getEnvAsInt(key string, defaultVal int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultVal
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultVal
	}

	return value
}
