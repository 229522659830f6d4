package cli

import (
	"context"
	"fmt"
	"time"

	as "github.com/aerospike/aerospike-client-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adrianmcphee/globalcache"
)

// session is the per-invocation connection state shared by subcommands.
type session struct {
	backend   globalcache.Backend
	aerospike *globalcache.AerospikeBackend
	cache     *globalcache.Cache
	logger    *globalcache.ZapLogger
	timeout   time.Duration
}

var current *session

// connect opens the configured backend. It is the PersistentPreRunE of every
// command group that talks to a store.
func connect(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	logger, err := newLogger(viper.GetBool("verbose"), viper.GetString("log-level"))
	if err != nil {
		return err
	}

	s := &session{
		logger:  logger,
		timeout: time.Duration(viper.GetInt("timeout")) * time.Second,
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), s.timeout)
	defer cancel()

	var backend globalcache.Backend
	switch kind := viper.GetString("backend"); kind {
	case "redis":
		opts := globalcache.RedisOptionsWithOverrides(
			viper.GetString("redis-addr"), viper.GetString("redis-password"), 0, 0)
		backend = globalcache.NewRedisBackend(redis.NewClient(opts),
			globalcache.WithBackendLogger(logger), globalcache.WithOwnedClient())
	case "aerospike":
		a, err := openAerospike(ctx, logger)
		if err != nil {
			return err
		}
		s.aerospike = a
		backend = a
	default:
		return fmt.Errorf("invalid backend %q (want redis or aerospike)", kind)
	}

	backend = globalcache.NewInstrumentedBackend(backend, logger, nil)
	if viper.GetBool("breaker") {
		backend = globalcache.NewBreakerBackend(backend, globalcache.DefaultBreakerConfig(backend.Name()), logger, nil)
	}
	s.backend = backend

	keys, err := globalcache.NewKeyspace(globalcache.Config{
		Namespace: viper.GetString("namespace"),
		Delimiter: globalcache.KeyDelimiter,
	})
	if err != nil {
		backend.Close()
		return err
	}
	s.cache = globalcache.NewCacheWithLogger(backend, logger).WithKeyspace(keys)

	current = s
	return nil
}

// disconnect releases the session opened by connect
func disconnect(_ *cobra.Command, _ []string) error {
	if current == nil {
		return nil
	}
	err := current.backend.Close()
	_ = current.logger.Sync()
	current = nil
	return err
}

func openAerospike(ctx context.Context, logger globalcache.Logger) (*globalcache.AerospikeBackend, error) {
	host := globalcache.AerospikeHost()
	if h := viper.GetString("aerospike-host"); h != "" {
		host.Name = h
	}
	if p := viper.GetInt("aerospike-port"); p > 0 {
		host.Port = p
	}

	cfg := globalcache.AerospikeConfigFromEnv()
	if ns := viper.GetString("aerospike-namespace"); ns != "" {
		cfg.Namespace = ns
	}
	if set := viper.GetString("aerospike-set"); set != "" {
		cfg.SetName = set
	}
	cfg.SkipUDFRegistration = viper.GetBool("skip-udf")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy := as.NewClientPolicy()
	policy.Timeout = 10 * time.Second
	client, err := as.NewClientWithPolicyAndHost(policy, host)
	if err != nil {
		return nil, fmt.Errorf("connect aerospike %s: %w", host, err)
	}
	backend, berr := globalcache.NewAerospikeBackend(ctx, client, cfg,
		globalcache.WithBackendLogger(logger), globalcache.WithOwnedClient())
	if berr = closeOnError(client, berr); berr != nil {
		return nil, berr
	}
	return backend, nil
}

// closeOnError releases c when the backend built on it failed
func closeOnError(c interface{ Close() }, err error) error {
	if err != nil {
		c.Close()
	}
	return err
}

func newLogger(verbose bool, level string) (*globalcache.ZapLogger, error) {
	if verbose {
		return globalcache.NewDevelopmentZapLogger()
	}
	return globalcache.NewZapLoggerAtLevel(level)
}

// opContext bounds one command by the configured timeout
func opContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), current.timeout)
}
