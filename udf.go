package globalcache

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	as "github.com/aerospike/aerospike-client-go/v7"
	"github.com/aerospike/aerospike-client-go/v7/types"
)

// setScript is the Lua module that emulates unique-member sets on a bin.
//
//go:embed lua/set.lua
var setScript []byte

// UDF function names exported by lua/set.lua
const (
	udfSetWriteMany  = "unique_set_write_many"
	udfSetRemoveMany = "unique_set_remove_many"
	udfSetScan       = "unique_set_scan"
)

// udfRegisterTimeout bounds the wait for cluster-wide UDF propagation when
// the caller's context has no deadline.
const udfRegisterTimeout = 30 * time.Second

// UDFRegistry installs and invokes the set UDF on an Aerospike cluster.
//
// Registration is idempotent: registering the same file again replaces the
// module on every node.
type UDFRegistry struct {
	client   *as.Client
	module   string
	filename string
	logger   Logger
	metrics  Metrics
}

// NewUDFRegistry creates a registry for the module/filename in cfg.
func NewUDFRegistry(client *as.Client, cfg AerospikeConfig, logger Logger, metrics Metrics) *UDFRegistry {
	if metrics == nil {
		metrics = &NoOpMetrics{}
	}
	return &UDFRegistry{
		client:   client,
		module:   cfg.UDFModule,
		filename: cfg.UDFFilename,
		logger:   orNoOp(logger),
		metrics:  metrics,
	}
}

// SaveUDF registers the embedded set script and waits until every node has it.
func (u *UDFRegistry) SaveUDF(ctx context.Context) error {
	return u.register(ctx, setScript, u.filename)
}

// SaveUDFFile deploys a script from disk. The server path is the file's base
// name, so its module name is the base name without ".lua".
func (u *UDFRegistry) SaveUDFFile(ctx context.Context, path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read udf %s: %w", path, err)
	}
	return u.register(ctx, body, filepath.Base(path))
}

func (u *UDFRegistry) register(ctx context.Context, body []byte, serverPath string) error {
	task, err := u.client.RegisterUDF(nil, body, serverPath, as.LUA)
	if err != nil {
		u.metrics.Increment(MetricUDFRegister, "result", "error")
		return WithContext(fmt.Errorf("%w: %w", ErrBackendUnavailable, err), map[string]interface{}{
			"udf": serverPath,
		})
	}

	waitCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, udfRegisterTimeout)
		defer cancel()
	}

	select {
	case err := <-task.OnComplete():
		if err != nil {
			u.metrics.Increment(MetricUDFRegister, "result", "error")
			return WithContext(fmt.Errorf("%w: %w", ErrBackendUnavailable, err), map[string]interface{}{
				"udf": serverPath,
			})
		}
	case <-waitCtx.Done():
		u.metrics.Increment(MetricUDFRegister, "result", "timeout")
		return WithContext(fmt.Errorf("%w: %w", ErrTimeout, waitCtx.Err()), map[string]interface{}{
			"udf": serverPath,
		})
	}

	u.metrics.Increment(MetricUDFRegister, "result", "ok")
	u.logger.Info("udf registered", "udf", serverPath)
	return nil
}

// Registered reports whether the module file is present on the cluster.
func (u *UDFRegistry) Registered(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	udfs, err := u.client.ListUDF(nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	for _, udf := range udfs {
		if udf.Filename == u.filename {
			return true, nil
		}
	}
	return false, nil
}

// Remove unregisters the module file.
func (u *UDFRegistry) Remove(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	task, err := u.client.RemoveUDF(nil, u.filename)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if err := <-task.OnComplete(); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return nil
}

// Apply invokes one of the set functions against a record.
func (u *UDFRegistry) Apply(ctx context.Context, policy *as.WritePolicy, key *as.Key, function string, args ...as.Value) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := u.client.Execute(policy, key, u.module, function, args...)
	if err != nil {
		if isMissingUDF(err) {
			return nil, WithContext(ErrUDFNotRegistered, map[string]interface{}{
				"module":   u.module,
				"function": function,
				"reason":   err.Error(),
			})
		}
		return nil, fmt.Errorf("%w: udf %s.%s: %w", ErrBackendUnavailable, u.module, function, err)
	}
	return res, nil
}

// isMissingUDF distinguishes "module/function not installed" from Lua runtime errors.
func isMissingUDF(err as.Error) bool {
	if !err.Matches(types.UDF_BAD_RESPONSE) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "function not")
}
