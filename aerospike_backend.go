package globalcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	as "github.com/aerospike/aerospike-client-go/v7"
	"github.com/aerospike/aerospike-client-go/v7/types"
)

// AerospikeBackend implements Backend on flat Aerospike records.
//
// Layout per cache key (namespace, set, key):
//   - scalar values live in the configured value bin
//   - map fields are keys of a CDT map in the fields bin
//   - sets live in the configured set bin, maintained by the set UDF
//
// Representation: counters are integer map values. MapIncrement returns the
// cumulative int64 and MapGetValue formats integers in base 10, so reads
// look the same as on RedisBackend.
type AerospikeBackend struct {
	client     *as.Client
	cfg        AerospikeConfig
	udf        *UDFRegistry
	logger     Logger
	ownsClient bool
}

// NewAerospikeBackend wraps a connected client. Unless cfg.SkipUDFRegistration
// is set, the set UDF is (re)installed before the backend is returned.
func NewAerospikeBackend(ctx context.Context, client *as.Client, cfg AerospikeConfig, opts ...BackendOption) (*AerospikeBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyBackendOptions(opts)
	logger := WithFields(o.logger, "backend", "aerospike", "namespace", cfg.Namespace, "set", cfg.SetName)

	b := &AerospikeBackend{
		client:     client,
		cfg:        cfg,
		udf:        NewUDFRegistry(client, cfg, logger, nil),
		logger:     logger,
		ownsClient: o.ownsClient,
	}

	if !cfg.SkipUDFRegistration {
		if err := b.udf.SaveUDF(ctx); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Name returns "aerospike"
func (a *AerospikeBackend) Name() string {
	return "aerospike"
}

// UDF exposes the script registry, e.g. for operator tooling.
func (a *AerospikeBackend) UDF() *UDFRegistry {
	return a.udf
}

// PutValue stores value in the value bin
func (a *AerospikeBackend) PutValue(ctx context.Context, key, value string) error {
	k, err := a.key(key)
	if err != nil {
		return err
	}
	if err := a.client.Put(a.writePolicy(ctx), k, as.BinMap{a.cfg.ValueBin: value}); err != nil {
		return a.fail("put value", key, err)
	}
	return nil
}

// GetValue reads the value bin; a missing record or bin is absent
func (a *AerospikeBackend) GetValue(ctx context.Context, key string) (string, bool, error) {
	return a.getBin(ctx, "get value", key, a.cfg.ValueBin)
}

// MapPutValue sets one key of the fields map
func (a *AerospikeBackend) MapPutValue(ctx context.Context, key, field, value string) error {
	if err := checkField(field); err != nil {
		return err
	}
	k, err := a.key(key)
	if err != nil {
		return err
	}
	op := as.MapPutOp(as.DefaultMapPolicy(), a.cfg.FieldsBin, field, value)
	if _, aerr := a.client.Operate(a.writePolicy(ctx), k, op); aerr != nil {
		return a.fail("map put", key, aerr)
	}
	return nil
}

// MapGetValue reads one key of the fields map
func (a *AerospikeBackend) MapGetValue(ctx context.Context, key, field string) (string, bool, error) {
	if err := checkField(field); err != nil {
		return "", false, err
	}
	k, err := a.key(key)
	if err != nil {
		return "", false, err
	}
	rec, aerr := a.client.Operate(a.writePolicy(ctx), k,
		as.MapGetByKeyOp(a.cfg.FieldsBin, field, as.MapReturnType.VALUE),
	)
	if aerr != nil {
		if aerr.Matches(types.KEY_NOT_FOUND_ERROR) {
			return "", false, nil
		}
		return "", false, a.fail("map get", key, aerr)
	}
	v := rec.Bins[a.cfg.FieldsBin]
	if v == nil {
		return "", false, nil
	}
	return formatBin(v), true, nil
}

// MapGetAll returns the whole fields map. A record without one is empty.
func (a *AerospikeBackend) MapGetAll(ctx context.Context, key string) (map[string]string, error) {
	k, err := a.key(key)
	if err != nil {
		return nil, err
	}
	rec, aerr := a.client.Get(a.readPolicy(ctx), k, a.cfg.FieldsBin)
	if aerr != nil {
		if aerr.Matches(types.KEY_NOT_FOUND_ERROR) {
			return map[string]string{}, nil
		}
		return nil, a.fail("map get all", key, aerr)
	}

	fields, _ := rec.Bins[a.cfg.FieldsBin].(map[interface{}]interface{})
	out := make(map[string]string, len(fields))
	for name, v := range fields {
		if v == nil {
			continue
		}
		out[formatBin(name)] = formatBin(v)
	}
	return out, nil
}

// MapDeleteValue removes one key of the fields map
func (a *AerospikeBackend) MapDeleteValue(ctx context.Context, key, field string) error {
	if err := checkField(field); err != nil {
		return err
	}
	k, err := a.key(key)
	if err != nil {
		return err
	}
	op := as.MapRemoveByKeyOp(a.cfg.FieldsBin, field, as.MapReturnType.NONE)
	if _, aerr := a.client.Operate(a.writePolicy(ctx), k, op); aerr != nil {
		if aerr.Matches(types.KEY_NOT_FOUND_ERROR, types.BIN_NOT_FOUND) {
			return nil
		}
		return a.fail("map delete", key, aerr)
	}
	return nil
}

// MapIncrement adds delta to an integer key of the fields map. The server
// returns the new value from the same operation.
func (a *AerospikeBackend) MapIncrement(ctx context.Context, key, field string, delta int64) (int64, error) {
	if err := checkField(field); err != nil {
		return 0, err
	}
	k, err := a.key(key)
	if err != nil {
		return 0, err
	}

	rec, aerr := a.client.Operate(a.writePolicy(ctx), k,
		as.MapIncrementOp(as.DefaultMapPolicy(), a.cfg.FieldsBin, field, delta),
	)
	if aerr != nil {
		if aerr.Matches(types.OP_NOT_APPLICABLE, types.BIN_TYPE_ERROR) {
			return 0, WithContext(ErrNotCounter, map[string]interface{}{
				"key":   key,
				"field": field,
			})
		}
		return 0, a.fail("map increment", key, aerr)
	}

	switch v := rec.Bins[a.cfg.FieldsBin].(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, WithContext(ErrNotCounter, map[string]interface{}{
			"key":   key,
			"field": field,
			"value": v,
		})
	}
}

// SetAddMany runs unique_set_write_many on the set bin
func (a *AerospikeBackend) SetAddMany(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return a.applySet(ctx, key, udfSetWriteMany, members)
}

// SetRemoveMany runs unique_set_remove_many on the set bin
func (a *AerospikeBackend) SetRemoveMany(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return a.applySet(ctx, key, udfSetRemoveMany, members)
}

// SetScan runs unique_set_scan; an absent record yields an empty slice
func (a *AerospikeBackend) SetScan(ctx context.Context, key string) ([]string, error) {
	k, err := a.key(key)
	if err != nil {
		return nil, err
	}
	res, err := a.udf.Apply(ctx, a.writePolicy(ctx), k, udfSetScan, as.NewValue(a.cfg.SetBin))
	if err != nil {
		a.logger.Warn("aerospike set scan failed", "key", key, "error", err)
		return nil, err
	}

	members := []string{}
	list, ok := res.([]interface{})
	if !ok {
		return members, nil
	}
	for _, m := range list {
		members = append(members, formatBin(m))
	}
	return members, nil
}

// SetClear drops the set bin and leaves other bins of the record alone
func (a *AerospikeBackend) SetClear(ctx context.Context, key string) error {
	k, err := a.key(key)
	if err != nil {
		return err
	}
	if aerr := a.client.Put(a.writePolicy(ctx), k, as.BinMap{a.cfg.SetBin: nil}); aerr != nil {
		if aerr.Matches(types.KEY_NOT_FOUND_ERROR, types.BIN_NOT_FOUND) {
			return nil
		}
		return a.fail("set clear", key, aerr)
	}
	return nil
}

// Delete removes the whole record
func (a *AerospikeBackend) Delete(ctx context.Context, key string) error {
	k, err := a.key(key)
	if err != nil {
		return err
	}
	if _, aerr := a.client.Delete(a.writePolicy(ctx), k); aerr != nil {
		return a.fail("delete", key, aerr)
	}
	return nil
}

// Truncate removes every record of the configured set. Intended for tests
// and operator tooling.
func (a *AerospikeBackend) Truncate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if aerr := a.client.Truncate(nil, a.cfg.Namespace, a.cfg.SetName, nil); aerr != nil {
		return a.fail("truncate", a.cfg.SetName, aerr)
	}
	return nil
}

// Ping reports whether the client has at least one live node
func (a *AerospikeBackend) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !a.client.IsConnected() {
		return WithContext(ErrBackendUnavailable, map[string]interface{}{
			"backend": a.Name(),
			"reason":  "no connected nodes",
		})
	}
	return nil
}

// Close releases the client if this backend owns it
func (a *AerospikeBackend) Close() error {
	if a.ownsClient && a.client != nil {
		a.client.Close()
	}
	return nil
}

func (a *AerospikeBackend) applySet(ctx context.Context, key, function string, members []string) error {
	k, err := a.key(key)
	if err != nil {
		return err
	}
	list := make([]interface{}, len(members))
	for i, m := range members {
		list[i] = m
	}
	if _, err := a.udf.Apply(ctx, a.writePolicy(ctx), k, function, as.NewValue(a.cfg.SetBin), as.NewListValue(list)); err != nil {
		a.logger.Warn("aerospike set update failed", "key", key, "function", function, "error", err)
		return err
	}
	return nil
}

func (a *AerospikeBackend) getBin(ctx context.Context, op, key, bin string) (string, bool, error) {
	k, err := a.key(key)
	if err != nil {
		return "", false, err
	}
	rec, aerr := a.client.Get(a.readPolicy(ctx), k, bin)
	if aerr != nil {
		if aerr.Matches(types.KEY_NOT_FOUND_ERROR) {
			return "", false, nil
		}
		return "", false, a.fail(op, key, aerr)
	}
	v, ok := rec.Bins[bin]
	if !ok || v == nil {
		return "", false, nil
	}
	return formatBin(v), true, nil
}

func (a *AerospikeBackend) key(key string) (*as.Key, error) {
	if key == "" {
		return nil, WithContext(ErrInvalidKey, map[string]interface{}{"reason": "empty key"})
	}
	k, err := as.NewKey(a.cfg.Namespace, a.cfg.SetName, key)
	if err != nil {
		return nil, WithContext(ErrInvalidKey, map[string]interface{}{
			"key":    key,
			"reason": err.Error(),
		})
	}
	return k, nil
}

func checkField(field string) error {
	if field == "" {
		return WithContext(ErrInvalidField, map[string]interface{}{"reason": "empty field"})
	}
	return nil
}

// readPolicy and writePolicy carry the context deadline into the client's
// own timeout since the client API takes no context.
func (a *AerospikeBackend) readPolicy(ctx context.Context) *as.BasePolicy {
	p := as.NewPolicy()
	if d, ok := ctx.Deadline(); ok {
		p.TotalTimeout = time.Until(d)
	}
	return p
}

func (a *AerospikeBackend) writePolicy(ctx context.Context) *as.WritePolicy {
	p := as.NewWritePolicy(0, 0)
	p.SendKey = true
	if d, ok := ctx.Deadline(); ok {
		p.TotalTimeout = time.Until(d)
	}
	return p
}

func (a *AerospikeBackend) fail(op, key string, err as.Error) error {
	a.logger.Warn("aerospike operation failed", "operation", op, "key", key, "error", err)
	if err.Matches(types.TIMEOUT) {
		return fmt.Errorf("aerospike %s %q: %w", op, key, errors.Join(ErrTimeout, err))
	}
	return fmt.Errorf("aerospike %s %q: %w", op, key, errors.Join(ErrBackendUnavailable, err))
}

// formatBin renders a bin value the way RedisBackend would return it.
func formatBin(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
