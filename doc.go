// Package globalcache projects domain objects onto a shared key-value cache
// so that many services read the same flat records instead of querying the
// system of record.
//
// # Overview
//
// A cache record is a map of named string fields stored under a
// deterministic key. Two stores are supported behind one Backend interface:
//
//   - Redis: hashes, sets and HINCRBY counters (RedisBackend)
//   - Aerospike: records whose fields live in one map bin, sets emulated by
//     a Lua UDF
//     (AerospikeBackend)
//
// Callers never branch on which store they hold. Reads of missing keys,
// fields or members come back absent rather than as errors.
//
// # Quick Start
//
//	client := redis.NewClient(globalcache.RedisOptions())
//	cache := globalcache.NewCache(globalcache.NewRedisBackend(client))
//
//	device := &globalcache.Device{ID: "5f3c...", OwnerID: 5, Label: "pump"}
//
//	// Primary record: INDUSTRIAL:device:id:5f3c...
//	e, _ := cache.Entity(globalcache.DeviceType, device)
//	e.Save(ctx)
//
//	// Alternate-key record: INDUSTRIAL:device:label:5:pump
//	l, _ := cache.ByLabel(globalcache.DeviceByLabel, globalcache.FromSource{Source: device})
//	l.Save(ctx)
//
//	// Later, from a bare natural key
//	byKey, _ := cache.ByLabel(globalcache.DeviceByLabel, globalcache.FromKey{Key: "5:pump"})
//	attrs, _ := byKey.Dereference(ctx)
//
// # Keys
//
// Keys have the form {namespace}:{entity_type}:{index_kind}:{identifiers...}.
// The index kind is "id" for primary records and "label" for alternate-key
// records. A Keyspace builds them; the same inputs always give the same key.
//
// # Entity Types and Mappers
//
// An EntityType names an entity, lists its attributes in order and attaches
// a Transform to any attribute that needs one. Transforms see the whole
// Source, so derived attributes (a variable's owner taken from its device)
// are ordinary mappers. Mapped values are encoded with EncodeValue: nil means
// absent and removes the field on save.
//
// Domain types implement Source explicitly. Fields and SourceFunc cover
// ad-hoc objects.
//
// # Label Entities
//
// A LabelType mirrors a primary entity under an alternate key built from
// its natural key. A LabelEntity opened FromSource can be saved; one opened
// FromKey only reads, and GetAllAttributesNested follows its reference
// attribute to the primary record.
//
// # Observability and Resilience
//
// Wrap any backend to add metrics, logging and a circuit breaker:
//
//	logger, _ := globalcache.NewProductionZapLogger()
//	metrics := globalcache.NewPrometheusMetrics(prometheus.NewRegistry())
//
//	var backend globalcache.Backend = globalcache.NewRedisBackend(client)
//	backend = globalcache.NewInstrumentedBackend(backend, logger, metrics)
//	backend = globalcache.NewBreakerBackend(backend, globalcache.DefaultBreakerConfig("cache"), logger, metrics)
//
//	cache := globalcache.NewCacheWithObservability(backend, logger, metrics)
//
// Errors are sentinel values wrapped with context (see WithContext).
// IsRetryable reports store failures worth retrying; IsPermanent reports
// caller mistakes.
//
// # Aerospike
//
// Map fields are keys of a CDT map held in the fields bin, so attribute
// names are not bound by the 15-byte bin name limit. NewAerospikeBackend
// registers the embedded set UDF unless AerospikeConfig.SkipUDFRegistration
// is set; the `globalcache udf install` command does it out of band.
//
// # Messaging
//
// The messaging subpackage is a small MQTT publish/subscribe client used to
// broadcast cache changes between services.
package globalcache
