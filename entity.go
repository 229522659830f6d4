package globalcache

import (
	"context"
	"time"
)

// Cache builds entity projections over one shared backend.
// It holds no per-entity state and does no locking; concurrent writers to the
// same key get whatever atomicity the backend gives single-field writes.
type Cache struct {
	backend Backend
	keys    Keyspace
	logger  Logger
	metrics Metrics
}

// NewCache creates a cache with no-op logger and metrics
func NewCache(backend Backend) *Cache {
	return &Cache{
		backend: backend,
		keys:    DefaultKeyspace(),
		logger:  &NoOpLogger{},
		metrics: &NoOpMetrics{},
	}
}

// NewCacheWithLogger creates a cache with a custom logger
func NewCacheWithLogger(backend Backend, logger Logger) *Cache {
	c := NewCache(backend)
	c.logger = WithFields(logger, "component", "cache")
	return c
}

// NewCacheWithObservability creates a cache with logging and metrics
func NewCacheWithObservability(backend Backend, logger Logger, metrics Metrics) *Cache {
	c := NewCacheWithLogger(backend, logger)
	if metrics != nil {
		c.metrics = metrics
	}
	return c
}

// WithKeyspace sets the key layout
func (c *Cache) WithKeyspace(keys Keyspace) *Cache {
	c.keys = keys
	return c
}

// Backend returns the underlying backend
func (c *Cache) Backend() Backend {
	return c.backend
}

// Keyspace returns the key layout
func (c *Cache) Keyspace() Keyspace {
	return c.keys
}

// AttributeValue is one attribute as read from the backend.
type AttributeValue struct {
	Attribute string
	Value     string
	Found     bool
	// Key is the record the value was read from; for dereferenced reads
	// this is the primary record.
	Key string
}

// Entity is the projection of one domain object onto a cache record.
type Entity struct {
	cache  *Cache
	etype  *EntityType
	source Source
	key    string
	values map[string]string
}

// Entity projects src as a primary entity. The key comes from the mapped
// value of the type's reference attribute.
func (c *Cache) Entity(t *EntityType, src Source) (*Entity, error) {
	id, found, err := t.MapAttribute(src, t.Reference())
	if err != nil {
		return nil, err
	}
	if !found || id == "" {
		return nil, WithContext(ErrMissingKeyField, map[string]interface{}{
			"entity":    t.Name(),
			"attribute": t.Reference(),
		})
	}
	return c.newEntity(t, src, c.keys.PrimaryKey(t.Name(), id)), nil
}

// EntityByID opens the primary entity stored under id, without a source.
// It can be read and deleted but not saved.
func (c *Cache) EntityByID(t *EntityType, id string) *Entity {
	return c.newEntity(t, nil, c.keys.PrimaryKey(t.Name(), id))
}

func (c *Cache) newEntity(t *EntityType, src Source, key string) *Entity {
	return &Entity{
		cache:  c,
		etype:  t,
		source: src,
		key:    key,
		values: make(map[string]string),
	}
}

// Key returns the record key, fixed at construction
func (e *Entity) Key() string {
	return e.key
}

// Type returns the entity type
func (e *Entity) Type() *EntityType {
	return e.etype
}

// Attributes returns the declared attributes in order
func (e *Entity) Attributes() []string {
	return e.etype.Attributes()
}

// Get returns the in-memory value of attr as of the last save or read
func (e *Entity) Get(attr string) (string, bool) {
	v, ok := e.values[attr]
	return v, ok
}

// Values returns a copy of the in-memory attribute values
func (e *Entity) Values() map[string]string {
	out := make(map[string]string, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Save maps every declared attribute of the source and writes it to the
// record. Absent mapped values remove the field. All mappers run before the
// first write, so a failing mapper leaves the record untouched; a backend
// failure mid-way can leave it partially updated.
func (e *Entity) Save(ctx context.Context) error {
	if e.source == nil {
		return WithContext(ErrNoSource, map[string]interface{}{"key": e.key})
	}

	start := time.Now()
	mapped := make([]AttributeValue, 0, len(e.etype.attributes))
	for _, attr := range e.etype.attributes {
		value, found, err := e.etype.MapAttribute(e.source, attr)
		if err != nil {
			e.cache.metrics.Increment(MetricEntitySaveError, "entity", e.etype.Name())
			e.cache.logger.Error("attribute mapping failed", "key", e.key, "attribute", attr, "error", err)
			return err
		}
		mapped = append(mapped, AttributeValue{Attribute: attr, Value: value, Found: found, Key: e.key})
	}

	backend := e.cache.backend
	for _, av := range mapped {
		var err error
		if av.Found {
			err = backend.MapPutValue(ctx, e.key, av.Attribute, av.Value)
		} else {
			err = backend.MapDeleteValue(ctx, e.key, av.Attribute)
		}
		if err != nil {
			e.cache.metrics.Increment(MetricEntitySaveError, "entity", e.etype.Name())
			return err
		}
		if av.Found {
			e.values[av.Attribute] = av.Value
		} else {
			delete(e.values, av.Attribute)
		}
	}

	e.cache.metrics.Increment(MetricEntitySave, "entity", e.etype.Name())
	e.cache.metrics.Timing(MetricBackendLatency, time.Since(start), "operation", "entity_save", "backend", backend.Name())
	e.cache.logger.Debug("entity saved", "key", e.key, "attributes", len(mapped))
	return nil
}

// GetAllAttributes reads every declared attribute from the record and
// refreshes the in-memory values. A missing record yields all-absent values.
func (e *Entity) GetAllAttributes(ctx context.Context) (map[string]AttributeValue, error) {
	attrs, err := readAttributes(ctx, e.cache.backend, e.etype, e.key)
	if err != nil {
		return nil, err
	}
	e.cache.metrics.Increment(MetricEntityRead, "entity", e.etype.Name())
	e.load(attrs)
	return attrs, nil
}

// Delete removes the record and clears every in-memory value.
func (e *Entity) Delete(ctx context.Context) error {
	if err := e.cache.backend.Delete(ctx, e.key); err != nil {
		return err
	}
	e.values = make(map[string]string)
	e.cache.metrics.Increment(MetricEntityDelete, "entity", e.etype.Name())
	e.cache.logger.Debug("entity deleted", "key", e.key)
	return nil
}

func (e *Entity) load(attrs map[string]AttributeValue) {
	e.values = make(map[string]string, len(attrs))
	for name, av := range attrs {
		if av.Found {
			e.values[name] = av.Value
		}
	}
}

func readAttributes(ctx context.Context, backend Backend, t *EntityType, key string) (map[string]AttributeValue, error) {
	record, err := backend.MapGetAll(ctx, key)
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]AttributeValue, len(t.attributes))
	for _, attr := range t.attributes {
		v, found := record[attr]
		attrs[attr] = AttributeValue{Attribute: attr, Value: v, Found: found, Key: key}
	}
	return attrs, nil
}

// absentAttributes is the result of a read that found nothing to read.
func absentAttributes(t *EntityType) map[string]AttributeValue {
	attrs := make(map[string]AttributeValue, len(t.attributes))
	for _, attr := range t.attributes {
		attrs[attr] = AttributeValue{Attribute: attr}
	}
	return attrs
}
