package globalcache

import (
	"context"
)

// NaturalKey derives the alternate-key components of a source object.
type NaturalKey func(t *EntityType, src Source) ([]string, error)

// KeyFromAttributes builds a NaturalKey from the mapped values of attrs, in
// order. Derived attributes (e.g. a label taken from a nested owner) work
// because the entity type's transforms are applied.
func KeyFromAttributes(attrs ...string) NaturalKey {
	return func(t *EntityType, src Source) ([]string, error) {
		components := make([]string, 0, len(attrs))
		for _, attr := range attrs {
			v, found, err := t.MapAttribute(src, attr)
			if err != nil {
				return nil, err
			}
			if !found || v == "" {
				return nil, WithContext(ErrMissingKeyField, map[string]interface{}{
					"entity":    t.Name(),
					"attribute": attr,
				})
			}
			components = append(components, v)
		}
		return components, nil
	}
}

// LabelType declares the alternate-key projection of a primary entity type.
// Records live under {namespace}:{type}:label:{components...} and carry the
// same attributes as the primary record.
type LabelType struct {
	primary    *EntityType
	naturalKey NaturalKey
}

// NewLabelType creates a label projection of primary keyed by key
func NewLabelType(primary *EntityType, key NaturalKey) *LabelType {
	return &LabelType{primary: primary, naturalKey: key}
}

// Primary returns the entity type this label type resolves to
func (l *LabelType) Primary() *EntityType {
	return l.primary
}

// LabelOrigin says how a LabelEntity was opened: FromSource or FromKey.
type LabelOrigin interface {
	labelOrigin()
}

// FromSource opens a label entity from a domain object. Saving it writes a
// full mirror of the primary record under the alternate key.
type FromSource struct {
	Source Source
}

// FromKey opens a label entity from an already joined natural key such as
// "5:device_label". It has no source and reads through to the primary record.
type FromKey struct {
	Key string
}

func (FromSource) labelOrigin() {}
func (FromKey) labelOrigin()    {}

// LabelEntity is an Entity stored under an alternate key.
type LabelEntity struct {
	*Entity
	label  *LabelType
	origin LabelOrigin
}

// ByLabel opens the alternate-key projection described by origin.
func (c *Cache) ByLabel(l *LabelType, origin LabelOrigin) (*LabelEntity, error) {
	var (
		key string
		src Source
	)
	switch o := origin.(type) {
	case FromSource:
		if o.Source == nil {
			return nil, WithContext(ErrNoSource, map[string]interface{}{"entity": l.primary.Name()})
		}
		components, err := l.naturalKey(l.primary, o.Source)
		if err != nil {
			return nil, err
		}
		key = c.keys.LabelKey(l.primary.Name(), components...)
		src = o.Source
	case FromKey:
		if o.Key == "" {
			return nil, WithContext(ErrInvalidKey, map[string]interface{}{
				"entity": l.primary.Name(),
				"reason": "empty natural key",
			})
		}
		key = c.keys.BareLabelKey(l.primary.Name(), o.Key)
	default:
		return nil, WithContext(ErrInvalidKey, map[string]interface{}{
			"entity": l.primary.Name(),
			"reason": "label origin required",
		})
	}

	return &LabelEntity{
		Entity: c.newEntity(l.primary, src, key),
		label:  l,
		origin: origin,
	}, nil
}

// Origin returns how the entity was opened
func (e *LabelEntity) Origin() LabelOrigin {
	return e.origin
}

// GetAllAttributesNested reads the primary id from this record's ref
// attribute and returns the primary record's attributes. The in-memory
// values are replaced with the primary's.
//
// When this record, or its ref attribute, is missing every attribute comes
// back absent and no error is returned. Backend failures are returned.
func (e *LabelEntity) GetAllAttributesNested(ctx context.Context, ref string) (map[string]AttributeValue, error) {
	if !e.etype.Declares(ref) {
		return nil, WithContext(ErrUnknownAttribute, map[string]interface{}{
			"entity":    e.etype.Name(),
			"attribute": ref,
		})
	}

	cache := e.cache
	id, found, err := cache.backend.MapGetValue(ctx, e.key, ref)
	if err != nil {
		return nil, err
	}
	if !found || id == "" {
		cache.metrics.Increment(MetricDereferenceMiss, "entity", e.etype.Name())
		cache.logger.Debug("label record missing, nothing to dereference", "key", e.key, "reference", ref)
		attrs := absentAttributes(e.etype)
		e.load(attrs)
		return attrs, nil
	}

	primary := cache.EntityByID(e.label.primary, id)
	attrs, err := primary.GetAllAttributes(ctx)
	if err != nil {
		return nil, err
	}
	cache.metrics.Increment(MetricEntityDereference, "entity", e.etype.Name())
	e.load(attrs)
	return attrs, nil
}

// Dereference is GetAllAttributesNested through the type's reference attribute.
func (e *LabelEntity) Dereference(ctx context.Context) (map[string]AttributeValue, error) {
	return e.GetAllAttributesNested(ctx, e.etype.Reference())
}
