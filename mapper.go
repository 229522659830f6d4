package globalcache

import (
	"fmt"
	"strings"
	"sync"
)

// Transform maps a raw attribute value to the value that is stored.
// src is the whole source object, so a transform may derive its result from
// other fields or from nested related objects. raw is nil when the source
// has no value for the attribute.
type Transform func(src Source, raw any) (any, error)

// Identity stores the raw value unchanged
func Identity(_ Source, raw any) (any, error) {
	return raw, nil
}

// Mappers maps attribute names to transforms. Attributes without an entry
// use Identity.
type Mappers map[string]Transform

// DefaultReferenceAttribute holds the primary id on every record
const DefaultReferenceAttribute = "id"

// EntityType describes one cached entity: its name, its ordered attribute
// list and the transform for each attribute. Transforms are resolved once,
// here, into a slice aligned with the attribute list.
type EntityType struct {
	name       string
	attributes []string
	transforms []Transform
	positions  map[string]int
	reference  string
}

// EntityTypeOption customizes NewEntityType
type EntityTypeOption func(*EntityType)

// WithReferenceAttribute sets the attribute that carries the primary id
func WithReferenceAttribute(name string) EntityTypeOption {
	return func(t *EntityType) {
		t.reference = name
	}
}

// NewEntityType validates the declaration and resolves its transforms.
func NewEntityType(name string, attributes []string, mappers Mappers, opts ...EntityTypeOption) (*EntityType, error) {
	if name == "" || strings.Contains(name, KeyDelimiter) {
		return nil, WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "name",
			"value":  name,
			"reason": "entity type name must be non-empty and free of key delimiters",
		})
	}

	t := &EntityType{
		name:       name,
		attributes: make([]string, 0, len(attributes)),
		transforms: make([]Transform, 0, len(attributes)),
		positions:  make(map[string]int, len(attributes)),
		reference:  DefaultReferenceAttribute,
	}
	for _, opt := range opts {
		opt(t)
	}

	for _, attr := range attributes {
		if _, dup := t.positions[attr]; dup {
			return nil, WithContext(ErrDuplicateAttribute, map[string]interface{}{
				"entity":    name,
				"attribute": attr,
			})
		}
		var transform Transform = Identity
		if m, ok := mappers[attr]; ok && m != nil {
			transform = m
		}
		t.positions[attr] = len(t.attributes)
		t.attributes = append(t.attributes, attr)
		t.transforms = append(t.transforms, transform)
	}

	for attr := range mappers {
		if _, ok := t.positions[attr]; !ok {
			return nil, WithContext(ErrUnknownAttribute, map[string]interface{}{
				"entity":    name,
				"attribute": attr,
				"reason":    "mapper registered for undeclared attribute",
			})
		}
	}

	if _, ok := t.positions[t.reference]; !ok {
		return nil, WithContext(ErrUnknownAttribute, map[string]interface{}{
			"entity":    name,
			"attribute": t.reference,
			"reason":    "reference attribute must be declared",
		})
	}

	return t, nil
}

// MustEntityType is NewEntityType for package-level declarations
func MustEntityType(name string, attributes []string, mappers Mappers, opts ...EntityTypeOption) *EntityType {
	t, err := NewEntityType(name, attributes, mappers, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the entity type name used in keys
func (t *EntityType) Name() string {
	return t.name
}

// Attributes returns the declared attributes in order
func (t *EntityType) Attributes() []string {
	out := make([]string, len(t.attributes))
	copy(out, t.attributes)
	return out
}

// Reference returns the attribute holding the primary id
func (t *EntityType) Reference() string {
	return t.reference
}

// Declares reports whether attr is declared
func (t *EntityType) Declares(attr string) bool {
	_, ok := t.positions[attr]
	return ok
}

// Transform returns the transform for attr, Identity when unmapped
func (t *EntityType) Transform(attr string) Transform {
	if i, ok := t.positions[attr]; ok {
		return t.transforms[i]
	}
	return Identity
}

// MapAttribute runs attr's transform over src and encodes the result.
func (t *EntityType) MapAttribute(src Source, attr string) (string, bool, error) {
	raw, _ := src.Attribute(attr)
	mapped, err := t.Transform(attr)(src, raw)
	if err != nil {
		return "", false, WithContext(fmt.Errorf("%w: %w", ErrMapperFailed, err), map[string]interface{}{
			"entity":    t.name,
			"attribute": attr,
		})
	}
	encoded, found, err := EncodeValue(mapped)
	if err != nil {
		return "", false, WithContext(err, map[string]interface{}{
			"entity":    t.name,
			"attribute": attr,
		})
	}
	return encoded, found, nil
}

// Registry holds entity types by name.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*EntityType
}

// NewRegistry creates a registry containing types
func NewRegistry(types ...*EntityType) (*Registry, error) {
	r := &Registry{types: make(map[string]*EntityType, len(types))}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an entity type; names must be unique
func (r *Registry) Register(t *EntityType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.name]; exists {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"entity": t.name,
			"reason": "entity type already registered",
		})
	}
	r.types[t.name] = t
	return nil
}

// Lookup returns the entity type registered under name
func (r *Registry) Lookup(name string) (*EntityType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	if !ok {
		return nil, WithContext(ErrUnknownEntityType, map[string]interface{}{"entity": name})
	}
	return t, nil
}

// Resolve returns the transform for attribute on entityType. Unknown types
// and unmapped attributes resolve to Identity.
func (r *Registry) Resolve(entityType, attribute string) Transform {
	r.mu.RLock()
	t, ok := r.types[entityType]
	r.mu.RUnlock()
	if !ok {
		return Identity
	}
	return t.Transform(attribute)
}

// Names returns the registered entity type names
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}
