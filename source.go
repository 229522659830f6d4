package globalcache

// Source is a domain object the cache can project. Attribute returns the raw
// value of a declared attribute; ok is false when the object has no such
// field, which the projector treats as an absent raw value.
//
// Domain types implement it explicitly rather than being read by reflection.
type Source interface {
	Attribute(name string) (value any, ok bool)
}

// Fields is a Source backed by a plain map, for ad-hoc objects and tests.
type Fields map[string]any

// Attribute implements Source
func (f Fields) Attribute(name string) (any, bool) {
	v, ok := f[name]
	return v, ok
}

// SourceFunc adapts a function to Source.
type SourceFunc func(name string) (any, bool)

// Attribute implements Source
func (fn SourceFunc) Attribute(name string) (any, bool) {
	return fn(name)
}
