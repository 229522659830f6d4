package globalcache

import (
	"strings"
)

// IndexKind distinguishes primary records from alternate-key records.
type IndexKind string

const (
	IndexByID    IndexKind = "id"
	IndexByLabel IndexKind = "label"
)

// Keyspace derives cache keys.
//
// Format: {namespace}:{entity_type}:{index_kind}:{identifier_1}[:{identifier_2}...]
// Example: INDUSTRIAL:device:label:5:device_label
//
// Keys are a pure function of their inputs; secondary-index redirection
// depends on that.
type Keyspace struct {
	namespace string
	delimiter string
}

// NewKeyspace creates a keyspace from a validated Config
func NewKeyspace(cfg Config) (Keyspace, error) {
	if err := cfg.Validate(); err != nil {
		return Keyspace{}, err
	}
	return Keyspace{namespace: cfg.Namespace, delimiter: cfg.Delimiter}, nil
}

// DefaultKeyspace uses DefaultNamespace and ":"
func DefaultKeyspace() Keyspace {
	return Keyspace{namespace: DefaultNamespace, delimiter: KeyDelimiter}
}

// Namespace returns the tenant tag
func (k Keyspace) Namespace() string {
	return k.namespace
}

// Key joins the components in order.
func (k Keyspace) Key(entityType string, kind IndexKind, identifiers ...string) string {
	parts := make([]string, 0, 3+len(identifiers))
	parts = append(parts, k.namespace, entityType, string(kind))
	parts = append(parts, identifiers...)
	return strings.Join(parts, k.delimiter)
}

// PrimaryKey returns the key of the record addressed by id
func (k Keyspace) PrimaryKey(entityType, id string) string {
	return k.Key(entityType, IndexByID, id)
}

// LabelKey returns the key of the alternate-key record built from components
func (k Keyspace) LabelKey(entityType string, components ...string) string {
	return k.Key(entityType, IndexByLabel, components...)
}

// BareLabelKey returns the alternate-key record for an already joined natural
// key such as "5:device_label". It equals LabelKey with the split components.
func (k Keyspace) BareLabelKey(entityType, bareKey string) string {
	return k.LabelKey(entityType, bareKey)
}

// JoinNaturalKey joins natural-key components the way BareLabelKey expects them.
func (k Keyspace) JoinNaturalKey(components ...string) string {
	return strings.Join(components, k.delimiter)
}
