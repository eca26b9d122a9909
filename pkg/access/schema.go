// Package access compiles a declarative description of an application's
// access points (pages, actions, ...) into a navigable tree of scopes,
// and evaluates per-actor permits against that tree.
package access

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Schema is the declarative input: an ordered mapping from key to Entry.
// Declaration order is preserved (document order for YAML, slice order for
// programmatic construction) and defines the traversal order of everything
// derived from the schema.
type Schema []Field

// Field is one key/entry pair of a Schema.
type Field struct {
	Key   string
	Entry Entry
}

type entryKind int

const (
	// kindSchema is the zero value on purpose: anything we cannot make
	// sense of is absorbed as a (possibly empty) nested schema.
	kindSchema entryKind = iota
	kindDescribed
	kindLiteral
	kindOpaque
)

// Entry is one child of a Schema. It is a closed union with four cases,
// decided exactly once at ingestion:
//
//   - a described leaf: a plain description string, the scope is generated
//     from the tree path ("todo.action.create")
//   - a literal leaf: scope and description given explicitly, the scope is
//     used verbatim and bypasses generation entirely
//   - an opaque value: kept on the branch but excluded from traversal and
//     flattening (escape hatch for sequences, callbacks, ...)
//   - a nested schema, compiled recursively
type Entry struct {
	kind        entryKind
	scope       string
	description string
	schema      Schema
	value       any
}

// Describe returns a leaf entry whose scope will be generated from its path.
func Describe(description string) Entry {
	return Entry{kind: kindDescribed, description: description}
}

// Literal returns a leaf entry with an explicit scope that bypasses scope
// generation. The description may be empty.
func Literal(scope, description string) Entry {
	return Entry{kind: kindLiteral, scope: scope, description: description}
}

// Group returns a nested schema entry.
func Group(schema Schema) Entry {
	return Entry{kind: kindSchema, schema: schema}
}

// Opaque returns a pass-through entry. The value is kept on the compiled
// branch but excluded from traversal and scope flattening.
func Opaque(value any) Entry {
	return Entry{kind: kindOpaque, value: value}
}

// Description returns the description of a leaf entry ("" otherwise).
func (e Entry) Description() string {
	return e.description
}

// Scope returns the explicit scope of a literal entry, and whether the entry
// is a literal.
func (e Entry) Scope() (string, bool) {
	return e.scope, e.kind == kindLiteral
}

// Schema returns the nested schema of a group entry, and whether the entry
// is a group.
func (e Entry) Schema() (Schema, bool) {
	if e.kind != kindSchema {
		return nil, false
	}
	return e.schema, true
}

// Value returns the raw value of an opaque entry, and whether the entry is
// opaque.
func (e Entry) Value() (any, bool) {
	return e.value, e.kind == kindOpaque
}

// Set appends (or replaces, keeping the original position) a key on the
// schema and returns the result, so schemas can be built incrementally.
func (s Schema) Set(key string, entry Entry) Schema {
	for i, f := range s {
		if f.Key == key {
			s[i].Entry = entry
			return s
		}
	}
	return append(s, Field{Key: key, Entry: entry})
}

// Get returns the entry for a key.
func (s Schema) Get(key string) (Entry, bool) {
	for _, f := range s {
		if f.Key == key {
			return f.Entry, true
		}
	}
	return Entry{}, false
}

// LoadSchema reads and parses a schema YAML file.
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing schema file: %w", err)
	}
	return schema, nil
}

// UnmarshalYAML parses a YAML mapping into a Schema, preserving document
// order.
func (s *Schema) UnmarshalYAML(data []byte) error {
	var ms yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(data, &ms, yaml.UseOrderedMap()); err != nil {
		return fmt.Errorf("schema must be a mapping: %w", err)
	}
	*s = schemaFromMapSlice(ms)
	return nil
}

// UnmarshalYAML classifies a YAML value into one of the four entry cases.
func (e *Entry) UnmarshalYAML(data []byte) error {
	var raw any
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.UseOrderedMap()); err != nil {
		return err
	}
	*e = classify(raw)
	return nil
}

// classify decides the entry case for a raw YAML value. The checks mirror
// the ingestion rules documented on Entry:
// explicit scope first, then plain string, then sequence, then nested.
func classify(raw any) Entry {
	if ms, ok := raw.(yaml.MapSlice); ok {
		if scope, ok := overrideScope(ms); ok {
			return Literal(scope, overrideDescription(ms))
		}
		return Group(schemaFromMapSlice(ms))
	}
	switch v := raw.(type) {
	case string:
		return Describe(v)
	case []any:
		return Opaque(v)
	default:
		// scalars, null, ... are silently absorbed as an empty schema
		return Group(nil)
	}
}

// overrideScope reports whether the mapping is a literal override, i.e.
// carries a "scope" key with a string value.
func overrideScope(ms yaml.MapSlice) (string, bool) {
	for _, item := range ms {
		if key, ok := item.Key.(string); ok && key == "scope" {
			if scope, ok := item.Value.(string); ok {
				return scope, true
			}
		}
	}
	return "", false
}

// overrideDescription returns the string "description" value of a literal
// override, defaulting to "" when absent or not a string.
func overrideDescription(ms yaml.MapSlice) string {
	for _, item := range ms {
		if key, ok := item.Key.(string); ok && key == "description" {
			if description, ok := item.Value.(string); ok {
				return description
			}
		}
	}
	return ""
}

func schemaFromMapSlice(ms yaml.MapSlice) Schema {
	schema := make(Schema, 0, len(ms))
	for _, item := range ms {
		key, ok := item.Key.(string)
		if !ok {
			key = fmt.Sprintf("%v", item.Key)
		}
		schema = schema.Set(key, classify(item.Value))
	}
	return schema
}

// MarshalYAML renders the schema back into an ordered YAML mapping, so a
// Model() round-trips.
func (s Schema) MarshalYAML() (any, error) {
	return s.mapSlice(), nil
}

// MarshalYAML renders the entry in its source form: a string for described
// leaves, a scope/description mapping for literals, the raw value for opaque
// entries and a nested mapping for groups.
func (e Entry) MarshalYAML() (any, error) {
	switch e.kind {
	case kindDescribed:
		return e.description, nil
	case kindLiteral:
		return yaml.MapSlice{
			{Key: "scope", Value: e.scope},
			{Key: "description", Value: e.description},
		}, nil
	case kindOpaque:
		return e.value, nil
	default:
		return e.schema.mapSlice(), nil
	}
}

func (s Schema) mapSlice() yaml.MapSlice {
	ms := make(yaml.MapSlice, 0, len(s))
	for _, f := range s {
		value, _ := f.Entry.MarshalYAML()
		ms = append(ms, yaml.MapItem{Key: f.Key, Value: value})
	}
	return ms
}

// clone deep-copies the schema. Opaque values are shared, everything else
// is copied.
func (s Schema) clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	for i, f := range s {
		f.Entry.schema = f.Entry.schema.clone()
		out[i] = f
	}
	return out
}
