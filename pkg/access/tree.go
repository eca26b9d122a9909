package access

import (
	"strings"
)

// Node is one leaf permission point of the compiled tree.
// Scope is the stable identifier used for storage, grant lists and checks;
// Description is purely informational.
type Node struct {
	Scope       string `yaml:"scope" json:"scope"`
	Description string `yaml:"description" json:"description"`
}

// child holds exactly one of the three child kinds of a branch.
type child struct {
	node   *Node
	branch *Branch
	value  any
}

// Branch is an internal node of the compiled access tree. It is immutable
// after compilation and may be shared (read-only) across many permits.
type Branch struct {
	model    Schema
	keys     []string
	children map[string]child

	// scopes is the flattened pre-order list of all nodes reachable under
	// this branch, fixed at compile time. Its order is the canonical order
	// for all downstream aggregate predicates.
	scopes []Node
}

// Option configures Compile and NewPermit.
type Option func(*options)

type options struct {
	prefix  string
	spacer  string
	granted []string
}

// WithPrefix seeds the root path segment of generated scopes (default "").
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithSpacer sets the separator joining scope path segments (default ".").
func WithSpacer(spacer string) Option {
	return func(o *options) {
		o.spacer = spacer
	}
}

// WithGranted sets the initial granted-scope list of a permit created via
// NewPermit. Compile ignores it.
func WithGranted(scopes ...string) Option {
	return func(o *options) {
		o.granted = append(o.granted, scopes...)
	}
}

func buildOptions(opts []Option) options {
	o := options{spacer: "."}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Compile walks the schema and produces the access tree. Leaf scopes are
// generated by joining the non-empty path segments with the spacer, starting
// from the prefix; literal entries keep their explicit scope untouched.
func Compile(schema Schema, opts ...Option) *Branch {
	o := buildOptions(opts)
	return compileBranch(schema, o.prefix, o.spacer)
}

func compileBranch(schema Schema, path, spacer string) *Branch {
	b := &Branch{
		model:    schema.clone(),
		children: make(map[string]child, len(schema)),
	}
	for _, f := range schema {
		scope := joinScope(spacer, path, f.Key)
		switch f.Entry.kind {
		case kindDescribed:
			n := &Node{Scope: scope, Description: f.Entry.description}
			b.put(f.Key, child{node: n})
		case kindLiteral:
			n := &Node{Scope: f.Entry.scope, Description: f.Entry.description}
			b.put(f.Key, child{node: n})
		case kindOpaque:
			b.put(f.Key, child{value: f.Entry.value})
		case kindSchema:
			b.put(f.Key, child{branch: compileBranch(f.Entry.schema, scope, spacer)})
		}
	}
	b.Each(func(n Node) {
		b.scopes = append(b.scopes, n)
	})
	return b
}

// joinScope joins the non-empty segments with the spacer, so an empty prefix
// (or an empty key) never produces a leading or doubled separator.
func joinScope(spacer string, segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, spacer)
}

func (b *Branch) put(key string, c child) {
	if _, exists := b.children[key]; !exists {
		b.keys = append(b.keys, key)
	}
	b.children[key] = c
}

// Keys returns the child keys in schema declaration order.
func (b *Branch) Keys() []string {
	keys := make([]string, len(b.keys))
	copy(keys, b.keys)
	return keys
}

// Node returns the leaf child for a key.
func (b *Branch) Node(key string) (Node, bool) {
	c, ok := b.children[key]
	if !ok || c.node == nil {
		return Node{}, false
	}
	return *c.node, true
}

// Branch returns the nested branch child for a key.
func (b *Branch) Branch(key string) (*Branch, bool) {
	c, ok := b.children[key]
	if !ok || c.branch == nil {
		return nil, false
	}
	return c.branch, true
}

// Value returns the opaque pass-through child for a key.
func (b *Branch) Value(key string) (any, bool) {
	c, ok := b.children[key]
	if !ok || c.branch != nil || c.node != nil {
		return nil, false
	}
	return c.value, true
}

// At descends nested branches along the given keys.
func (b *Branch) At(keys ...string) (*Branch, bool) {
	current := b
	for _, key := range keys {
		next, ok := current.Branch(key)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Each visits every leaf node reachable under the branch in pre-order,
// recursing into nested branches and skipping opaque children.
func (b *Branch) Each(visit func(Node)) {
	for _, key := range b.keys {
		c := b.children[key]
		switch {
		case c.node != nil:
			visit(*c.node)
		case c.branch != nil:
			c.branch.Each(visit)
		}
	}
}

// Scopes returns the flattened pre-order list of all nodes under the branch.
func (b *Branch) Scopes() []Node {
	scopes := make([]Node, len(b.scopes))
	copy(scopes, b.scopes)
	return scopes
}

// Model returns a deep copy of the schema this branch was compiled from.
// Mutating the returned schema never affects the tree (opaque values are
// shared, they are pass-through by contract).
func (b *Branch) Model() Schema {
	return b.model.clone()
}

// Permit creates an evaluator for an actor holding the given scopes,
// rooted at this branch.
func (b *Branch) Permit(granted ...string) *Permit {
	return newPermit(b, granted)
}
