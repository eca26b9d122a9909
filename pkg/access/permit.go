package access

import "slices"

// Permit is a single-actor authorization view over an access tree. It owns a
// cache of one boolean per scope and the current View snapshot, and assumes a
// single logical writer at a time (no internal locking).
//
// The cache is total: Reset (and construction) seeds every scope the tree
// declares, so reads never mutate state and Granted/Denied always partition
// the full scope list.
type Permit struct {
	tree    *Branch
	granted []string
	cache   map[string]bool
	view    *View
}

func newPermit(tree *Branch, granted []string) *Permit {
	p := &Permit{
		tree:    tree,
		granted: slices.Clone(granted),
	}
	p.Reset()
	return p
}

// NewPermit compiles the schema and creates a permit in one step. It accepts
// the Compile options plus WithGranted for the initial granted-scope list.
func NewPermit(schema Schema, opts ...Option) *Permit {
	o := buildOptions(opts)
	return Compile(schema, opts...).Permit(o.granted...)
}

// Reset rebuilds the cache from the granted-scope list captured at
// construction and replaces the snapshot. Every scope the tree declares ends
// up present in the cache.
func (p *Permit) Reset() {
	p.cache = make(map[string]bool, len(p.tree.scopes))
	p.tree.Each(func(n Node) {
		p.cache[n.Scope] = slices.Contains(p.granted, n.Scope)
	})
	p.view = generateView(p.tree, p.cache)
}

// Check reports whether the scope is currently granted. Unknown scopes
// report false. Check never mutates the permit.
func (p *Permit) Check(scope string) bool {
	return p.cache[scope]
}

// Grant sets the given scopes to granted. Scopes the tree does not declare
// are silently ignored. The snapshot is replaced once, after all scopes have
// been applied.
func (p *Permit) Grant(scopes ...string) {
	p.apply(true, scopes)
}

// Deny sets the given scopes to denied. Scopes the tree does not declare are
// silently ignored. The snapshot is replaced once, after all scopes have
// been applied.
func (p *Permit) Deny(scopes ...string) {
	p.apply(false, scopes)
}

func (p *Permit) apply(value bool, scopes []string) {
	for _, scope := range scopes {
		if _, known := p.cache[scope]; known {
			p.cache[scope] = value
		}
	}
	p.view = generateView(p.tree, p.cache)
}

// Granted returns the nodes whose scope is currently granted, in tree order.
func (p *Permit) Granted() []Node {
	return p.filter(true)
}

// Denied returns the nodes whose scope is currently denied, in tree order.
func (p *Permit) Denied() []Node {
	return p.filter(false)
}

func (p *Permit) filter(value bool) []Node {
	var nodes []Node
	for _, n := range p.tree.scopes {
		if p.cache[n.Scope] == value {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Scopes returns every node the underlying tree declares.
func (p *Permit) Scopes() []Node {
	return p.tree.Scopes()
}

// Is returns the current snapshot. Snapshots are frozen: a later Reset,
// Grant or Deny replaces the permit's snapshot but never changes one already
// handed out.
func (p *Permit) Is() *View {
	return p.view
}
