package access

// ViewNode mirrors a Node and carries the decision for its scope at snapshot
// time. No is the negation of OK, so it is true when the scope was denied.
type ViewNode struct {
	Node
	OK bool
	No bool
}

// viewChild holds exactly one of the two child kinds of a view. Opaque
// schema children have no decision and do not appear in views.
type viewChild struct {
	node   *ViewNode
	branch *View
}

// View is a frozen snapshot of a permit, structurally isomorphic to the
// branch it mirrors. The aggregates are computed over the branch's own
// flattened scope list:
//
//   - Some: at least one scope granted
//   - None: no scope granted (true for an empty list)
//   - All: every scope granted, and the list is not empty (an empty branch
//     deliberately reports All == false, not vacuous truth)
type View struct {
	Some bool
	None bool
	All  bool

	keys     []string
	children map[string]viewChild
}

// generateView materializes a fresh snapshot of the branch against the
// cache. The cache is total at this point, so this is a pure read.
func generateView(b *Branch, cache map[string]bool) *View {
	v := &View{
		None:     true,
		All:      len(b.scopes) > 0,
		children: make(map[string]viewChild, len(b.children)),
	}
	for _, n := range b.scopes {
		if cache[n.Scope] {
			v.Some = true
			v.None = false
		} else {
			v.All = false
		}
	}
	for _, key := range b.keys {
		c := b.children[key]
		switch {
		case c.node != nil:
			ok := cache[c.node.Scope]
			v.keys = append(v.keys, key)
			v.children[key] = viewChild{node: &ViewNode{Node: *c.node, OK: ok, No: !ok}}
		case c.branch != nil:
			v.keys = append(v.keys, key)
			v.children[key] = viewChild{branch: generateView(c.branch, cache)}
		}
	}
	return v
}

// Keys returns the child keys in schema declaration order.
func (v *View) Keys() []string {
	keys := make([]string, len(v.keys))
	copy(keys, v.keys)
	return keys
}

// Node returns the leaf child for a key.
func (v *View) Node(key string) (ViewNode, bool) {
	c, ok := v.children[key]
	if !ok || c.node == nil {
		return ViewNode{}, false
	}
	return *c.node, true
}

// Branch returns the nested view for a key.
func (v *View) Branch(key string) (*View, bool) {
	c, ok := v.children[key]
	if !ok || c.branch == nil {
		return nil, false
	}
	return c.branch, true
}

// At descends nested views along the given keys.
func (v *View) At(keys ...string) (*View, bool) {
	current := v
	for _, key := range keys {
		next, ok := current.Branch(key)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}
