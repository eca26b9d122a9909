package access

import (
	"reflect"
	"testing"
)

// the reference scenario: one literal leaf, three generated ones
func todoPermit(granted ...string) *Permit {
	return Compile(todoSchema()).Permit(granted...)
}

func TestPermitScenario(t *testing.T) {
	p := todoPermit("todo.action.create", "@view")

	is := p.Is()
	todo, ok := is.Branch("todo")
	if !ok {
		t.Fatal("view branch 'todo' missing")
	}

	view, _ := todo.Node("view")
	if !view.OK {
		t.Error("todo.view.OK = false, want true")
	}
	if !todo.Some {
		t.Error("todo.Some = false, want true")
	}

	action, _ := todo.Branch("action")
	if !action.Some {
		t.Error("todo.action.Some = false, want true")
	}
	if action.All {
		t.Error("todo.action.All = true, want false")
	}
	create, _ := action.Node("create")
	if create.No {
		t.Error("todo.action.create.No = true, want false")
	}

	if !p.Check("@view") {
		t.Error(`Check("@view") = false, want true`)
	}
	if p.Check("todo.action.update") {
		t.Error(`Check("todo.action.update") = true, want false`)
	}
}

func TestCheckUnknownScopeIsFalse(t *testing.T) {
	p := todoPermit("@view")
	if p.Check("does.not.exist") {
		t.Error("unknown scope must check false")
	}
}

func TestGrantDenyFlip(t *testing.T) {
	p := todoPermit()

	if p.Check("todo.action.create") {
		t.Fatal("scope granted before Grant")
	}

	p.Grant("todo.action.create")
	if !p.Check("todo.action.create") {
		t.Error("Check = false after Grant")
	}
	action, _ := p.Is().At("todo", "action")
	if create, _ := action.Node("create"); !create.OK {
		t.Error("view OK = false after Grant")
	}

	p.Deny("todo.action.create")
	if p.Check("todo.action.create") {
		t.Error("Check = true after Deny")
	}
	action, _ = p.Is().At("todo", "action")
	if create, _ := action.Node("create"); create.OK {
		t.Error("view OK = true after Deny")
	}
}

func TestGrantUnknownScopeIgnored(t *testing.T) {
	p := todoPermit()
	p.Grant("not.a.scope")

	if p.Check("not.a.scope") {
		t.Error("unknown scope must not be created by Grant")
	}
	if got := len(p.Granted()); got != 0 {
		t.Errorf("len(Granted) = %d, want 0", got)
	}
}

func TestResetIdempotent(t *testing.T) {
	p := todoPermit("@view")

	p.Grant("todo.action.create")
	p.Reset()
	first := snapshotBools(p)

	p.Reset()
	second := snapshotBools(p)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("reset not idempotent: %v vs %v", first, second)
	}
	if p.Check("todo.action.create") {
		t.Error("Reset must drop a later Grant")
	}
	if !p.Check("@view") {
		t.Error("Reset must restore the construction-time grant")
	}
}

// snapshotBools flattens all observable booleans of the current snapshot.
func snapshotBools(p *Permit) map[string]bool {
	out := make(map[string]bool)
	var walk func(prefix string, v *View)
	walk = func(prefix string, v *View) {
		out[prefix+"/some"] = v.Some
		out[prefix+"/none"] = v.None
		out[prefix+"/all"] = v.All
		for _, key := range v.Keys() {
			if n, ok := v.Node(key); ok {
				out[prefix+"/"+key+"/ok"] = n.OK
				out[prefix+"/"+key+"/no"] = n.No
				continue
			}
			sub, _ := v.Branch(key)
			walk(prefix+"/"+key, sub)
		}
	}
	walk("", p.Is())
	return out
}

func TestEmptyBranchAggregates(t *testing.T) {
	schema := Schema{
		{"empty", Group(nil)},
		{"view", Describe("view")},
	}
	p := Compile(schema).Permit("view")

	empty, ok := p.Is().Branch("empty")
	if !ok {
		t.Fatal("empty branch missing from view")
	}
	if empty.All {
		t.Error("empty branch All = true, want false (no vacuous truth)")
	}
	if !empty.None {
		t.Error("empty branch None = false, want true")
	}
	if empty.Some {
		t.Error("empty branch Some = true, want false")
	}
}

func TestAggregates(t *testing.T) {
	tests := []struct {
		name    string
		granted []string
		some    bool
		none    bool
		all     bool
	}{
		{
			name: "Nothing Granted",
			some: false, none: true, all: false,
		},
		{
			name:    "Partially Granted",
			granted: []string{"todo.action.update"},
			some:    true, none: false, all: false,
		},
		{
			name:    "Fully Granted",
			granted: []string{"todo.action.create", "todo.action.update", "todo.action.delete"},
			some:    true, none: false, all: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := todoPermit(tt.granted...)
			action, _ := p.Is().At("todo", "action")
			if action.Some != tt.some {
				t.Errorf("Some = %v, want %v", action.Some, tt.some)
			}
			if action.None != tt.none {
				t.Errorf("None = %v, want %v", action.None, tt.none)
			}
			if action.All != tt.all {
				t.Errorf("All = %v, want %v", action.All, tt.all)
			}
		})
	}
}

func TestSnapshotIsFrozen(t *testing.T) {
	p := todoPermit()

	before := p.Is()
	p.Grant("todo.action.create", "todo.action.update")
	after := p.Is()

	if before == after {
		t.Fatal("mutation did not produce a new snapshot")
	}

	// the earlier snapshot must not retroactively update
	action, _ := before.At("todo", "action")
	if action.Some {
		t.Error("frozen snapshot changed after Grant")
	}
	if create, _ := action.Node("create"); create.OK {
		t.Error("frozen snapshot node changed after Grant")
	}

	// the new one reflects both scopes of the single batched call
	action, _ = after.At("todo", "action")
	if !action.Some {
		t.Error("new snapshot missing granted scopes")
	}
	update, _ := action.Node("update")
	if !update.OK {
		t.Error("second scope of the batched Grant not applied")
	}
}

func TestGrantedDeniedPartition(t *testing.T) {
	p := todoPermit("@view", "todo.action.delete")

	granted := p.Granted()
	denied := p.Denied()

	if got := len(granted) + len(denied); got != len(p.Scopes()) {
		t.Fatalf("granted+denied = %d, want %d", got, len(p.Scopes()))
	}

	wantGranted := []string{"@view", "todo.action.delete"}
	var gotGranted []string
	for _, n := range granted {
		gotGranted = append(gotGranted, n.Scope)
	}
	if !reflect.DeepEqual(gotGranted, wantGranted) {
		t.Errorf("granted = %v, want %v", gotGranted, wantGranted)
	}
}

func TestNewPermitConvenience(t *testing.T) {
	p := NewPermit(Schema{
		{"todo", Group(Schema{
			{"view", Describe("view")},
		})},
	}, WithPrefix("@"), WithSpacer("-"), WithGranted("@-todo-view"))

	if !p.Check("@-todo-view") {
		t.Error("NewPermit did not apply prefix/spacer/granted options")
	}
	todo, _ := p.Is().Branch("todo")
	if !todo.All {
		t.Error("All = false, want true for fully granted branch")
	}
}

func TestViewIsomorphicToTree(t *testing.T) {
	tree := Compile(todoSchema())
	p := tree.Permit()

	var walk func(b *Branch, v *View)
	walk = func(b *Branch, v *View) {
		// opaque children are the only asymmetry allowed
		var treeKeys []string
		for _, key := range b.Keys() {
			if _, ok := b.Value(key); !ok {
				treeKeys = append(treeKeys, key)
			}
		}
		if !reflect.DeepEqual(treeKeys, v.Keys()) {
			t.Fatalf("keys differ: tree %v, view %v", treeKeys, v.Keys())
		}
		for _, key := range treeKeys {
			if sub, ok := b.Branch(key); ok {
				vsub, ok := v.Branch(key)
				if !ok {
					t.Fatalf("view missing branch %q", key)
				}
				walk(sub, vsub)
				continue
			}
			if _, ok := v.Node(key); !ok {
				t.Fatalf("view missing node %q", key)
			}
		}
	}
	walk(tree, p.Is())
}
