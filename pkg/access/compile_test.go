package access

import (
	"reflect"
	"testing"
)

func todoSchema() Schema {
	return Schema{
		{"todo", Group(Schema{
			{"view", Literal("@view", "view todos")},
			{"action", Group(Schema{
				{"create", Describe("create a todo")},
				{"update", Describe("update a todo")},
				{"delete", Describe("delete a todo")},
			})},
		})},
	}
}

func TestScopeGeneration(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
		opts   []Option
		path   []string
		key    string
		want   string
	}{
		{
			name: "Default Options - Nested Path",
			schema: Schema{
				{"todo", Group(Schema{
					{"action", Group(Schema{
						{"create", Describe("x")},
					})},
				})},
			},
			path: []string{"todo", "action"},
			key:  "create",
			want: "todo.action.create",
		},
		{
			name: "Prefix And Spacer",
			schema: Schema{
				{"todo", Group(Schema{
					{"view", Describe("x")},
				})},
			},
			opts: []Option{WithPrefix("@"), WithSpacer("-")},
			path: []string{"todo"},
			key:  "view",
			want: "@-todo-view",
		},
		{
			name: "Top Level Leaf",
			schema: Schema{
				{"login", Describe("log in")},
			},
			key:  "login",
			want: "login",
		},
		{
			name: "Prefix Only",
			schema: Schema{
				{"login", Describe("log in")},
			},
			opts: []Option{WithPrefix("app")},
			key:  "login",
			want: "app.login",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Compile(tt.schema, tt.opts...)
			branch, ok := tree.At(tt.path...)
			if !ok {
				t.Fatalf("At(%v) not found", tt.path)
			}
			node, ok := branch.Node(tt.key)
			if !ok {
				t.Fatalf("Node(%q) not found", tt.key)
			}
			if node.Scope != tt.want {
				t.Errorf("scope = %q, want %q", node.Scope, tt.want)
			}
		})
	}
}

func TestLiteralBypassesGeneration(t *testing.T) {
	schema := Schema{
		{"todo", Group(Schema{
			{"view", Literal("@view", "view todos")},
		})},
	}

	// prefix and spacer must not leak into a literal scope
	tree := Compile(schema, WithPrefix("deep"), WithSpacer("/"))
	branch, _ := tree.Branch("todo")
	node, ok := branch.Node("view")
	if !ok {
		t.Fatal("todo.view not found")
	}
	if node.Scope != "@view" {
		t.Errorf("scope = %q, want %q", node.Scope, "@view")
	}
	if node.Description != "view todos" {
		t.Errorf("description = %q, want %q", node.Description, "view todos")
	}
}

func TestScopesOrderAndCount(t *testing.T) {
	tree := Compile(todoSchema())

	want := []string{"@view", "todo.action.create", "todo.action.update", "todo.action.delete"}
	scopes := tree.Scopes()
	if len(scopes) != len(want) {
		t.Fatalf("len(scopes) = %d, want %d", len(scopes), len(want))
	}
	for i, n := range scopes {
		if n.Scope != want[i] {
			t.Errorf("scopes[%d] = %q, want %q", i, n.Scope, want[i])
		}
	}

	// a sub-branch flattens only its own subtree
	action, _ := tree.At("todo", "action")
	if got := len(action.Scopes()); got != 3 {
		t.Errorf("len(action scopes) = %d, want 3", got)
	}
}

func TestEachVisitsPreOrder(t *testing.T) {
	tree := Compile(todoSchema())

	var visited []string
	tree.Each(func(n Node) {
		visited = append(visited, n.Scope)
	})

	want := []string{"@view", "todo.action.create", "todo.action.update", "todo.action.delete"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("visited = %v, want %v", visited, want)
	}
}

func TestOpaqueExcludedFromTraversal(t *testing.T) {
	callback := func() {}
	schema := Schema{
		{"tags", Opaque([]any{"a", "b"})},
		{"hook", Opaque(callback)},
		{"view", Describe("view")},
	}
	tree := Compile(schema)

	if got := len(tree.Scopes()); got != 1 {
		t.Fatalf("len(scopes) = %d, want 1", got)
	}
	if _, ok := tree.Value("tags"); !ok {
		t.Error("opaque value 'tags' not accessible")
	}
	if _, ok := tree.Value("hook"); !ok {
		t.Error("opaque value 'hook' not accessible")
	}
	if _, ok := tree.Node("tags"); ok {
		t.Error("opaque value 'tags' must not be a node")
	}
}

func TestMalformedLeafBecomesEmptyBranch(t *testing.T) {
	// scalars that are neither string, literal, sequence nor mapping are
	// absorbed as an empty nested schema
	schema := Schema{
		{"weird", classify(42)},
		{"view", Describe("view")},
	}
	tree := Compile(schema)

	branch, ok := tree.Branch("weird")
	if !ok {
		t.Fatal("malformed leaf did not compile to a branch")
	}
	if got := len(branch.Scopes()); got != 0 {
		t.Errorf("len(scopes) = %d, want 0", got)
	}
}

func TestModelIsDefensiveCopy(t *testing.T) {
	schema := todoSchema()
	tree := Compile(schema)

	model := tree.Model()
	if len(model) != 1 || model[0].Key != "todo" {
		t.Fatalf("unexpected model: %v", model)
	}

	// mutating the returned model must not affect the tree
	nested, _ := model[0].Entry.Schema()
	nested[0] = Field{Key: "hacked", Entry: Describe("nope")}
	model[0] = Field{Key: "hacked", Entry: Describe("nope")}

	fresh := tree.Model()
	if fresh[0].Key != "todo" {
		t.Error("mutation of a returned model leaked into the tree")
	}
	freshNested, _ := fresh[0].Entry.Schema()
	if freshNested[0].Key != "view" {
		t.Error("mutation of a nested returned schema leaked into the tree")
	}

	// mutating the input schema after compilation must not affect the tree
	schema[0] = Field{Key: "other", Entry: Describe("nope")}
	if _, ok := tree.Branch("todo"); !ok {
		t.Error("mutation of the input schema leaked into the tree")
	}
}

func TestDuplicateKeyKeepsPositionLastEntryWins(t *testing.T) {
	schema := Schema{}.
		Set("a", Describe("first")).
		Set("b", Describe("second")).
		Set("a", Describe("replaced"))

	tree := Compile(schema)
	if got := tree.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("keys = %v, want [a b]", got)
	}
	node, _ := tree.Node("a")
	if node.Description != "replaced" {
		t.Errorf("description = %q, want %q", node.Description, "replaced")
	}
}
