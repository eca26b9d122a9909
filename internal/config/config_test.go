package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "permitree.yaml")
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validDoc = `
schema:
  todo:
    view:
      scope: "@view"
      description: view todos
    action:
      create: create a todo
      delete: delete a todo
rules:
  - name: everyone
    match:
      allow_empty: true
    grant:
      scopes: ["@view"]
  - name: admins
    match:
      condition:
        groups:
          contains: admins
    grant:
      scopes: ["todo.action.create", "todo.action.delete"]
`

func TestLoadAndBuild(t *testing.T) {
	cfg, err := Load(writeConfig(t, validDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tree, engine, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := len(tree.Scopes()); got != 3 {
		t.Errorf("len(scopes) = %d, want 3", got)
	}
	if got := len(engine.Rules()); got != 2 {
		t.Errorf("len(rules) = %d, want 2", got)
	}
}

func TestBuildRejectsUnknownGrantedScope(t *testing.T) {
	doc := `
schema:
  view: view things
rules:
  - name: typo
    match:
      allow_empty: true
    grant:
      scopes: ["wiew"]
`
	cfg, err := Load(writeConfig(t, doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, _, err := cfg.Build(); err == nil || !strings.Contains(err.Error(), "unknown scope") {
		t.Errorf("Build() error = %v, want unknown scope error", err)
	}
}

func TestSchemaPathAndCompileOptions(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(schemaPath, []byte("todo:\n  view: view todos\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{
		SchemaPath: schemaPath,
		Options:    OptionsConfig{Prefix: "@", Spacer: "-"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	tree, _, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	scopes := tree.Scopes()
	if len(scopes) != 1 || scopes[0].Scope != "@-todo-view" {
		t.Errorf("scopes = %v, want [@-todo-view]", scopes)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "No Schema",
			doc:     `rules: []`,
			wantErr: "no schema configured",
		},
		{
			name: "Schema And SchemaPath",
			doc: `
schema:
  a: thing a
schema_path: other.yaml
`,
			wantErr: "provide one",
		},
		{
			name: "Unknown Audit Type",
			doc: `
schema:
  a: thing a
audit:
  enabled: true
  type: carrier-pigeon
`,
			wantErr: "unknown audit type",
		},
		{
			name: "File Audit Without Path",
			doc: `
schema:
  a: thing a
audit:
  enabled: true
  type: file
`,
			wantErr: "requires audit.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
