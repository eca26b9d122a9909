package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/darmiel/permitree/internal/policy"
	"github.com/darmiel/permitree/pkg/access"
)

// Config is the full CLI configuration: the access schema, its compile
// options and the optional grant-resolution rules.
type Config struct {
	// Schema is the inline access schema. Provide either Schema or
	// SchemaPath, not both.
	Schema access.Schema `yaml:"schema"`

	// SchemaPath points to a separate schema YAML file.
	SchemaPath string `yaml:"schema_path"`

	Options OptionsConfig `yaml:"options"`
	Rules   []policy.Rule `yaml:"rules"`
	Audit   AuditConfig   `yaml:"audit"`
}

// OptionsConfig holds the scope-generation options.
type OptionsConfig struct {
	// Prefix seeds the root path segment of generated scopes.
	Prefix string `yaml:"prefix"`

	// Spacer joins scope path segments (default ".").
	Spacer string `yaml:"spacer"`
}

// AuditConfig holds configuration for decision auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g. "file", "memory"
}

// Load reads and parses the configuration file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Schema) > 0 && c.SchemaPath != "" {
		return fmt.Errorf("both schema and schema_path are set; provide one")
	}
	if len(c.Schema) == 0 && c.SchemaPath == "" {
		return fmt.Errorf("no schema configured; set schema or schema_path")
	}
	switch c.Audit.Type {
	case "", "file", "memory":
	default:
		return fmt.Errorf("unknown audit type '%s'", c.Audit.Type)
	}
	if c.Audit.Enabled && c.Audit.Type == "file" && c.Audit.Path == "" {
		return fmt.Errorf("audit type 'file' requires audit.path")
	}
	return nil
}

// CompileOptions translates the config into access compile options.
func (c *Config) CompileOptions() []access.Option {
	var opts []access.Option
	if c.Options.Prefix != "" {
		opts = append(opts, access.WithPrefix(c.Options.Prefix))
	}
	if c.Options.Spacer != "" {
		opts = append(opts, access.WithSpacer(c.Options.Spacer))
	}
	return opts
}

// Build compiles the access tree and the rule engine, and cross-checks that
// every scope a rule grants actually exists in the tree. Unknown scopes
// would be silently ignored by a permit; at config level that is almost
// certainly a typo, so it fails loudly here.
func (c *Config) Build() (*access.Branch, *policy.Engine, error) {
	schema := c.Schema
	if c.SchemaPath != "" {
		loaded, err := access.LoadSchema(c.SchemaPath)
		if err != nil {
			return nil, nil, err
		}
		schema = loaded
	}

	tree := access.Compile(schema, c.CompileOptions()...)

	engine, err := policy.CompileRules(c.Rules)
	if err != nil {
		return nil, nil, fmt.Errorf("compiling rules: %w", err)
	}

	known := make(map[string]struct{})
	tree.Each(func(n access.Node) {
		known[n.Scope] = struct{}{}
	})
	for _, rule := range engine.Rules() {
		for _, scope := range rule.Grant.Scopes {
			if _, ok := known[scope]; !ok {
				return nil, nil, fmt.Errorf("rule '%s' grants unknown scope '%s'", rule.Name, scope)
			}
		}
	}

	return tree, engine, nil
}
