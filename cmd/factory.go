package cmd

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/pflag"

	"github.com/darmiel/permitree/internal/audit"
	"github.com/darmiel/permitree/internal/config"
	"github.com/darmiel/permitree/internal/policy"
	"github.com/darmiel/permitree/pkg/access"
)

// Factory collects the shared command flags and builds the tree, engine and
// auditor from them. Each command owns one instance.
type Factory struct {
	// ConfigPath is the full configuration (schema + rules + audit).
	ConfigPath string

	// SchemaPath is a schema-only YAML file, for commands that do not need
	// rules. Mutually exclusive with ConfigPath.
	SchemaPath string
	Prefix     string
	Spacer     string

	// Subject under evaluation.
	SubjectID string
	Attrs     []string

	// Granted is the static granted-scope list (next to whatever the rules
	// resolve).
	Granted []string
}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) bindSchemaFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&f.SchemaPath, "schema", "f", "", "Access schema YAML file")
	flags.StringVar(&f.Prefix, "prefix", "", "Root path segment for generated scopes")
	flags.StringVar(&f.Spacer, "spacer", ".", "Separator joining scope path segments")
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "c", "", "Permitree config file (schema, rules, audit)")
}

func (f *Factory) bindSubjectFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.SubjectID, "subject", "", "Subject identifier (for traces and audit logs)")
	flags.StringArrayVarP(&f.Attrs, "attr", "a", nil,
		"Subject attribute as key=value (value parsed as YAML, so lists like groups=[a,b] work)")
}

func (f *Factory) bindGrantFlag(flags *pflag.FlagSet) {
	flags.StringSliceVarP(&f.Granted, "grant", "g", nil, "Scopes the subject holds")
}

// Load builds the access tree, and the rule engine plus config when a full
// config file was given.
func (f *Factory) Load() (*access.Branch, *policy.Engine, *config.Config, error) {
	switch {
	case f.ConfigPath != "" && f.SchemaPath != "":
		return nil, nil, nil, fmt.Errorf("--config and --schema are mutually exclusive")

	case f.ConfigPath != "":
		cfg, err := config.Load(f.ConfigPath)
		if err != nil {
			return nil, nil, nil, err
		}
		tree, engine, err := cfg.Build()
		if err != nil {
			return nil, nil, nil, err
		}
		return tree, engine, cfg, nil

	case f.SchemaPath != "":
		schema, err := access.LoadSchema(f.SchemaPath)
		if err != nil {
			return nil, nil, nil, err
		}
		opts := []access.Option{access.WithSpacer(f.Spacer)}
		if f.Prefix != "" {
			opts = append(opts, access.WithPrefix(f.Prefix))
		}
		return access.Compile(schema, opts...), nil, nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("no input given; use --schema or --config")
	}
}

// Subject parses the --subject and --attr flags. Attribute values go through
// the YAML parser, so scalars get their natural type and flow-style lists
// work: --attr groups=[admin,user] --attr beta=true
func (f *Factory) Subject() (*policy.Subject, error) {
	attrs := make(map[string]any, len(f.Attrs))
	for _, raw := range f.Attrs {
		key, value, found := strings.Cut(raw, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid attribute '%s', expected key=value", raw)
		}
		var parsed any
		if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value // keep the raw string if it is not valid YAML
		}
		attrs[key] = parsed
	}
	return &policy.Subject{ID: f.SubjectID, Attributes: attrs}, nil
}

// ResolveGranted combines the static --grant list with whatever the rules
// resolve for the subject (when an engine is available).
func (f *Factory) ResolveGranted(engine *policy.Engine) ([]string, *policy.Trace, error) {
	granted := append([]string(nil), f.Granted...)
	if engine == nil {
		return granted, nil, nil
	}

	subject, err := f.Subject()
	if err != nil {
		return nil, nil, err
	}
	resolved, trace := engine.Resolve(subject)

	seen := make(map[string]struct{}, len(granted))
	for _, scope := range granted {
		seen[scope] = struct{}{}
	}
	for _, scope := range resolved {
		if _, dup := seen[scope]; !dup {
			granted = append(granted, scope)
		}
	}
	return granted, trace, nil
}

// Auditor builds the configured auditor; auditing defaults to off.
func (f *Factory) Auditor(cfg *config.Config) (audit.Auditor, error) {
	if cfg == nil || !cfg.Audit.Enabled {
		return audit.NewNoopAuditor(), nil
	}
	switch cfg.Audit.Type {
	case "memory":
		return audit.NewInMemoryAuditor(), nil
	default:
		return audit.NewFileAuditor(cfg.Audit.Path)
	}
}
