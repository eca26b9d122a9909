package policy

import (
	"github.com/expr-lang/expr/vm"
)

// Subject is the actor whose granted scopes are being resolved. Attributes
// arrive already resolved by the caller; this package does no authentication.
type Subject struct {
	// ID identifies the subject, for traces and audit logs only.
	ID string `yaml:"id" json:"id"`

	// Attributes are the facts rules match on (groups, roles, tenant, ...).
	Attributes map[string]any `yaml:"attributes" json:"attributes"`
}

// Grant lists the scopes a matching rule contributes.
type Grant struct {
	Scopes []string `yaml:"scopes" json:"scopes"`
}

// Match defines the criteria required for a Rule to apply.
type Match struct {
	// Condition that must be satisfied. Either provide Condition OR Expr,
	// not both. Leaving both empty requires AllowEmpty.
	Condition *Condition `yaml:"condition" json:"condition"`

	// AllowEmpty marks an intentionally unconditional rule. Without it an
	// empty match is rejected at compile time, to prevent unintentional
	// grant-to-everyone rules.
	AllowEmpty bool `yaml:"allow_empty" json:"allow_empty"`

	// Expr is an optional expr-lang expression for more complex matching.
	Expr string `yaml:"expr" json:"expr"`

	// compiled holds the pre-compiled form of Expr.
	compiled *vm.Program
}

// Rule binds a Match to the scopes it grants.
type Rule struct {
	// Name is a human-readable identifier for traces and errors.
	Name string `yaml:"name" json:"name"`

	// Description explains the intent of the rule.
	Description string `yaml:"description" json:"description"`

	Match Match `yaml:"match" json:"match"`
	Grant Grant `yaml:"grant" json:"grant"`
}

// RuleResult captures why a specific rule matched or failed.
type RuleResult struct {
	Rule        string `json:"rule"`
	Description string `json:"description,omitempty"`
	Matched     bool   `json:"matched"`

	// Scopes contributed by this rule (only set when matched).
	Scopes []string `json:"scopes,omitempty"`

	// Conditions is the flattened condition outcome list, depth-annotated
	// for display.
	Conditions []TraceLine `json:"conditions,omitempty"`
}

// TraceLine is one flattened condition outcome.
type TraceLine struct {
	Depth      int    `json:"depth"`
	Matched    bool   `json:"matched"`
	Expression string `json:"expression"` // leaf expression or [LABEL]
	Reason     string `json:"reason,omitempty"`
	Label      bool   `json:"label,omitempty"` // true for AND/OR/NOT lines
}

// Trace is the full outcome of one Resolve call.
type Trace struct {
	Subject *Subject     `json:"subject"`
	Results []RuleResult `json:"results"`

	// Scopes is the final resolved list: the union of all matching rules'
	// grants, in rule order, de-duplicated.
	Scopes []string `json:"scopes"`
}
