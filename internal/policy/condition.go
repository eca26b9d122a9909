// Package policy resolves granted-scope lists for a subject from declarative
// rules. It is the optional layer in front of pkg/access: rules match on
// subject attributes and grant scopes, the resulting list seeds a permit.
package policy

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
)

// Operator defines how a leaf condition compares an attribute value.
type Operator string

const (
	OpEqual Operator = "equals"
	// OpContains checks the attribute value contains the given item.
	// For strings: "hello world" contains "world".
	// For lists: ["a", "b"] contains "b".
	OpContains Operator = "contains"
	// OpIn checks the attribute value is in the given list.
	OpIn Operator = "in"
	// OpExists checks the attribute is present, whatever its value.
	OpExists Operator = "exists"
)

func (op Operator) IsValid() bool {
	switch op {
	case OpEqual, OpContains, OpIn, OpExists:
		return true
	default:
		return false
	}
}

// Condition is a recursive check against a subject's attributes: either one
// logic node (All/Any/Not) or one leaf (Key/Operator/Value).
type Condition struct {
	// Logic operators
	All []Condition `yaml:"all,omitempty" json:"all,omitempty"`
	Any []Condition `yaml:"any,omitempty" json:"any,omitempty"`
	Not *Condition  `yaml:"not,omitempty" json:"not,omitempty"`

	// Leaf condition
	Key      string   `yaml:"key,omitempty" json:"key,omitempty"`
	Operator Operator `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value    any      `yaml:"value,omitempty" json:"value,omitempty"`
}

// Result is the outcome of evaluating one condition node, including every
// child outcome so a trace can show why a rule matched or failed.
type Result struct {
	Matched bool

	// For leaves
	Expression string `json:"expression"` // e.g. `groups contains admin`
	Reason     string `json:"reason,omitempty"`

	// For logic nodes
	Label    string `json:"label,omitempty"` // AND / OR / NOT
	Children []Result
}

// Eval evaluates the condition against the attributes and returns the full
// result tree.
func (c *Condition) Eval(attributes map[string]any) Result {
	if c == nil {
		return Result{Matched: true, Label: "(empty)"}
	}

	if len(c.All) > 0 {
		res := Result{Matched: true, Label: "AND"}
		for _, sub := range c.All {
			cr := sub.Eval(attributes)
			res.Children = append(res.Children, cr)
			if !cr.Matched {
				res.Matched = false
			}
		}
		return res
	}

	if len(c.Any) > 0 {
		res := Result{Label: "OR"}
		for _, sub := range c.Any {
			cr := sub.Eval(attributes)
			res.Children = append(res.Children, cr)
			if cr.Matched {
				res.Matched = true
			}
		}
		return res
	}

	if c.Not != nil {
		cr := c.Not.Eval(attributes)
		return Result{
			Matched:  !cr.Matched,
			Label:    "NOT",
			Children: []Result{cr},
		}
	}

	if c.Key != "" {
		return c.evalLeaf(attributes)
	}

	return Result{Matched: true, Label: "(empty)"}
}

func (c *Condition) evalLeaf(attributes map[string]any) Result {
	leaf := func(matched bool, reason string) Result {
		return Result{
			Matched:    matched,
			Expression: fmt.Sprintf("%s %s %v", c.Key, c.Operator, c.Value),
			Reason:     reason,
		}
	}

	val, exists := attributes[c.Key]

	if c.Operator == OpExists {
		if !exists {
			return leaf(false, fmt.Sprintf("attribute '%s' does not exist", c.Key))
		}
		return leaf(true, "")
	}

	if !exists {
		return leaf(false, fmt.Sprintf("attribute '%s' missing", c.Key))
	}

	switch c.Operator {
	case OpEqual:
		if !reflect.DeepEqual(val, c.Value) {
			return leaf(false, fmt.Sprintf("expected '%v' to equal '%v'", val, c.Value))
		}
		return leaf(true, "")

	case OpContains:
		// does {val} contain {c.Value}? e.g. groups contains "admin"
		if !contains(val, c.Value) {
			return leaf(false, fmt.Sprintf("value '%v' does not contain '%v'", val, c.Value))
		}
		return leaf(true, "")

	case OpIn:
		// is {val} inside {c.Value}? e.g. region in ["eu-west", "us-east"]
		if !contains(c.Value, val) {
			return leaf(false, fmt.Sprintf("value '%v' not in list '%v'", val, c.Value))
		}
		return leaf(true, "")
	}

	return leaf(false, fmt.Sprintf("unknown operator '%s' in condition", c.Operator))
}

// contains handles both string-contains-substring and list-contains-item.
func contains(container, item any) bool {
	if str, ok := container.(string); ok {
		if subStr, ok := item.(string); ok {
			return strings.Contains(str, subStr)
		}
	}

	v := reflect.ValueOf(container)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		for i := 0; i < v.Len(); i++ {
			if reflect.DeepEqual(v.Index(i).Interface(), item) {
				return true
			}
		}
	}

	return false
}

// explicitConditionKeys are the field names that mark a condition mapping as
// explicitly written out (as opposed to the {attr: value} shorthand).
var explicitConditionKeys = map[string]struct{}{
	"all": {}, "any": {}, "not": {}, "key": {}, "operator": {}, "value": {},
}

// UnmarshalYAML supports both the explicit form
//
//	{ key: sub, operator: equals, value: "12345" }
//
// and shorthands like { sub: "12345" } (implicit equals) or
// { groups: { contains: admin } } (operator shorthand). Multiple shorthand
// keys in one mapping become an implicit AND.
func (c *Condition) UnmarshalYAML(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		// a condition has to at least be a mapping
		return err
	}

	explicit := false
	for k := range raw {
		if _, ok := explicitConditionKeys[k]; ok {
			explicit = true
			break
		}
	}

	if explicit {
		type plain Condition // prevents recursing back into this method
		var p plain
		if err := yaml.Unmarshal(data, &p); err != nil {
			return err
		}
		*c = Condition(p)
		// implicit equals when the operator is left out
		if c.Key != "" && c.Operator == "" {
			c.Operator = OpEqual
		}
		return nil
	}

	var children []Condition
	for k, v := range raw {
		sub := Condition{Key: k, Operator: OpEqual, Value: v}
		if vMap, ok := v.(map[string]any); ok {
			// operator shorthand: { groups: { contains: admin } }
			for opKey, opVal := range vMap {
				if op := Operator(opKey); op.IsValid() {
					sub.Operator = op
					sub.Value = opVal
					break // one operator per key
				}
			}
		}
		children = append(children, sub)
	}

	if len(children) == 1 {
		*c = children[0]
	} else {
		// multiple shorthand keys are an implicit AND
		*c = Condition{All: children}
	}
	return nil
}

// Validate checks the condition is exactly one of the four node types and
// that every leaf uses a known operator.
func (c *Condition) Validate() error {
	if c == nil {
		return nil
	}

	hasAll := len(c.All) > 0
	hasAny := len(c.Any) > 0
	hasNot := c.Not != nil
	hasLeaf := c.Key != ""

	for _, sub := range c.All {
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	for _, sub := range c.Any {
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	if hasNot {
		if err := c.Not.Validate(); err != nil {
			return err
		}
	}
	if hasLeaf && !c.Operator.IsValid() {
		return fmt.Errorf("invalid operator '%s' for key '%s'", c.Operator, c.Key)
	}

	count := 0
	for _, set := range []bool{hasAll, hasAny, hasNot, hasLeaf} {
		if set {
			count++
		}
	}
	switch {
	case count > 1:
		return fmt.Errorf("condition for key '%s' has multiple types set (all, any, not, leaf); only one is allowed", c.Key)
	case count == 0:
		return fmt.Errorf("condition is missing required fields; must be one of (all, any, not, leaf)")
	default:
		return nil
	}
}
