package policy

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog/log"
)

// Engine holds compiled rules and resolves scope lists against them.
type Engine struct {
	rules []Rule
}

// CompileRules validates the rules and pre-compiles their expressions.
func CompileRules(rules []Rule) (*Engine, error) {
	seenNames := make(map[string]struct{}, len(rules))
	compiled := make([]Rule, 0, len(rules))

	for i, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rule #%d missing name", i)
		}
		if _, exists := seenNames[rule.Name]; exists {
			return nil, fmt.Errorf("rule name '%s' is not unique", rule.Name)
		}
		seenNames[rule.Name] = struct{}{}

		if len(rule.Grant.Scopes) == 0 {
			return nil, fmt.Errorf("rule '%s' grants no scopes", rule.Name)
		}

		if rule.Match.Condition != nil && rule.Match.Expr != "" {
			return nil, fmt.Errorf("rule '%s' has both match.condition and match.expr set", rule.Name)
		}
		if rule.Match.Condition == nil && rule.Match.Expr == "" && !rule.Match.AllowEmpty {
			return nil, fmt.Errorf("rule '%s' matches everything; set match.allow_empty if that is intended", rule.Name)
		}

		if rule.Match.Expr != "" {
			prog, err := expr.Compile(rule.Match.Expr, expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("compiling expr for rule '%s': %w", rule.Name, err)
			}
			rule.Match.compiled = prog
		}
		if rule.Match.Condition != nil {
			if err := rule.Match.Condition.Validate(); err != nil {
				return nil, fmt.Errorf("validating condition for rule '%s': %w", rule.Name, err)
			}
		}

		compiled = append(compiled, rule)
	}

	return &Engine{rules: compiled}, nil
}

// Rules returns the compiled rules in declaration order.
func (e *Engine) Rules() []Rule {
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	return rules
}

// Resolve evaluates every rule against the subject. Unlike a first-match
// policy, ALL matching rules contribute: the result is the union of their
// granted scopes in rule order, de-duplicated. The trace records every rule
// outcome, matched or not.
func (e *Engine) Resolve(subject *Subject) ([]string, *Trace) {
	trace := &Trace{Subject: subject}

	seen := make(map[string]struct{})
	var scopes []string

	for _, rule := range e.rules {
		result := e.checkRule(rule, subject)
		if result.Matched {
			result.Scopes = rule.Grant.Scopes
			for _, scope := range rule.Grant.Scopes {
				if _, dup := seen[scope]; dup {
					continue
				}
				seen[scope] = struct{}{}
				scopes = append(scopes, scope)
			}
		}
		trace.Results = append(trace.Results, result)
	}

	trace.Scopes = scopes
	return scopes, trace
}

func (e *Engine) checkRule(rule Rule, subject *Subject) RuleResult {
	result := RuleResult{
		Rule:        rule.Name,
		Description: rule.Description,
		Matched:     true, // fails on any mismatch below
	}

	if rule.Match.Condition != nil {
		cr := rule.Match.Condition.Eval(subject.Attributes)
		if !cr.Matched {
			result.Matched = false
		}
		flattenResult(&result.Conditions, cr, 0)
	}

	if rule.Match.compiled != nil {
		line := TraceLine{Expression: rule.Match.Expr, Matched: true}
		out, err := expr.Run(rule.Match.compiled, map[string]any{
			"subject": subject,
			"rule":    rule,
		})
		if err != nil {
			log.Warn().Err(err).Msgf("error evaluating expression for rule '%s'", rule.Name)
			line.Matched = false
			line.Reason = fmt.Sprintf("error evaluating expression: %v", err)
		} else if matched, ok := out.(bool); !ok || !matched {
			line.Matched = false
			line.Reason = "expression evaluated to false"
		}
		if !line.Matched {
			result.Matched = false
		}
		result.Conditions = append(result.Conditions, line)
	}

	return result
}

// flattenResult turns the recursive condition outcome into depth-annotated
// lines for display.
func flattenResult(out *[]TraceLine, r Result, depth int) {
	if r.Expression != "" {
		*out = append(*out, TraceLine{
			Depth:      depth,
			Matched:    r.Matched,
			Expression: r.Expression,
			Reason:     r.Reason,
		})
		return
	}

	if r.Label != "" {
		*out = append(*out, TraceLine{
			Depth:      depth,
			Matched:    r.Matched,
			Expression: "[" + r.Label + "]",
			Label:      true,
		})
	}

	for _, child := range r.Children {
		flattenResult(out, child, depth+1)
	}
}
