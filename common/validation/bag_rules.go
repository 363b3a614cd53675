package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// ErrUnknownBagType is returned for a bag type with no rule set
var ErrUnknownBagType = errors.New("unknown bag type")

// Rule is one required-field check for a bag type. Expr is a CEL
// expression over `bag` (map of string to string) that must return true.
type Rule struct {
	Field string
	Expr  string
}

// DefaultRules holds the required specification fields per bag type.
// Values are trimmed before evaluation.
var DefaultRules = map[string][]Rule{
	"collar": {
		{Field: "collar_od", Expr: `bag.collar_od != ""`},
		{Field: "collar_id", Expr: `bag.collar_id != ""`},
	},
	"snap": {
		{Field: "tubesheet_data", Expr: `bag.tubesheet_data != ""`},
	},
	"ring": {
		{Field: "tubesheet_dia", Expr: `bag.tubesheet_dia != ""`},
	},
}

// Violation names the first rule a bag failed
type Violation struct {
	BagType string
	Field   string
}

type compiledRule struct {
	field   string
	program cel.Program
}

// BagValidator evaluates compiled rule sets. Safe for concurrent use:
// programs are compiled once in NewBagValidator and never mutated.
type BagValidator struct {
	rules map[string][]compiledRule
}

// NewBagValidator compiles every rule. A rule that does not compile or
// does not return bool fails construction.
func NewBagValidator(rules map[string][]Rule) (*BagValidator, error) {
	env, err := cel.NewEnv(
		cel.Variable("bag", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	v := &BagValidator{rules: make(map[string][]compiledRule, len(rules))}

	for bagType, set := range rules {
		for _, rule := range set {
			ast, issues := env.Compile(rule.Expr)
			if issues != nil && issues.Err() != nil {
				return nil, fmt.Errorf("compile rule %s.%s: %w", bagType, rule.Field, issues.Err())
			}
			if !ast.OutputType().IsExactType(cel.BoolType) {
				return nil, fmt.Errorf("rule %s.%s must return bool, got %s", bagType, rule.Field, ast.OutputType())
			}

			prg, err := env.Program(ast)
			if err != nil {
				return nil, fmt.Errorf("failed to create CEL program for %s.%s: %w", bagType, rule.Field, err)
			}

			v.rules[bagType] = append(v.rules[bagType], compiledRule{field: rule.Field, program: prg})
		}
	}

	return v, nil
}

// MustDefault compiles DefaultRules and panics on failure
func MustDefault() *BagValidator {
	v, err := NewBagValidator(DefaultRules)
	if err != nil {
		panic(err)
	}
	return v
}

// Known reports whether bagType has a rule set
func (v *BagValidator) Known(bagType string) bool {
	_, ok := v.rules[bagType]
	return ok
}

// Check runs the rules for bagType in declaration order and returns the
// first violation, or nil when every rule holds.
func (v *BagValidator) Check(bagType string, fields map[string]string) (*Violation, error) {
	set, ok := v.rules[bagType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBagType, bagType)
	}

	bag := make(map[string]string, len(fields)+len(set))
	for k, val := range fields {
		bag[k] = strings.TrimSpace(val)
	}
	for _, rule := range set {
		if _, present := bag[rule.field]; !present {
			bag[rule.field] = ""
		}
	}

	for _, rule := range set {
		out, _, err := rule.program.Eval(map[string]interface{}{"bag": bag})
		if err != nil {
			return nil, fmt.Errorf("CEL evaluation error for %s.%s: %w", bagType, rule.field, err)
		}
		passed, ok := out.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("CEL rule %s.%s did not return boolean, got %T", bagType, rule.field, out.Value())
		}
		if !passed {
			return &Violation{BagType: bagType, Field: rule.field}, nil
		}
	}

	return nil, nil
}
