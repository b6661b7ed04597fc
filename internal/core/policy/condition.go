// Package policy implements the JSON condition grammar attached to access
// policies. Conditions are parsed and validated when a policy is written;
// evaluation at decision time is a pure walk over an attribute map and can
// never error.
package policy

import (
	"regexp"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/riveredge/riveredge/pkg/errs"
)

// Attribute references permitted on the left side of a comparison. Anything
// outside this set is rejected at parse time.
var allowedAttrs = map[string]bool{
	"subject.user_id":         true,
	"subject.tenant_id":       true,
	"subject.is_tenant_admin": true,
	"subject.roles":           true,
	"subject.groups":          true,
	"request.resource":        true,
	"request.action":          true,
	"env.hour":                true,
	"env.weekday":             true,
	"env.ip":                  true,
}

// Dynamic attribute prefixes, e.g. request.attrs.department.
const attrPrefix = "request.attrs."

// Expr is a parsed, immutable condition tree.
type Expr struct {
	op       string
	children []*Expr
	attr     string
	value    any
	values   []any
	re       *regexp.Regexp
}

// Parse validates raw JSON against the grammar and returns the compiled
// expression. A nil result with nil error means an empty condition, which
// always matches.
func Parse(raw []byte) (*Expr, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var node map[string]any
	if err := sonic.Unmarshal(raw, &node); err != nil {
		return nil, errs.Validationf("condition is not valid JSON: %v", err)
	}
	if len(node) == 0 {
		return nil, nil
	}
	return parseNode(node)
}

func parseNode(node map[string]any) (*Expr, error) {
	if len(node) != 1 {
		return nil, errs.Validationf("condition node must have exactly one operator, got %d", len(node))
	}
	var op string
	var body any
	for k, v := range node {
		op, body = k, v
	}

	switch op {
	case "and", "or":
		items, ok := body.([]any)
		if !ok || len(items) == 0 {
			return nil, errs.Validationf("%q expects a non-empty array of conditions", op)
		}
		e := &Expr{op: op}
		for _, item := range items {
			child, ok := item.(map[string]any)
			if !ok {
				return nil, errs.Validationf("%q operands must be condition objects", op)
			}
			sub, err := parseNode(child)
			if err != nil {
				return nil, err
			}
			e.children = append(e.children, sub)
		}
		return e, nil

	case "not":
		child, ok := body.(map[string]any)
		if !ok {
			return nil, errs.Validationf("%q expects a single condition object", op)
		}
		sub, err := parseNode(child)
		if err != nil {
			return nil, err
		}
		return &Expr{op: op, children: []*Expr{sub}}, nil

	case "eq", "ne", "gt", "gte", "lt", "lte":
		attr, val, err := binaryOperands(op, body)
		if err != nil {
			return nil, err
		}
		if op != "eq" && op != "ne" {
			if _, ok := toFloat(val); !ok {
				return nil, errs.Validationf("%q expects a numeric comparison value", op)
			}
		}
		return &Expr{op: op, attr: attr, value: val}, nil

	case "in":
		pair, ok := body.([]any)
		if !ok || len(pair) != 2 {
			return nil, errs.Validationf("%q expects [attribute, values]", op)
		}
		attr, err := attrRef(pair[0])
		if err != nil {
			return nil, err
		}
		values, ok := pair[1].([]any)
		if !ok || len(values) == 0 {
			return nil, errs.Validationf("%q expects a non-empty value list", op)
		}
		return &Expr{op: op, attr: attr, values: values}, nil

	case "regex":
		attr, val, err := binaryOperands(op, body)
		if err != nil {
			return nil, err
		}
		pattern, ok := val.(string)
		if !ok {
			return nil, errs.Validationf("%q expects a string pattern", op)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errs.Validationf("%q pattern does not compile: %v", op, err)
		}
		return &Expr{op: op, attr: attr, re: re}, nil

	default:
		return nil, errs.Validationf("unknown condition operator %q", op)
	}
}

func binaryOperands(op string, body any) (string, any, error) {
	pair, ok := body.([]any)
	if !ok || len(pair) != 2 {
		return "", nil, errs.Validationf("%q expects [attribute, value]", op)
	}
	attr, err := attrRef(pair[0])
	if err != nil {
		return "", nil, err
	}
	switch pair[1].(type) {
	case string, float64, bool:
	default:
		return "", nil, errs.Validationf("%q comparison value must be a string, number, or bool", op)
	}
	return attr, pair[1], nil
}

func attrRef(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errs.Validationf("attribute reference must be a string")
	}
	if allowedAttrs[s] || strings.HasPrefix(s, attrPrefix) {
		return s, nil
	}
	return "", errs.Validationf("unknown attribute %q", s)
}

// Eval walks the tree against the attribute map. Missing attributes compare
// as absent: eq is false, ne is true, ordered comparisons are false.
func (e *Expr) Eval(env map[string]any) bool {
	if e == nil {
		return true
	}
	switch e.op {
	case "and":
		for _, c := range e.children {
			if !c.Eval(env) {
				return false
			}
		}
		return true
	case "or":
		for _, c := range e.children {
			if c.Eval(env) {
				return true
			}
		}
		return false
	case "not":
		return !e.children[0].Eval(env)
	case "eq":
		got, ok := env[e.attr]
		return ok && looseEqual(got, e.value)
	case "ne":
		got, ok := env[e.attr]
		return !ok || !looseEqual(got, e.value)
	case "gt", "gte", "lt", "lte":
		got, ok := env[e.attr]
		if !ok {
			return false
		}
		l, lok := toFloat(got)
		r, rok := toFloat(e.value)
		if !lok || !rok {
			return false
		}
		switch e.op {
		case "gt":
			return l > r
		case "gte":
			return l >= r
		case "lt":
			return l < r
		default:
			return l <= r
		}
	case "in":
		got, ok := env[e.attr]
		if !ok {
			return false
		}
		// A slice attribute (roles, groups) matches when any element is listed.
		if items, isSlice := asSlice(got); isSlice {
			for _, item := range items {
				for _, want := range e.values {
					if looseEqual(item, want) {
						return true
					}
				}
			}
			return false
		}
		for _, want := range e.values {
			if looseEqual(got, want) {
				return true
			}
		}
		return false
	case "regex":
		got, ok := env[e.attr]
		if !ok {
			return false
		}
		s, isStr := got.(string)
		return isStr && e.re.MatchString(s)
	default:
		return false
	}
}

func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}
