// Package matcher provides a simple "rule" language that may be used
// inside Leasefile directives to decide whether a lease event should be
// handled. The matcher library is based on github.com/Knetic/govaluate
package matcher

import (
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/leasehook/core/events"
)

type (
	// Matcher is a lease event matcher
	Matcher struct {
		// expr holds the pre-compiled expression
		expr *govaluate.EvaluableExpression
	}

	// ExprFunc can be used expose functions to matcher expressions
	ExprFunc func(args ...interface{}) (interface{}, error)
)

// builtins are available in every expression
var builtins = map[string]ExprFunc{
	"hasPrefix": stringFunc(strings.HasPrefix),
	"hasSuffix": stringFunc(strings.HasSuffix),
	"contains":  stringFunc(strings.Contains),
}

// SetupMatcher returns a matcher for the conditions of the current
// directive. Arguments following the directive name are used as the first
// condition and further conditions are read from "if" and "if_op" lines
// of the directive block. The block itself is not consumed
func SetupMatcher(c *caddy.Controller, fns ...map[string]ExprFunc) (*Matcher, error) {
	var conds []string

	if args := c.RemainingArgs(); len(args) > 0 {
		conds = append(conds, strings.Join(args, " "))
	}

	blockConds, op, err := ParseConditions(c)
	if err != nil {
		return nil, err
	}
	if blockConds != "" {
		conds = append(conds, blockConds)
	}

	return SetupMatcherString(join(conds, op), fns...)
}

// SetupMatcherRemainingArgs returns a matcher using all remaining arguments
// of the current line as the condition
func SetupMatcherRemainingArgs(c *caddy.Controller, fns ...map[string]ExprFunc) (*Matcher, error) {
	return SetupMatcherString(strings.Join(c.RemainingArgs(), " "), fns...)
}

// SetupMatcherString returns a matcher for the condition expr. An empty
// condition always matches
func SetupMatcherString(expr string, fns ...map[string]ExprFunc) (*Matcher, error) {
	if strings.TrimSpace(expr) == "" {
		return &Matcher{}, nil
	}

	functions := make(map[string]govaluate.ExpressionFunction)

	for _, m := range append([]map[string]ExprFunc{builtins}, fns...) {
		for name, fn := range m {
			functions[name] = govaluate.ExpressionFunction(fn)
		}
	}

	e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, functions)
	if err != nil {
		return nil, err
	}

	return &Matcher{
		expr: e,
	}, nil
}

// EmptyCondition returns true if the matcher does not have any condition
// configured and will always match
func (m *Matcher) EmptyCondition() bool {
	return m == nil || m.expr == nil
}

// Match evaluates the expression stored in the matcher against the given
// lease event
func (m *Matcher) Match(l *events.Lease) (bool, error) {
	if m.EmptyCondition() {
		return true, nil
	}

	result, err := m.expr.Evaluate(Params(l))
	if err != nil {
		return false, err
	}

	if b, ok := result.(bool); ok {
		return b, nil
	}

	return false, fmt.Errorf("expression did not evaluate to a boolean. instead, got: %v", result)
}

// Params returns the parameters of l that are available in expressions
func Params(l *events.Lease) map[string]interface{} {
	name, _ := events.ForNote(l.Note)

	return map[string]interface{}{
		"event":    string(name),
		"kind":     string(l.Event.Kind),
		"note":     string(l.Note),
		"mac":      l.Event.MAC,
		"ip":       l.Event.IP,
		"option":   l.Event.Option,
		"hostname": l.Entry.Hostname,
		"location": l.Entry.Location,
		"changed":  l.Changed,
		"instance": l.Instance,
	}
}

func join(conds []string, op string) string {
	exprStr := ""

	for i, c := range conds {
		if i > 0 {
			exprStr += " " + op + " "
		}
		exprStr += "(" + c + ")"
	}

	return exprStr
}

func stringFunc(fn func(string, string) bool) ExprFunc {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected 2 arguments, got %d", len(args))
		}

		s, ok1 := args[0].(string)
		sub, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("expected string arguments")
		}

		return fn(s, sub), nil
	}
}
