// Package visibility decides whether conditional fields are mounted. A field
// without a predicate is always visible; otherwise its predicate sees only the
// projection of sibling values onto the field's declared dependencies.
package visibility

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/visibility/expr"
)

// Evaluator evaluates rule-string predicates.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the projected sibling
// values as plain Go values; Extras lets hosts inject roles or feature flags.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}

// RuleEvaluator evaluates expr rules, caching compiled programs.
type RuleEvaluator struct {
	mu       sync.RWMutex
	programs map[string]*expr.Program
	extras   map[string]any
}

// NewRuleEvaluator returns an evaluator for the expr language. extras is
// merged under any Context.Extras passed at evaluation time.
func NewRuleEvaluator(extras map[string]any) *RuleEvaluator {
	return &RuleEvaluator{
		programs: make(map[string]*expr.Program),
		extras:   extras,
	}
}

// Eval compiles (once) and evaluates rule.
func (e *RuleEvaluator) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	prog, err := e.program(rule)
	if err != nil {
		return false, fmt.Errorf("visibility: %s: %w", fieldPath, err)
	}
	extras := ctx.Extras
	if len(e.extras) > 0 {
		merged := make(map[string]any, len(e.extras)+len(ctx.Extras))
		for k, v := range e.extras {
			merged[k] = v
		}
		for k, v := range ctx.Extras {
			merged[k] = v
		}
		extras = merged
	}
	return prog.Eval(ctx.Values, extras)
}

func (e *RuleEvaluator) program(rule string) (*expr.Program, error) {
	e.mu.RLock()
	prog, ok := e.programs[rule]
	e.mu.RUnlock()
	if ok {
		return prog, nil
	}
	prog, err := expr.Compile(rule)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.programs[rule] = prog
	e.mu.Unlock()
	return prog, nil
}

// IsVisible reports whether field is mounted given its siblings' values.
// eval is only consulted for VisibilityRule predicates; nil selects a
// RuleEvaluator without extras.
func IsVisible(field model.Field, siblings map[string]model.Value, eval Evaluator) (bool, error) {
	if !field.Conditional() {
		return true, nil
	}
	deps := Project(field, siblings)
	if field.VisibleWhen != nil {
		return field.VisibleWhen(deps), nil
	}
	if eval == nil {
		eval = NewRuleEvaluator(nil)
	}
	values := make(map[string]any, len(deps))
	for name, value := range deps {
		values[name] = value.Interface()
	}
	return eval.Eval(field.Path.String(), field.VisibilityRule, Context{Values: values})
}

// Project returns the sibling values restricted to field's dependencies.
// Dependencies without a value map to Absent.
func Project(field model.Field, siblings map[string]model.Value) map[string]model.Value {
	out := make(map[string]model.Value, len(field.Dependencies))
	for _, dep := range field.Dependencies {
		out[dep] = siblings[dep]
	}
	return out
}
