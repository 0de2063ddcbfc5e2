package model

import (
	"context"
	"strconv"
)

// WidgetKind is the closed set of input widgets a field can render as.
type WidgetKind string

const (
	WidgetText      WidgetKind = "text"
	WidgetSecret    WidgetKind = "secret"
	WidgetChoice    WidgetKind = "choice"
	WidgetDate      WidgetKind = "date"
	WidgetMultiline WidgetKind = "multiline"
)

// WidgetKinds lists every supported widget kind in declaration order.
func WidgetKinds() []WidgetKind {
	return []WidgetKind{WidgetText, WidgetSecret, WidgetChoice, WidgetDate, WidgetMultiline}
}

// Valid reports whether k is one of the supported kinds.
func (k WidgetKind) Valid() bool {
	switch k {
	case WidgetText, WidgetSecret, WidgetChoice, WidgetDate, WidgetMultiline:
		return true
	default:
		return false
	}
}

const (
	RuleRequired  = "required"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
	RuleMin       = "min"
	RuleMax       = "max"
)

// Rule is a synchronous, side-effect free validation constraint. Length and
// bound rules keep their threshold in Params["value"]; pattern rules keep the
// expression in Params["pattern"].
type Rule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Required rejects absent and whitespace-only values.
func Required(message string) Rule {
	return Rule{Kind: RuleRequired, Message: message}
}

// MinLength rejects text shorter than n runes.
func MinLength(n int, message string) Rule {
	return Rule{Kind: RuleMinLength, Message: message, Params: map[string]string{"value": strconv.Itoa(n)}}
}

// MaxLength rejects text longer than n runes.
func MaxLength(n int, message string) Rule {
	return Rule{Kind: RuleMaxLength, Message: message, Params: map[string]string{"value": strconv.Itoa(n)}}
}

// Pattern rejects text not matching expr.
func Pattern(expr, message string) Rule {
	return Rule{Kind: RulePattern, Message: message, Params: map[string]string{"pattern": expr}}
}

// Min rejects numbers below n.
func Min(n float64, message string) Rule {
	return Rule{Kind: RuleMin, Message: message, Params: map[string]string{"value": formatNumber(n)}}
}

// Max rejects numbers above n.
func Max(n float64, message string) Rule {
	return Rule{Kind: RuleMax, Message: message, Params: map[string]string{"value": formatNumber(n)}}
}

// AsyncValidator checks a value against an external capability. Returning nil
// marks the value valid; validation.Reject produces a user-facing rejection;
// any other error is treated as a failure of the check itself. Implementations
// must be safe to call repeatedly for the same value.
type AsyncValidator interface {
	Validate(ctx context.Context, value Value) error
}

// AsyncValidatorFunc adapts a function into an AsyncValidator.
type AsyncValidatorFunc func(ctx context.Context, value Value) error

// Validate calls the underlying function.
func (fn AsyncValidatorFunc) Validate(ctx context.Context, value Value) error {
	return fn(ctx, value)
}

// Predicate decides visibility from the projection of sibling values onto a
// field's declared dependencies. Undeclared siblings read as absent.
type Predicate func(deps map[string]Value) bool

// Option is one entry of a choice widget.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value Value  `json:"-" yaml:"-"`
}

// Field describes a single form input.
type Field struct {
	Path        Path
	Label       string
	Widget      WidgetKind
	Rules       []Rule
	Async       AsyncValidator
	Options     []Option
	Placeholder string
	Help        string

	// Dependencies names the sibling fields visibility reads. VisibleWhen and
	// VisibilityRule are mutually exclusive.
	Dependencies   []string
	VisibleWhen    Predicate
	VisibilityRule string
}

// Name returns the last path segment.
func (f Field) Name() string {
	return f.Path.Last()
}

// Required reports whether the field declares a required rule.
func (f Field) Required() bool {
	for _, rule := range f.Rules {
		if rule.Kind == RuleRequired {
			return true
		}
	}
	return false
}

// Conditional reports whether the field declares a visibility predicate.
func (f Field) Conditional() bool {
	return f.VisibleWhen != nil || f.VisibilityRule != ""
}

// DependsOn reports whether name is one of the field's dependencies.
func (f Field) DependsOn(name string) bool {
	for _, dep := range f.Dependencies {
		if dep == name {
			return true
		}
	}
	return false
}

const (
	DefaultAddLabel    = "添加"
	DefaultRemoveLabel = "删除"
)

// ArrayGroup defines the shape of one repeatable cluster of fields.
type ArrayGroup struct {
	Name        string
	Label       string
	Fields      []Field
	AddLabel    string
	RemoveLabel string
}

// AddText returns the add control label, falling back to the default.
func (g ArrayGroup) AddText() string {
	if g.AddLabel != "" {
		return g.AddLabel
	}
	return DefaultAddLabel
}

// RemoveText returns the remove control label, falling back to the default.
func (g ArrayGroup) RemoveText() string {
	if g.RemoveLabel != "" {
		return g.RemoveLabel
	}
	return DefaultRemoveLabel
}

// Field returns the template named name.
func (g ArrayGroup) Field(name string) (Field, bool) {
	for _, field := range g.Fields {
		if field.Name() == name {
			return field, true
		}
	}
	return Field{}, false
}

// Item is one entry of a form layout: a plain field or an array group.
// Exactly one of the pointers is set.
type Item struct {
	Field *Field
	Group *ArrayGroup
}

// FieldItem wraps a field.
func FieldItem(field Field) Item {
	return Item{Field: &field}
}

// GroupItem wraps an array group.
func GroupItem(group ArrayGroup) Item {
	return Item{Group: &group}
}

// Name returns the top-level name of the item.
func (it Item) Name() string {
	switch {
	case it.Field != nil:
		return it.Field.Name()
	case it.Group != nil:
		return it.Group.Name
	default:
		return ""
	}
}
