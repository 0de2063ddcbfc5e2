package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-formkit/pkg/visibility/expr"
)

// Validate checks the descriptor's structural invariants.
func (f Field) Validate() error {
	path := f.Path.String()
	if f.Path.Empty() || strings.TrimSpace(f.Name()) == "" {
		return configErrorf(path, "field path is required")
	}
	if !f.Widget.Valid() {
		return configErrorf(path, "unknown widget kind %q", f.Widget)
	}
	if f.Widget == WidgetChoice && len(f.Options) == 0 {
		return configErrorf(path, "choice field requires options")
	}
	for idx, opt := range f.Options {
		if kind := opt.Value.Kind(); kind != KindString && kind != KindNumber {
			return configErrorf(path, "option %d value must be a string or number, got %s", idx, kind)
		}
	}
	for idx, rule := range f.Rules {
		if err := validateRule(rule); err != nil {
			return configErrorf(path, "rule %d: %s", idx, err.Error())
		}
	}
	return f.validateVisibility(path)
}

func (f Field) validateVisibility(path string) error {
	name := f.Name()
	for _, dep := range f.Dependencies {
		if strings.TrimSpace(dep) == "" {
			return configErrorf(path, "empty dependency name")
		}
		if dep == name {
			return configErrorf(path, "field cannot depend on itself")
		}
	}
	if f.VisibleWhen != nil && f.VisibilityRule != "" {
		return configErrorf(path, "visibleWhen and visibilityRule are mutually exclusive")
	}
	if f.Conditional() && len(f.Dependencies) == 0 {
		return configErrorf(path, "visibility predicate requires dependencies")
	}
	if f.VisibilityRule == "" {
		return nil
	}
	idents, err := expr.Identifiers(f.VisibilityRule)
	if err != nil {
		return configErrorf(path, "visibility rule: %s", err.Error())
	}
	for _, ident := range idents {
		if !f.DependsOn(ident) {
			return configErrorf(path, "visibility rule reads %q which is not a declared dependency", ident)
		}
	}
	return nil
}

func validateRule(rule Rule) error {
	switch rule.Kind {
	case RuleRequired:
		return nil
	case RuleMinLength, RuleMaxLength:
		n, err := strconv.Atoi(rule.Params["value"])
		if err != nil || n < 0 {
			return fmt.Errorf("%s requires a non-negative integer value", rule.Kind)
		}
	case RuleMin, RuleMax:
		if _, err := strconv.ParseFloat(rule.Params["value"], 64); err != nil {
			return fmt.Errorf("%s requires a numeric value", rule.Kind)
		}
	case RulePattern:
		if _, err := regexp.Compile(rule.Params["pattern"]); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	default:
		return fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
	return nil
}

// Validate checks the group and each of its templates. Template dependencies
// must name sibling templates.
func (g ArrayGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return configErrorf("", "array group name is required")
	}
	if len(g.Fields) == 0 {
		return configErrorf(g.Name, "array group requires at least one field")
	}
	if err := validateScope(g.Fields, g.Name+"."); err != nil {
		return err
	}
	return nil
}

// ValidateItems validates every item of a form layout: descriptors must be
// well formed, top-level names unique, and dependencies must name plain
// sibling fields of the same scope.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return configErrorf("", "form requires at least one item")
	}
	names := make(map[string]struct{}, len(items))
	var fields []Field
	for idx, item := range items {
		switch {
		case item.Field != nil && item.Group != nil:
			return configErrorf(item.Name(), "item %d sets both field and group", idx)
		case item.Field != nil:
			if len(item.Field.Path) != 1 {
				return configErrorf(item.Field.Path.String(), "top-level field path must have exactly one segment")
			}
			fields = append(fields, *item.Field)
		case item.Group != nil:
			if err := item.Group.Validate(); err != nil {
				return err
			}
		default:
			return configErrorf("", "item %d is empty", idx)
		}
		name := item.Name()
		if _, dup := names[name]; dup {
			return configErrorf(name, "duplicate item name")
		}
		names[name] = struct{}{}
	}
	return validateScope(fields, "")
}

func validateScope(fields []Field, prefix string) error {
	names := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if err := field.Validate(); err != nil {
			return err
		}
		if prefix != "" && len(field.Path) != 1 {
			return configErrorf(prefix+field.Path.String(), "template path must have exactly one segment")
		}
		if _, dup := names[field.Name()]; dup {
			return configErrorf(prefix+field.Name(), "duplicate field name")
		}
		names[field.Name()] = struct{}{}
	}
	for _, field := range fields {
		for _, dep := range field.Dependencies {
			if _, ok := names[dep]; !ok {
				return configErrorf(prefix+field.Name(), "dependency %q is not a sibling field", dep)
			}
		}
	}
	return nil
}
