package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/validation"
)

func buildItem(raw itemFile, validators *validation.Registry) (model.Item, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return model.Item{}, fmt.Errorf("name is required")
	}
	if len(raw.Fields) == 0 {
		field, err := buildField(raw, validators)
		if err != nil {
			return model.Item{}, err
		}
		return model.FieldItem(field), nil
	}

	group := model.ArrayGroup{
		Name:        name,
		Label:       raw.Label,
		AddLabel:    raw.AddLabel,
		RemoveLabel: raw.RemoveLabel,
	}
	for idx, child := range raw.Fields {
		if len(child.Fields) > 0 {
			return model.Item{}, fmt.Errorf("%s: field %d: nested groups are not supported", name, idx)
		}
		field, err := buildField(child, validators)
		if err != nil {
			return model.Item{}, fmt.Errorf("%s: %w", name, err)
		}
		group.Fields = append(group.Fields, field)
	}
	return model.GroupItem(group), nil
}

func buildField(raw itemFile, validators *validation.Registry) (model.Field, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return model.Field{}, fmt.Errorf("field name is required")
	}
	field := model.Field{
		Path:           model.P(name),
		Label:          raw.Label,
		Widget:         model.WidgetKind(strings.TrimSpace(raw.Widget)),
		Placeholder:    raw.Placeholder,
		Help:           raw.Help,
		Dependencies:   append([]string(nil), raw.Dependencies...),
		VisibilityRule: strings.TrimSpace(raw.VisibleWhen),
	}

	if raw.Required != "" {
		field.Rules = append(field.Rules, model.Required(raw.Required))
	}
	for idx, rf := range raw.Rules {
		rule, err := buildRule(rf)
		if err != nil {
			return model.Field{}, fmt.Errorf("%s: rule %d: %w", name, idx, err)
		}
		field.Rules = append(field.Rules, rule)
	}

	for idx, opt := range raw.Options {
		value, err := model.OptionValue(opt.Value)
		if err != nil {
			return model.Field{}, fmt.Errorf("%s: option %d: %w", name, idx, err)
		}
		label := opt.Label
		if label == "" {
			label = value.Text()
		}
		field.Options = append(field.Options, model.Option{Label: label, Value: value})
	}

	if ref := strings.TrimSpace(raw.Async); ref != "" {
		validator, ok := validators.Lookup(ref)
		if !ok {
			return model.Field{}, fmt.Errorf("%s: unknown async validator %q (registered: %s)",
				name, ref, strings.Join(validators.Names(), ", "))
		}
		field.Async = validator
	}
	return field, nil
}

func buildRule(raw ruleFile) (model.Rule, error) {
	switch raw.Kind {
	case model.RuleRequired:
		return model.Required(raw.Message), nil
	case model.RulePattern:
		if raw.Pattern == "" {
			return model.Rule{}, fmt.Errorf("pattern rule requires a pattern")
		}
		return model.Pattern(raw.Pattern, raw.Message), nil
	case model.RuleMinLength, model.RuleMaxLength:
		n, err := intValue(raw.Value)
		if err != nil {
			return model.Rule{}, fmt.Errorf("%s: %w", raw.Kind, err)
		}
		if raw.Kind == model.RuleMinLength {
			return model.MinLength(n, raw.Message), nil
		}
		return model.MaxLength(n, raw.Message), nil
	case model.RuleMin, model.RuleMax:
		n, err := floatValue(raw.Value)
		if err != nil {
			return model.Rule{}, fmt.Errorf("%s: %w", raw.Kind, err)
		}
		if raw.Kind == model.RuleMin {
			return model.Min(n, raw.Message), nil
		}
		return model.Max(n, raw.Message), nil
	default:
		return model.Rule{}, fmt.Errorf("unknown rule kind %q", raw.Kind)
	}
}

func floatValue(raw any) (float64, error) {
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
}

func intValue(raw any) (int, error) {
	f, err := floatValue(raw)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) || f < 0 {
		return 0, fmt.Errorf("expected a non-negative integer, got %v", raw)
	}
	return int(f), nil
}
