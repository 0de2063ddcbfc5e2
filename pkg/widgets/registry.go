// Package widgets infers the widget kind of fields declared without one.
package widgets

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formkit/pkg/model"
)

// Matcher decides whether a widget kind fits the supplied field.
type Matcher func(field model.Field) bool

type rule struct {
	kind     model.WidgetKind
	priority int
	match    Matcher
	order    int
}

// Registry picks widget kinds for fields based on registered matchers.
// Higher priority wins; ties fall back to registration order. Fields that
// already declare a widget are left alone.
type Registry struct {
	mu       sync.RWMutex
	rules    []rule
	fallback model.WidgetKind
}

// NewRegistry constructs a registry with the built-in matchers registered
// and text as the fallback.
func NewRegistry() *Registry {
	reg := &Registry{fallback: model.WidgetText}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher for kind. Unknown kinds are ignored.
func (r *Registry) Register(kind model.WidgetKind, priority int, matcher Matcher) {
	if r == nil || matcher == nil || !kind.Valid() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		kind:     kind,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget kind for field. An explicit widget is returned
// as is; otherwise the first matching rule wins, then the fallback.
func (r *Registry) Resolve(field model.Field) (model.WidgetKind, bool) {
	if field.Widget != "" {
		return field.Widget, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	rules := append([]rule(nil), r.rules...)
	fallback := r.fallback
	r.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.kind, true
		}
	}
	return fallback, fallback != ""
}

// Decorate implements model.Decorator, filling the widget of every field
// (array group templates included) that lacks one.
func (r *Registry) Decorate(items []model.Item) error {
	if r == nil {
		return nil
	}
	for idx := range items {
		switch {
		case items[idx].Field != nil:
			field := r.decorateField(*items[idx].Field)
			items[idx].Field = &field
		case items[idx].Group != nil:
			group := *items[idx].Group
			group.Fields = r.decorateFields(group.Fields)
			items[idx].Group = &group
		}
	}
	return nil
}

func (r *Registry) decorateFields(fields []model.Field) []model.Field {
	if len(fields) == 0 {
		return fields
	}
	decorated := make([]model.Field, len(fields))
	for idx, field := range fields {
		decorated[idx] = r.decorateField(field)
	}
	return decorated
}

func (r *Registry) decorateField(field model.Field) model.Field {
	if kind, ok := r.Resolve(field); ok {
		field.Widget = kind
	}
	return field
}

var (
	secretNames    = []string{"password", "passwd", "secret", "pin", "token"}
	dateNames      = []string{"birthday", "birthdate", "date", "dob"}
	multilineNames = []string{"notes", "note", "description", "bio", "comment", "address", "remark"}
)

// multilineThreshold is the maxLength above which text becomes multiline.
const multilineThreshold = 200

func nameMatches(field model.Field, names []string) bool {
	name := strings.ToLower(field.Name())
	for _, candidate := range names {
		if name == candidate || strings.HasSuffix(name, candidate) {
			return true
		}
	}
	return false
}

func (r *Registry) registerBuiltins() {
	r.Register(model.WidgetChoice, 90, func(field model.Field) bool {
		return len(field.Options) > 0
	})

	r.Register(model.WidgetSecret, 80, func(field model.Field) bool {
		return nameMatches(field, secretNames)
	})

	r.Register(model.WidgetDate, 70, func(field model.Field) bool {
		if nameMatches(field, dateNames) {
			return true
		}
		return strings.HasSuffix(field.Name(), "At") || strings.HasSuffix(field.Name(), "On")
	})

	r.Register(model.WidgetMultiline, 60, func(field model.Field) bool {
		if nameMatches(field, multilineNames) {
			return true
		}
		for _, rule := range field.Rules {
			if rule.Kind != model.RuleMaxLength {
				continue
			}
			if n, err := strconv.Atoi(rule.Params["value"]); err == nil && n > multilineThreshold {
				return true
			}
		}
		return false
	})
}
