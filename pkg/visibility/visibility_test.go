package visibility_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/visibility"
)

func familyTitle() model.Field {
	return model.Field{
		Path:           model.P("familyTitle"),
		Widget:         model.WidgetText,
		Dependencies:   []string{"relationship"},
		VisibilityRule: `relationship == "family"`,
	}
}

func TestIsVisibleWithoutPredicate(t *testing.T) {
	field := model.Field{Path: model.P("name"), Widget: model.WidgetText}
	ok, err := visibility.IsVisible(field, nil, nil)
	if err != nil || !ok {
		t.Fatalf("expected unconditional field to be visible, got %v, %v", ok, err)
	}
}

func TestIsVisibleRule(t *testing.T) {
	cases := []struct {
		name     string
		siblings map[string]model.Value
		want     bool
	}{
		{"family", map[string]model.Value{"relationship": model.Choice(model.String("family"))}, true},
		{"friend", map[string]model.Value{"relationship": model.Choice(model.String("friend"))}, false},
		{"absent", map[string]model.Value{}, false},
		{"unrelated sibling", map[string]model.Value{"name": model.String("family")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := visibility.IsVisible(familyTitle(), tc.siblings, nil)
			if err != nil {
				t.Fatalf("IsVisible: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestIsVisiblePredicateSeesOnlyDependencies(t *testing.T) {
	var seen map[string]model.Value
	field := model.Field{
		Path:         model.P("spouseName"),
		Widget:       model.WidgetText,
		Dependencies: []string{"married"},
		VisibleWhen: func(deps map[string]model.Value) bool {
			seen = deps
			text, _ := deps["married"].Str()
			return text == "yes"
		},
	}
	siblings := map[string]model.Value{
		"married": model.String("yes"),
		"secret":  model.String("hidden"),
	}
	ok, err := visibility.IsVisible(field, siblings, nil)
	if err != nil || !ok {
		t.Fatalf("expected visible, got %v, %v", ok, err)
	}
	if _, leaked := seen["secret"]; leaked {
		t.Fatalf("predicate received undeclared sibling")
	}
	if len(seen) != 1 {
		t.Fatalf("expected projection of one dependency, got %d", len(seen))
	}
}

func TestRuleEvaluatorExtras(t *testing.T) {
	eval := visibility.NewRuleEvaluator(map[string]any{"role": "admin"})
	ok, err := eval.Eval("notes", `extras.role == "admin"`, visibility.Context{})
	if err != nil || !ok {
		t.Fatalf("expected extras lookup to succeed, got %v, %v", ok, err)
	}
	if _, err := eval.Eval("notes", `role = "admin"`, visibility.Context{}); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestDispatcherSubscribers(t *testing.T) {
	fields := []model.Field{
		{Path: model.P("name"), Widget: model.WidgetText},
		{Path: model.P("relationship"), Widget: model.WidgetText},
		familyTitle(),
		{
			Path:           model.P("note"),
			Widget:         model.WidgetText,
			Dependencies:   []string{"relationship", "name"},
			VisibilityRule: "relationship && name",
		},
	}
	d := visibility.NewDispatcher(fields)

	names := func(fs []model.Field) []string {
		var out []string
		for _, f := range fs {
			out = append(out, f.Name())
		}
		return out
	}

	if diff := cmp.Diff([]string{"familyTitle", "note"}, names(d.Subscribers("relationship"))); diff != "" {
		t.Fatalf("relationship subscribers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"note"}, names(d.Subscribers("name"))); diff != "" {
		t.Fatalf("name subscribers mismatch (-want +got):\n%s", diff)
	}
	if got := d.Subscribers("familyTitle"); len(got) != 0 {
		t.Fatalf("expected no subscribers, got %v", names(got))
	}
}
