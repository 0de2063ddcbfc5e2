package model_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formkit/pkg/model"
)

func genderField() model.Field {
	return model.Field{
		Path:   model.P("gender"),
		Label:  "性别",
		Widget: model.WidgetChoice,
		Options: []model.Option{
			{Label: "男", Value: model.String("male")},
			{Label: "女", Value: model.String("female")},
		},
	}
}

func TestFieldValidateConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		field  model.Field
		reason string
	}{
		{
			name:   "empty path",
			field:  model.Field{Widget: model.WidgetText},
			reason: "field path is required",
		},
		{
			name:   "unknown widget",
			field:  model.Field{Path: model.P("x"), Widget: "slider"},
			reason: "unknown widget kind",
		},
		{
			name:   "choice without options",
			field:  model.Field{Path: model.P("gender"), Widget: model.WidgetChoice},
			reason: "choice field requires options",
		},
		{
			name: "rule reads undeclared dependency",
			field: model.Field{
				Path:           model.P("familyTitle"),
				Widget:         model.WidgetText,
				Dependencies:   []string{"relationship"},
				VisibilityRule: `relationship == "family" && age != null`,
			},
			reason: `reads "age"`,
		},
		{
			name: "predicate without dependencies",
			field: model.Field{
				Path:        model.P("familyTitle"),
				Widget:      model.WidgetText,
				VisibleWhen: func(map[string]model.Value) bool { return true },
			},
			reason: "requires dependencies",
		},
		{
			name: "bad pattern",
			field: model.Field{
				Path:   model.P("code"),
				Widget: model.WidgetText,
				Rules:  []model.Rule{model.Pattern("(", "bad")},
			},
			reason: "invalid pattern",
		},
		{
			name: "self dependency",
			field: model.Field{
				Path:           model.P("a"),
				Widget:         model.WidgetText,
				Dependencies:   []string{"a"},
				VisibilityRule: "a",
			},
			reason: "depend on itself",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.field.Validate()
			var cfgErr *model.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if !strings.Contains(cfgErr.Reason, tc.reason) {
				t.Fatalf("reason %q does not mention %q", cfgErr.Reason, tc.reason)
			}
		})
	}
}

func TestFieldValidateAcceptsWellFormed(t *testing.T) {
	field := model.Field{
		Path:           model.P("familyTitle"),
		Label:          "亲属称呼",
		Widget:         model.WidgetText,
		Rules:          []model.Rule{model.Required("请输入亲属称呼"), model.MaxLength(20, "too long")},
		Dependencies:   []string{"relationship"},
		VisibilityRule: `relationship == "family"`,
	}
	if err := field.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := genderField().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateItems(t *testing.T) {
	username := model.Field{Path: model.P("username"), Widget: model.WidgetText}
	group := model.ArrayGroup{
		Name: "dependents",
		Fields: []model.Field{
			{Path: model.P("name"), Widget: model.WidgetText},
			{Path: model.P("title"), Widget: model.WidgetText, Dependencies: []string{"missing"}, VisibilityRule: "missing"},
		},
	}

	err := model.ValidateItems([]model.Item{model.FieldItem(username), model.GroupItem(group)})
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for unknown sibling dependency, got %v", err)
	}
	if cfgErr.Path != "dependents.title" {
		t.Fatalf("unexpected error path %q", cfgErr.Path)
	}

	err = model.ValidateItems([]model.Item{model.FieldItem(username), model.FieldItem(username)})
	if !errors.As(err, &cfgErr) || !strings.Contains(cfgErr.Reason, "duplicate") {
		t.Fatalf("expected duplicate name error, got %v", err)
	}

	if err := model.ValidateItems(nil); err == nil {
		t.Fatalf("expected error for empty layout")
	}
}

func TestParseInput(t *testing.T) {
	text := model.Field{Path: model.P("username"), Widget: model.WidgetText}
	got, err := model.ParseInput(text, "alice")
	if err != nil || !got.Equal(model.String("alice")) {
		t.Fatalf("text input: got %v, %v", got, err)
	}
	got, err = model.ParseInput(text, "")
	if err != nil || !got.IsAbsent() {
		t.Fatalf("empty text should be absent, got %v, %v", got, err)
	}

	date := model.Field{Path: model.P("birthday"), Widget: model.WidgetDate}
	got, err = model.ParseInput(date, "1990-04-01")
	if err != nil {
		t.Fatalf("date input: %v", err)
	}
	want := time.Date(1990, time.April, 1, 0, 0, 0, 0, time.UTC)
	if ts, ok := got.Time(); !ok || !ts.Equal(want) {
		t.Fatalf("unexpected date %v", got)
	}
	if _, err := model.ParseInput(date, "01/04/1990"); err == nil {
		t.Fatalf("expected error for malformed date")
	}

	got, err = model.ParseInput(genderField(), "female")
	if err != nil || got.Kind() != model.KindChoice || got.Text() != "female" {
		t.Fatalf("choice input: got %v, %v", got, err)
	}
	if _, err := model.ParseInput(genderField(), "other"); err == nil {
		t.Fatalf("expected error for unknown option")
	}
}

func TestValueOfNumericChoice(t *testing.T) {
	level := model.Field{
		Path:   model.P("level"),
		Widget: model.WidgetChoice,
		Options: []model.Option{
			{Label: "one", Value: model.Number(1)},
			{Label: "two", Value: model.Number(2)},
		},
	}
	got, err := model.ValueOf(level, 2)
	if err != nil {
		t.Fatalf("ValueOf: %v", err)
	}
	if diff := cmp.Diff(any(float64(2)), got.Interface()); diff != "" {
		t.Fatalf("choice payload mismatch (-want +got):\n%s", diff)
	}
	if _, err := model.ValueOf(level, 3); err == nil {
		t.Fatalf("expected error for value outside options")
	}
	if _, err := model.ValueOf(level, []string{"x"}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestPathRoundTrip(t *testing.T) {
	p := model.P("dependents", 2, "name")
	if got := p.String(); got != "dependents.2.name" {
		t.Fatalf("unexpected path string %q", got)
	}
	if !model.ParsePath(p.String()).Equal(p) {
		t.Fatalf("ParsePath did not reproduce %v", p)
	}
	if got := p.Last(); got != "name" {
		t.Fatalf("unexpected last segment %q", got)
	}
}
