package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/validation"
)

func TestLoadFile_YAMLRegistration(t *testing.T) {
	def, err := LoadFile("testdata/registration.yaml", Options{})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if def.Title != "用户注册" || !def.ShowReset || !def.ShowClear || def.Trigger != form.TriggerChange {
		t.Fatalf("unexpected document settings %+v", def)
	}

	var names []string
	for _, item := range def.Items {
		names = append(names, item.Name())
	}
	if diff := cmp.Diff([]string{"username", "password", "gender", "birthday", "dependents"}, names); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}

	widgets := map[string]model.WidgetKind{}
	for _, item := range def.Items {
		if item.Field != nil {
			widgets[item.Field.Name()] = item.Field.Widget
		}
	}
	want := map[string]model.WidgetKind{
		"username": model.WidgetText,
		"password": model.WidgetSecret,
		"gender":   model.WidgetChoice,
		"birthday": model.WidgetDate,
	}
	if diff := cmp.Diff(want, widgets); diff != "" {
		t.Fatalf("inferred widgets mismatch (-want +got):\n%s", diff)
	}

	if def.Items[0].Field.Async == nil {
		t.Fatalf("expected username to carry the availability check")
	}
	group := def.Items[4].Group
	title, ok := group.Field("familyTitle")
	if !ok || title.VisibilityRule != `relationship == "family"` || !title.Required() {
		t.Fatalf("unexpected familyTitle %+v", title)
	}
	if group.AddText() != "添加" || group.RemoveText() != "删除" {
		t.Fatalf("unexpected group labels")
	}
}

func TestLoadFile_JSONSettings(t *testing.T) {
	def, err := LoadFile("testdata/registration.json", Options{})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if def.ShowClear || !def.ShowReset || def.Trigger != form.TriggerBlur || def.AsyncTimeout != 2*time.Second {
		t.Fatalf("unexpected settings %+v", def)
	}
	if got := def.Items[1].Field.Widget; got != model.WidgetMultiline {
		t.Fatalf("expected long notes to be multiline, got %q", got)
	}

	f, err := def.NewForm()
	if err != nil {
		t.Fatalf("NewForm: %v", err)
	}
	defer f.Close()
	if v, _ := f.Value(model.P("username")); v.Text() != "alice" {
		t.Fatalf("expected initial username, got %v", v)
	}
	if f.View().ShowClear {
		t.Fatalf("expected clear control hidden")
	}
}

func TestLoad_CustomValidator(t *testing.T) {
	reg := validation.NewRegistry()
	reg.MustRegister("never", model.AsyncValidatorFunc(func(context.Context, model.Value) error {
		return validation.Reject("nope")
	}))
	doc := []byte(`
items:
  - name: handle
    async: never
`)
	def, err := Load(doc, FormatYAML, Options{Validators: reg})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f, err := def.NewForm()
	if err != nil {
		t.Fatalf("NewForm: %v", err)
	}
	defer f.Close()
	if err := f.SetInput(model.P("handle"), "x"); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	st, err := f.Await(ctx, model.P("handle"))
	if err != nil || st.Message != "nope" {
		t.Fatalf("expected rejection, got %+v, %v", st, err)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "   ", "is empty"},
		{"unknown validator", `{"items":[{"name":"a","async":"missing"}]}`, "unknown async validator"},
		{"unknown rule", `{"items":[{"name":"a","rules":[{"kind":"email"}]}]}`, "unknown rule kind"},
		{"bad trigger", `{"validateTrigger":"submit","items":[{"name":"a"}]}`, "validateTrigger"},
		{"undeclared dependency", `{"items":[{"name":"a"},{"name":"b","visibleWhen":"a == \"x\""}]}`, "invalid configuration"},
		{"duplicate names", `{"items":[{"name":"a"},{"name":"a"}]}`, "duplicate"},
		{"missing name", `{"items":[{"label":"x"}]}`, "name is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load([]byte(tc.doc), FormatAuto, Options{})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
