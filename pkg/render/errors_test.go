package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/render"
	"github.com/goliatone/go-formkit/pkg/validation"
)

func TestCollectErrors(t *testing.T) {
	view := form.View{
		Items: []form.ItemView{
			{Field: &form.FieldView{Path: "username", Name: "username", State: validation.Invalid("名称已被占用")}},
			{Field: &form.FieldView{Path: "password", Name: "password", State: validation.Valid()}},
			{Group: &form.GroupView{
				Name: "dependents",
				Instances: []form.InstanceView{
					{Key: "k1", Index: 0, Fields: []form.FieldView{{Path: "dependents.k1.name", Name: "name"}}},
					{Key: "k7", Index: 1, Fields: []form.FieldView{{Path: "dependents.k7.name", Name: "name", State: validation.Invalid("请输入姓名")}}},
				},
			}},
		},
	}

	payload := map[string][]string{
		"/password":             {"too weak"},
		"dependents[0].name":    {"unknown person"},
		"dependents.k7.name":    {"请输入姓名"},
		"non_field_errors":      {"server busy"},
		"request/unknown-field": {"falls back to form"},
	}

	mapped := render.CollectErrors(view, payload)

	wantFields := map[string][]string{
		"username":           {"名称已被占用"},
		"password":           {"too weak"},
		"dependents.k1.name": {"unknown person"},
		"dependents.k7.name": {"请输入姓名"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"falls back to form", "server busy"}
	if diff := cmp.Diff(wantForm, mapped.Form, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFormErrors(t *testing.T) {
	merged := render.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	want := []string{"First", "Second", "third"}

	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}
