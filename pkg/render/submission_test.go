package render_test

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formkit/pkg/render"
)

func TestSessionFieldsSorted(t *testing.T) {
	fields := render.SessionFields("abc-123", map[string]string{
		" _csrf ":               "token123",
		"":                      "ignored",
		render.SessionFieldName: "forged",
	})

	want := []render.HiddenField{
		{Name: "_csrf", Value: "token123"},
		{Name: render.SessionFieldName, Value: "abc-123"},
	}
	if diff := cmp.Diff(want, render.SortedHiddenFields(fields)); diff != "" {
		t.Fatalf("hidden fields mismatch (-want +got):\n%s", diff)
	}
	if got := render.SessionFields("", nil); got != nil {
		t.Fatalf("expected nil without session or extras, got %v", got)
	}
}

func TestParsePost(t *testing.T) {
	cases := []struct {
		name   string
		values url.Values
		want   render.Post
	}{
		{
			name:   "default submit",
			values: url.Values{"username": {"alice"}, render.SessionFieldName: {" s1 "}},
			want:   render.Post{Session: "s1", Action: render.ActionSubmit},
		},
		{
			name:   "reset",
			values: url.Values{render.ActionFieldName: {"reset"}},
			want:   render.Post{Action: render.ActionReset},
		},
		{
			name:   "unknown action submits",
			values: url.Values{render.ActionFieldName: {"explode"}},
			want:   render.Post{Action: render.ActionSubmit},
		},
		{
			name:   "add wins over action",
			values: url.Values{render.AddFieldName: {"dependents"}, render.ActionFieldName: {"clear"}},
			want:   render.Post{Action: render.ActionAdd, Group: "dependents"},
		},
		{
			name:   "remove",
			values: url.Values{render.RemoveFieldName: {render.InstanceRef("dependents", "k2")}},
			want:   render.Post{Action: render.ActionRemove, Group: "dependents", Key: "k2"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, render.ParsePost(tc.values)); diff != "" {
				t.Fatalf("post mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if !render.IsReserved(render.RemoveFieldName) || render.IsReserved("username") {
		t.Fatalf("unexpected reserved name classification")
	}
}
