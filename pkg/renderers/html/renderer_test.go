package html

import (
	"context"
	"strconv"
	"strings"
	"testing"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/render"
)

func testItems() []model.Item {
	return []model.Item{
		model.FieldItem(model.Field{
			Path:   model.P("username"),
			Label:  "User <name>",
			Widget: model.WidgetText,
			Rules:  []model.Rule{model.Required("请输入用户名")},
			Help:   `Letters only <script>alert(1)</script><b>bold</b>`,
		}),
		model.FieldItem(model.Field{
			Path:   model.P("password"),
			Label:  "密码",
			Widget: model.WidgetSecret,
		}),
		model.FieldItem(model.Field{
			Path:   model.P("gender"),
			Label:  "性别",
			Widget: model.WidgetChoice,
			Options: []model.Option{
				{Label: "男", Value: model.String("male")},
				{Label: "女", Value: model.String("female")},
			},
		}),
		model.FieldItem(model.Field{
			Path:   model.P("birthday"),
			Label:  "出生日期",
			Widget: model.WidgetDate,
		}),
		model.GroupItem(model.ArrayGroup{
			Name:  "dependents",
			Label: "家属",
			Fields: []model.Field{
				{Path: model.P("name"), Label: "姓名", Widget: model.WidgetText},
			},
		}),
	}
}

func newTestForm(t *testing.T) *form.Form {
	t.Helper()
	n := 0
	f, err := form.New(testItems(),
		form.WithShowReset(true),
		form.WithKeyFunc(func() string {
			n++
			return "k" + strconv.Itoa(n)
		}),
		form.WithInitialValues(map[string]any{
			"password": "hunter2",
			"gender":   "female",
			"dependents": []any{
				map[string]any{"name": "Ann"},
			},
		}),
	)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func renderForm(t *testing.T, f *form.Form, opts render.RenderOptions) string {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := r.Render(context.Background(), f.View(), opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func assertContains(t *testing.T, html string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(html, want) {
			t.Errorf("expected output to contain %q\n%s", want, html)
		}
	}
}

func TestRenderWidgets(t *testing.T) {
	f := newTestForm(t)
	out := renderForm(t, f, render.RenderOptions{Action: "/forms/1"})

	assertContains(t, out,
		`method="POST"`,
		`action="/forms/1"`,
		`type="text" name="username"`,
		`type="password" name="password" value=""`,
		`<option value="female" selected>女</option>`,
		`<option value="male">男</option>`,
		`type="date" name="birthday"`,
		`name="dependents.k1.name" value="Ann"`,
		`value="dependents.k1"`,
		">添加</button>",
		">删除</button>",
		">提交</button>",
		">重置</button>",
	)
	if strings.Contains(out, "hunter2") {
		t.Fatalf("secret value must not be echoed:\n%s", out)
	}
	if strings.Contains(out, ">清空</button>") {
		t.Fatalf("clear button rendered while disabled")
	}
}

func TestRenderEscapesAndSanitises(t *testing.T) {
	f := newTestForm(t)
	out := renderForm(t, f, render.RenderOptions{})

	assertContains(t, out, "User &lt;name&gt;", "<b>bold</b>")
	if strings.Contains(out, "<script>") {
		t.Fatalf("help text was not sanitised:\n%s", out)
	}
}

func TestRenderHiddenFieldsAndErrors(t *testing.T) {
	f := newTestForm(t)
	if err := f.SetValue(model.P("username"), model.String("")); err != nil {
		t.Fatalf("set username: %v", err)
	}

	out := renderForm(t, f, render.RenderOptions{
		HiddenFields: render.SessionFields("s1", map[string]string{"_csrf": "tok"}),
		Errors: map[string][]string{
			"":          {"server unavailable"},
			"gender":    {"not allowed"},
			"unknown.x": {"lost"},
		},
	})

	assertContains(t, out,
		`<input type="hidden" name="_csrf" value="tok">`,
		`<input type="hidden" name="_form_session" value="s1">`,
		"请输入用户名",
		"not allowed",
		"server unavailable",
		"lost",
		`aria-invalid="true"`,
	)
	if strings.Index(out, `name="_csrf"`) > strings.Index(out, `name="_form_session"`) {
		t.Fatalf("hidden fields not sorted:\n%s", out)
	}
}

func TestRenderTheme(t *testing.T) {
	f := newTestForm(t)
	out := renderForm(t, f, render.RenderOptions{
		Theme: &theme.RendererConfig{
			Theme:   "acme",
			Variant: "dark",
			CSSVars: map[string]string{
				"--brand": "#123456",
				"--evil":  "red;}</style>",
				"plain":   "ignored",
			},
			AssetURL: func(key string) string { return "/themes/acme/" + key },
		},
	})

	assertContains(t, out,
		`data-theme="acme"`,
		`data-theme-variant="dark"`,
		`href="/themes/acme/formkit.css"`,
		"--brand: #123456;",
	)
	if strings.Contains(out, "--evil") || strings.Contains(out, "plain:") {
		t.Fatalf("unsafe css variables emitted:\n%s", out)
	}
}

func TestRenderHonoursContext(t *testing.T) {
	f := newTestForm(t)
	r, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, f.View(), render.RenderOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRenderRejectsUnknownWidget(t *testing.T) {
	view := form.View{Items: []form.ItemView{{
		Field: &form.FieldView{Path: "x", Name: "x", Widget: model.WidgetKind("slider")},
	}}}
	r, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if _, err := r.Render(context.Background(), view, render.RenderOptions{}); err == nil {
		t.Fatalf("expected unsupported widget error")
	}
}

func TestRegistryNegotiation(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	reg := render.NewRegistry()
	reg.MustRegister(r)
	got, err := reg.Negotiate("text/html,application/xhtml+xml")
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	if got.Name() != Name {
		t.Fatalf("expected %s renderer, got %s", Name, got.Name())
	}
}
