package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/render"
	"github.com/goliatone/go-formkit/pkg/validation"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	textAreas    []string
	passwords    []string
	infoMessages []string
	selectMsgs   []string
	inputPos     int
	selectPos    int
	confirmPos   int
	textPos      int
	passPos      int
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, _ InputConfig) (string, error) {
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	s.selectMsgs = append(s.selectMsgs, cfg.Message)
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func registrationItems(async model.AsyncValidator) []model.Item {
	return []model.Item{
		model.FieldItem(model.Field{
			Path:   model.P("username"),
			Label:  "用户名",
			Widget: model.WidgetText,
			Rules:  []model.Rule{model.Required("请输入用户名")},
			Async:  async,
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
		model.FieldItem(model.Field{
			Path:   model.P("notes"),
			Label:  "备注",
			Widget: model.WidgetMultiline,
		}),
		model.GroupItem(model.ArrayGroup{
			Name:  "dependents",
			Label: "家属",
			Fields: []model.Field{
				{
					Path:   model.P("name"),
					Label:  "姓名",
					Widget: model.WidgetText,
					Rules:  []model.Rule{model.Required("请输入姓名")},
				},
				{
					Path:   model.P("relationship"),
					Label:  "关系",
					Widget: model.WidgetChoice,
					Options: []model.Option{
						{Label: "家人", Value: model.String("family")},
						{Label: "朋友", Value: model.String("friend")},
					},
				},
				{
					Path:           model.P("familyTitle"),
					Label:          "亲属称呼",
					Widget:         model.WidgetText,
					Dependencies:   []string{"relationship"},
					VisibilityRule: `relationship == "family"`,
				},
			},
		}),
	}
}

func newForm(t *testing.T, async model.AsyncValidator, opts ...form.Option) *form.Form {
	t.Helper()
	n := 0
	opts = append(opts, form.WithKeyFunc(func() string {
		n++
		return "k" + strconv.Itoa(n)
	}))
	f, err := form.New(registrationItems(async), opts...)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestCollectWalksFormInLayoutOrder(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"", "alice", "bad-date", "2000-01-02", "Bob", "阿姨"},
		passwords: []string{"s3cret"},
		textAreas: []string{"hello"},
		// gender, group menu (add), relationship, group menu (done)
		selectIdx: []int{2, 0, 1, 2},
	}
	r, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	f := newForm(t, nil)

	out, err := r.Collect(context.Background(), f)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	want := `{"username":"alice","password":"s3cret","gender":"female","birthday":"2000-01-02","notes":"hello","dependents":[{"name":"Bob","relationship":"family","familyTitle":"阿姨"}]}`
	if string(out) != want {
		t.Fatalf("unexpected payload\nwant %s\ngot  %s", want, out)
	}
	if driver.inputPos != len(driver.inputs) || driver.selectPos != len(driver.selectIdx) {
		t.Fatalf("prompts not consumed: inputs %d/%d selects %d/%d",
			driver.inputPos, len(driver.inputs), driver.selectPos, len(driver.selectIdx))
	}
	if len(driver.infoMessages) != 2 {
		t.Fatalf("expected two correction messages, got %q", driver.infoMessages)
	}
	if !strings.Contains(driver.infoMessages[0], "请输入用户名") {
		t.Errorf("expected required message first, got %q", driver.infoMessages[0])
	}
	if !strings.Contains(driver.infoMessages[1], "请输入有效日期") {
		t.Errorf("expected date message second, got %q", driver.infoMessages[1])
	}
}

func TestFillWaitsForAsyncCheck(t *testing.T) {
	taken := model.AsyncValidatorFunc(func(ctx context.Context, value model.Value) error {
		if value.Text() == "admin" {
			return validation.Reject("名称已被占用")
		}
		return nil
	})
	driver := &stubDriver{
		inputs:    []string{"admin", "alice", ""},
		passwords: []string{""},
		textAreas: []string{""},
		selectIdx: []int{0, 1},
	}
	r, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	f := newForm(t, taken)

	snap, err := r.Fill(context.Background(), f)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	got, ok := snap.Get("username")
	if !ok || got != "alice" {
		t.Fatalf("expected alice, got %v", got)
	}
	var sawTaken bool
	for _, msg := range driver.infoMessages {
		if strings.Contains(msg, "名称已被占用") {
			sawTaken = true
		}
	}
	if !sawTaken {
		t.Fatalf("expected async rejection to be reported, got %q", driver.infoMessages)
	}
}

func TestFillRemovesInstance(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"alice", "", "Ann", "Bob"},
		passwords: []string{""},
		textAreas: []string{""},
		// gender "-", add, relationship "-", add, relationship "-", remove #1, done
		selectIdx: []int{0, 0, 0, 0, 0, 1, 2},
	}
	r, err := New(WithPromptDriver(driver), WithOutputFormat(OutputFormatPrettyText))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	f := newForm(t, nil)

	out, err := r.Collect(context.Background(), f)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "dependents[0].name=Bob\n") || strings.Contains(got, "Ann") {
		t.Fatalf("expected only Bob to remain:\n%s", got)
	}
	if !strings.Contains(got, "username=alice\n") {
		t.Fatalf("missing username:\n%s", got)
	}
}

func TestFillPropagatesAbort(t *testing.T) {
	r, err := New(WithPromptDriver(&abortDriver{}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	f := newForm(t, nil)
	if _, err := r.Fill(context.Background(), f); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestSerializeFormEncoded(t *testing.T) {
	r, err := New(
		WithPromptDriver(&stubDriver{}),
		WithOutputFormat(OutputFormatFormURLEncoded),
		WithSubmitTransformer(func(values map[string]any) (map[string]any, error) {
			values["source"] = "cli"
			return values, nil
		}),
	)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	f := newForm(t, nil, form.WithInitialValues(map[string]any{
		"username":   "alice",
		"dependents": []any{map[string]any{"name": "Bob"}},
	}))

	out, err := r.serialize(f.Values())
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	want := "dependents.0.name=Bob&source=cli&username=alice"
	if string(out) != want {
		t.Fatalf("want %s, got %s", want, out)
	}
}

func TestRenderSummary(t *testing.T) {
	r, err := New(WithPromptDriver(&stubDriver{}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	f := newForm(t, nil, form.WithInitialValues(map[string]any{
		"password":   "hunter2",
		"gender":     "male",
		"dependents": []any{map[string]any{"name": "Bob", "relationship": "family"}},
	}))
	if err := f.Validate(model.P("username")); err != nil {
		t.Fatalf("validate: %v", err)
	}

	out, err := r.Render(context.Background(), f.View(), render.RenderOptions{
		Title:  "注册",
		Errors: map[string][]string{"": {"server busy"}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := string(out)
	for _, want := range []string{"注册", "server busy", "用户名 *:", "请输入用户名", "性别: 男", "密码: ******", "家属 (1)", "亲属称呼:"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "hunter2") {
		t.Fatalf("secret leaked:\n%s", got)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(WithOutputFormat("xml")); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

type abortDriver struct{ stubDriver }

func (abortDriver) Input(context.Context, InputConfig) (string, error) {
	return "", ErrAborted
}
