// Package testsupport holds fixtures shared by package tests: the
// registration form, deterministic instance keys, a controllable async
// validator and event collection helpers.
package testsupport

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/model"
)

// EventTimeout bounds WaitFor.
const EventTimeout = 2 * time.Second

// RegistrationItems is the registration form: username, password, gender,
// birthday and the dependents group with a conditional familyTitle. async
// checks both username and each dependent's name.
func RegistrationItems(async model.AsyncValidator) []model.Item {
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
			Rules:  []model.Rule{model.Required("请输入密码")},
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
			Rules:  []model.Rule{model.Required("请选择出生日期")},
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
					Async:  async,
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
					Rules:          []model.Rule{model.Required("请输入亲属称呼")},
					Dependencies:   []string{"relationship"},
					VisibilityRule: `relationship == "family"`,
				},
			},
		}),
	}
}

// SequentialKeys returns a key function yielding k1, k2, ...
func SequentialKeys() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("k%d", n)
	}
}

// Gate is an async validator whose calls block until released per value.
type Gate struct {
	mu    sync.Mutex
	chans map[string]chan error
}

func NewGate() *Gate {
	return &Gate{chans: make(map[string]chan error)}
}

func (g *Gate) ch(value string) chan error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.chans[value]; !ok {
		g.chans[value] = make(chan error, 1)
	}
	return g.chans[value]
}

// Release completes one pending call for value with err.
func (g *Gate) Release(value string, err error) {
	g.ch(value) <- err
}

// Validate blocks until Release is called for value, ignoring ctx like a
// validator that cannot be interrupted.
func (g *Gate) Validate(_ context.Context, value model.Value) error {
	return <-g.ch(value.Text())
}

// Collect buffers every event f emits from now on.
func Collect(f *form.Form) <-chan form.Event {
	events := make(chan form.Event, 256)
	f.Subscribe(func(ev form.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	return events
}

// WaitFor returns the first event matching match or fails after EventTimeout.
func WaitFor(t testing.TB, events <-chan form.Event, match func(form.Event) bool) form.Event {
	t.Helper()
	timeout := time.After(EventTimeout)
	for {
		select {
		case ev := <-events:
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for event")
			return form.Event{}
		}
	}
}
