package form

import (
	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/validation"
)

const (
	DefaultSubmitLabel = "提交"
	DefaultResetLabel  = "重置"
	DefaultClearLabel  = "清空"
)

// View is a read-only rendering of the form for widget renderers. It lists
// mounted fields only.
type View struct {
	Items       []ItemView
	ShowReset   bool
	ShowClear   bool
	SubmitLabel string
	ResetLabel  string
	ClearLabel  string
}

// ItemView is a field or an array group; exactly one pointer is set.
type ItemView struct {
	Field *FieldView
	Group *GroupView
}

// FieldView describes one mounted field.
type FieldView struct {
	Path        string
	Name        string
	Label       string
	Widget      model.WidgetKind
	Required    bool
	Value       model.Value
	Input       string
	State       validation.State
	Options     []model.Option
	Placeholder string
	Help        string
	Descriptor  model.Field
}

// GroupView describes an array group and its instances.
type GroupView struct {
	Name        string
	Label       string
	AddLabel    string
	RemoveLabel string
	Instances   []InstanceView
}

// InstanceView is one array instance in display order.
type InstanceView struct {
	Key    string
	Index  int
	Fields []FieldView
}

// View returns the current rendering model.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := View{
		ShowReset:   f.cfg.showReset,
		ShowClear:   f.cfg.showClear,
		SubmitLabel: DefaultSubmitLabel,
		ResetLabel:  DefaultResetLabel,
		ClearLabel:  DefaultClearLabel,
	}
	for _, item := range f.items {
		switch {
		case item.Field != nil:
			t := f.targetFor("", "", *item.Field)
			if f.hidden[t.id] {
				continue
			}
			fv := f.fieldViewLocked(t)
			v.Items = append(v.Items, ItemView{Field: &fv})
		case item.Group != nil:
			group := *item.Group
			gv := GroupView{
				Name:        group.Name,
				Label:       group.Label,
				AddLabel:    group.AddText(),
				RemoveLabel: group.RemoveText(),
			}
			for idx, key := range f.groups[group.Name].Keys() {
				inst := InstanceView{Key: key, Index: idx}
				for _, tmpl := range group.Fields {
					t := f.targetFor(group.Name, key, tmpl)
					if f.hidden[t.id] {
						continue
					}
					inst.Fields = append(inst.Fields, f.fieldViewLocked(t))
				}
				gv.Instances = append(gv.Instances, inst)
			}
			v.Items = append(v.Items, ItemView{Group: &gv})
		}
	}
	return v
}

func (f *Form) fieldViewLocked(t target) FieldView {
	value := f.getLocked(t)
	return FieldView{
		Path:        t.id,
		Name:        t.field.Name(),
		Label:       t.field.Label,
		Widget:      t.field.Widget,
		Required:    t.field.Required(),
		Value:       value,
		Input:       value.Text(),
		State:       f.stateLocked(t.id),
		Options:     append([]model.Option(nil), t.field.Options...),
		Placeholder: t.field.Placeholder,
		Help:        t.field.Help,
		Descriptor:  t.field,
	}
}
