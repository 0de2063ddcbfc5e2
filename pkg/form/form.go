// Package form orchestrates a declarative form: it owns values and
// validation state, recomputes conditional visibility, manages array groups
// and gates submission on every visible field being valid.
//
// A Form is safe for concurrent use. Every read and write goes through one
// lock; async validators run on their own goroutines and their completions
// are applied only while their sequence tag is still current.
package form

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/goliatone/go-formkit/pkg/arraygroup"
	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/validation"
	"github.com/goliatone/go-formkit/pkg/visibility"
)

// Form is the single owner of a form's mutable state.
type Form struct {
	mu sync.Mutex

	cfg      settings
	items    []model.Item
	fields   map[string]model.Field
	groups   map[string]*arraygroup.Manager
	dispatch map[string]*visibility.Dispatcher

	values          map[string]model.Value
	initial         map[string]model.Value
	initialGroups   map[string][]map[string]model.Value
	instanceInitial map[string]map[string]model.Value

	states  map[string]validation.State
	hidden  map[string]bool
	cancels map[string]context.CancelFunc
	seq     *validation.Sequencer

	ctx     context.Context
	stop    context.CancelFunc
	changed chan struct{}
	closed  bool

	outbox   []Event
	draining bool

	lmu          sync.Mutex
	listeners    map[int]func(Event)
	nextListener int
}

// target addresses one concrete field: a top-level field, or a template
// field inside one array instance.
type target struct {
	field model.Field
	group string
	key   string
	id    string
}

func (t target) path() model.Path {
	if t.group == "" {
		return model.P(t.field.Name())
	}
	return model.P(t.group, t.key, t.field.Name())
}

// New builds a form over items. Descriptor errors are returned as
// *model.ConfigError and no form is constructed.
func New(items []model.Item, opts ...Option) (*Form, error) {
	if err := model.ValidateItems(items); err != nil {
		return nil, err
	}
	cfg := defaultSettings()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.evaluator == nil {
		cfg.evaluator = visibility.NewRuleEvaluator(nil)
	}

	f := &Form{
		cfg:             cfg,
		items:           items,
		fields:          make(map[string]model.Field),
		groups:          make(map[string]*arraygroup.Manager),
		dispatch:        make(map[string]*visibility.Dispatcher),
		instanceInitial: make(map[string]map[string]model.Value),
		states:          make(map[string]validation.State),
		hidden:          make(map[string]bool),
		cancels:         make(map[string]context.CancelFunc),
		seq:             validation.NewSequencer(),
		changed:         make(chan struct{}),
		listeners:       make(map[int]func(Event)),
	}

	var topLevel []model.Field
	for _, item := range items {
		switch {
		case item.Field != nil:
			f.fields[item.Field.Name()] = *item.Field
			topLevel = append(topLevel, *item.Field)
		case item.Group != nil:
			var groupOpts []arraygroup.Option
			if cfg.keyFn != nil {
				groupOpts = append(groupOpts, arraygroup.WithKeyFunc(cfg.keyFn))
			}
			f.groups[item.Group.Name] = arraygroup.New(*item.Group, groupOpts...)
			f.dispatch[item.Group.Name] = visibility.NewDispatcher(item.Group.Fields)
		}
	}
	f.dispatch[""] = visibility.NewDispatcher(topLevel)

	if err := f.parseInitial(cfg.initial); err != nil {
		return nil, err
	}

	f.ctx, f.stop = context.WithCancel(context.Background())
	f.restoreInitialLocked()
	return f, nil
}

func (f *Form) parseInitial(raw map[string]any) error {
	f.initial = make(map[string]model.Value)
	f.initialGroups = make(map[string][]map[string]model.Value)

	for name, value := range raw {
		if field, ok := f.fields[name]; ok {
			v, err := model.ValueOf(field, value)
			if err != nil {
				return initialError(name, err)
			}
			if !v.IsAbsent() {
				f.initial[name] = v
			}
			continue
		}
		m, ok := f.groups[name]
		if !ok {
			return &model.ConfigError{Path: name, Reason: "initial value for unknown field"}
		}
		records, err := instanceRecords(value)
		if err != nil {
			return &model.ConfigError{Path: name, Reason: err.Error()}
		}
		group := m.Group()
		for idx, record := range records {
			parsed := make(map[string]model.Value, len(record))
			for fieldName, fieldValue := range record {
				tmpl, ok := group.Field(fieldName)
				if !ok {
					return &model.ConfigError{
						Path:   fmt.Sprintf("%s.%d.%s", name, idx, fieldName),
						Reason: "initial value for unknown field",
					}
				}
				v, err := model.ValueOf(tmpl, fieldValue)
				if err != nil {
					return initialError(fmt.Sprintf("%s.%d.%s", name, idx, fieldName), err)
				}
				if !v.IsAbsent() {
					parsed[fieldName] = v
				}
			}
			f.initialGroups[name] = append(f.initialGroups[name], parsed)
		}
	}
	return nil
}

func initialError(path string, err error) error {
	var cfgErr *model.ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr
	}
	return &model.ConfigError{Path: path, Reason: err.Error()}
}

func instanceRecords(raw any) ([]map[string]any, error) {
	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case []map[string]any:
		return typed, nil
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for idx, entry := range typed {
			record, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("instance %d: expected a record, got %T", idx, entry)
			}
			out = append(out, record)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("array group expects a list of records, got %T", raw)
	}
}

// restoreInitialLocked rebuilds values and instances from the initial values
// and settles visibility. Instances get fresh keys.
func (f *Form) restoreInitialLocked() {
	f.values = maps.Clone(f.initial)
	f.instanceInitial = make(map[string]map[string]model.Value)
	f.states = make(map[string]validation.State)
	f.hidden = make(map[string]bool)

	for name, m := range f.groups {
		m.Clear()
		for _, record := range f.initialGroups[name] {
			key, err := m.AddValues(record)
			if err != nil {
				f.logf("form: %s: %v", name, err)
				continue
			}
			f.instanceInitial[scopeID(name, key)] = maps.Clone(record)
		}
	}
	f.settleAllLocked(true)
}

func (f *Form) settleAllLocked(restore bool) {
	f.settleScopeLocked("", "", restore)
	for name, m := range f.groups {
		for _, key := range m.Keys() {
			f.settleScopeLocked(name, key, restore)
		}
	}
}

func (f *Form) logf(format string, args ...any) {
	f.cfg.logger.Printf(format, args...)
}

func scopeID(group, key string) string {
	return group + "." + key
}

// scopeFields lists the fields sharing a sibling scope.
func (f *Form) scopeFields(group string) []model.Field {
	if group != "" {
		return f.groups[group].Group().Fields
	}
	var out []model.Field
	for _, item := range f.items {
		if item.Field != nil {
			out = append(out, *item.Field)
		}
	}
	return out
}

func (f *Form) targetFor(group, key string, field model.Field) target {
	t := target{field: field, group: group, key: key}
	t.id = t.path().String()
	return t
}

func (f *Form) resolveLocked(path model.Path) (target, error) {
	switch len(path) {
	case 1:
		if path[0].IsIndex {
			break
		}
		field, ok := f.fields[path[0].Name]
		if !ok {
			break
		}
		return f.targetFor("", "", field), nil
	case 3:
		if path[0].IsIndex || path[2].IsIndex {
			break
		}
		m, ok := f.groups[path[0].Name]
		if !ok {
			break
		}
		key := path[1].Name
		if path[1].IsIndex {
			key, ok = m.KeyAt(path[1].Index)
			if !ok {
				break
			}
		}
		if m.Index(key) < 0 {
			break
		}
		tmpl, ok := m.Group().Field(path[2].Name)
		if !ok {
			break
		}
		return f.targetFor(path[0].Name, key, tmpl), nil
	}
	return target{}, fmt.Errorf("%w: %s", ErrUnknownField, path)
}

func (f *Form) scopeValuesLocked(group, key string) map[string]model.Value {
	if group == "" {
		return maps.Clone(f.values)
	}
	values, err := f.groups[group].Scope(key)
	if err != nil {
		return map[string]model.Value{}
	}
	return values
}

func (f *Form) getLocked(t target) model.Value {
	if t.group == "" {
		return f.values[t.field.Name()]
	}
	v, err := f.groups[t.group].Get(t.key, t.field.Name())
	if err != nil {
		return model.Absent()
	}
	return v
}

func (f *Form) putLocked(t target, value model.Value) {
	if t.group == "" {
		if value.IsAbsent() {
			delete(f.values, t.field.Name())
		} else {
			f.values[t.field.Name()] = value
		}
		return
	}
	if err := f.groups[t.group].Set(t.key, t.field.Name(), value); err != nil {
		f.logf("form: %s: %v", t.id, err)
	}
}

func (f *Form) initialLocked(t target) model.Value {
	if t.group == "" {
		return f.initial[t.field.Name()]
	}
	return f.instanceInitial[scopeID(t.group, t.key)][t.field.Name()]
}

func (f *Form) stateLocked(id string) validation.State {
	if st, ok := f.states[id]; ok {
		return st
	}
	return validation.Untouched()
}

func (f *Form) setStateLocked(t target, st validation.State) []Event {
	prev := f.stateLocked(t.id)
	if st.Status == validation.StatusUntouched {
		delete(f.states, t.id)
	} else {
		f.states[t.id] = st
	}
	if prev == st {
		return nil
	}
	f.notifyLocked()
	return []Event{stateEvent(t.id, st)}
}

// stopLocked supersedes and cancels any in-flight validation for id.
func (f *Form) stopLocked(id string) {
	f.seq.Supersede(id)
	if cancel, ok := f.cancels[id]; ok {
		cancel()
		delete(f.cancels, id)
	}
}

func (f *Form) stopScopeLocked(prefix string) {
	f.seq.SupersedePrefix(prefix)
	for id, cancel := range f.cancels {
		if strings.HasPrefix(id, prefix+".") {
			cancel()
			delete(f.cancels, id)
		}
	}
	for id := range f.states {
		if strings.HasPrefix(id, prefix+".") {
			delete(f.states, id)
		}
	}
	for id := range f.hidden {
		if strings.HasPrefix(id, prefix+".") {
			delete(f.hidden, id)
		}
	}
}

func (f *Form) stopAllLocked() {
	f.seq.SupersedeAll()
	for id, cancel := range f.cancels {
		cancel()
		delete(f.cancels, id)
	}
}

func (f *Form) notifyLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}

// visibleTargetsLocked lists every mounted field in layout order.
func (f *Form) visibleTargetsLocked() []target {
	var out []target
	for _, item := range f.items {
		switch {
		case item.Field != nil:
			t := f.targetFor("", "", *item.Field)
			if !f.hidden[t.id] {
				out = append(out, t)
			}
		case item.Group != nil:
			m := f.groups[item.Group.Name]
			for _, key := range m.Keys() {
				for _, tmpl := range item.Group.Fields {
					t := f.targetFor(item.Group.Name, key, tmpl)
					if !f.hidden[t.id] {
						out = append(out, t)
					}
				}
			}
		}
	}
	return out
}
