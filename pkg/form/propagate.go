package form

import (
	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/visibility"
)

// refreshVisibilityLocked re-evaluates t's predicate. Hiding clears the value
// and validation state and supersedes in-flight checks; showing starts from
// the initial value (when restore is set) and an untouched state. valueChanged
// reports whether t's own value moved, which may cascade to its subscribers.
func (f *Form) refreshVisibilityLocked(t target, restore bool) (events []Event, valueChanged bool) {
	visible, err := visibility.IsVisible(t.field, f.scopeValuesLocked(t.group, t.key), f.cfg.evaluator)
	if err != nil {
		f.logf("form: %s: visibility: %v", t.id, err)
		visible = false
	}
	if visible != f.hidden[t.id] {
		return nil, false
	}

	f.stopLocked(t.id)
	delete(f.states, t.id)
	old := f.getLocked(t)

	if !visible {
		f.hidden[t.id] = true
		f.putLocked(t, model.Absent())
		events = append(events, visibilityEvent(t.id, false))
		if !old.IsAbsent() {
			events = append(events, Event{Type: EventValue, Path: t.id})
			valueChanged = true
		}
	} else {
		delete(f.hidden, t.id)
		events = append(events, visibilityEvent(t.id, true))
		if init := f.initialLocked(t); restore && !init.IsAbsent() && !init.Equal(old) {
			f.putLocked(t, init)
			events = append(events, Event{Type: EventValue, Path: t.id, Value: init.Interface()})
			valueChanged = true
		}
	}
	f.notifyLocked()
	return events, valueChanged
}

// propagateLocked recomputes visibility for the subscribers of name within
// one scope, following cascades when a toggled field's value changes.
func (f *Form) propagateLocked(group, key, name string) []Event {
	d := f.dispatch[group]
	budget := 4 * (len(f.scopeFields(group)) + 1)
	queue := []string{name}
	var events []Event
	for len(queue) > 0 {
		if budget--; budget < 0 {
			f.logf("form: visibility cascade from %s did not settle", name)
			break
		}
		next := queue[0]
		queue = queue[1:]
		for _, field := range d.Subscribers(next) {
			ev, changed := f.refreshVisibilityLocked(f.targetFor(group, key, field), true)
			events = append(events, ev...)
			if changed {
				queue = append(queue, field.Name())
			}
		}
	}
	return events
}

// settleScopeLocked evaluates every conditional field of a scope until no
// visibility changes.
func (f *Form) settleScopeLocked(group, key string, restore bool) []Event {
	conditional := f.dispatch[group].Conditional()
	var events []Event
	for pass := 0; pass <= len(conditional); pass++ {
		moved := false
		for _, field := range conditional {
			ev, _ := f.refreshVisibilityLocked(f.targetFor(group, key, field), restore)
			if len(ev) > 0 {
				moved = true
				events = append(events, ev...)
			}
		}
		if !moved {
			break
		}
	}
	return events
}
