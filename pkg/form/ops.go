package form

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formkit/pkg/arraygroup"
	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/validation"
)

// SetValue stores value at path. With the change trigger the field is
// validated immediately; visibility of the field's subscribers in the same
// scope is recomputed afterwards.
func (f *Form) SetValue(path model.Path, value model.Value) error {
	f.mu.Lock()
	t, err := f.editableLocked(path)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	events := f.setValueLocked(t, value)
	f.unlockEmit(events...)
	return nil
}

// SetInput parses raw widget input for the field at path and stores it.
// Unparseable input leaves the value untouched, marks the field invalid and
// returns a *validation.ValidationError.
func (f *Form) SetInput(path model.Path, raw string) error {
	f.mu.Lock()
	t, err := f.editableLocked(path)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	value, err := model.ParseInput(t.field, raw)
	if err != nil {
		f.stopLocked(t.id)
		message := inputMessage(t.field)
		events := f.setStateLocked(t, validation.Invalid(message))
		f.unlockEmit(events...)
		return &validation.ValidationError{Path: t.id, Message: message}
	}
	events := f.setValueLocked(t, value)
	f.unlockEmit(events...)
	return nil
}

func inputMessage(field model.Field) string {
	switch field.Widget {
	case model.WidgetDate:
		return "请输入有效日期"
	case model.WidgetChoice:
		return "请选择有效选项"
	default:
		return "输入无效"
	}
}

func (f *Form) setValueLocked(t target, value model.Value) []Event {
	f.putLocked(t, value)
	f.notifyLocked()
	events := []Event{{Type: EventValue, Path: t.id, Value: value.Interface()}}

	if f.cfg.trigger == TriggerChange {
		events = append(events, f.validateLocked(t)...)
	} else {
		f.stopLocked(t.id)
		events = append(events, f.setStateLocked(t, validation.Untouched())...)
	}
	return append(events, f.propagateLocked(t.group, t.key, t.field.Name())...)
}

// Blur signals that the widget at path lost focus. With the blur trigger, or
// while the field is still untouched, it validates the field.
func (f *Form) Blur(path model.Path) error {
	f.mu.Lock()
	t, err := f.editableLocked(path)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	var events []Event
	if f.cfg.trigger == TriggerBlur || f.stateLocked(t.id).Status == validation.StatusUntouched {
		events = f.validateLocked(t)
	}
	f.unlockEmit(events...)
	return nil
}

// Validate validates the field at path against its current value.
func (f *Form) Validate(path model.Path) error {
	f.mu.Lock()
	t, err := f.editableLocked(path)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	events := f.validateLocked(t)
	f.unlockEmit(events...)
	return nil
}

func (f *Form) editableLocked(path model.Path) (target, error) {
	if f.closed {
		return target{}, ErrClosed
	}
	t, err := f.resolveLocked(path)
	if err != nil {
		return target{}, err
	}
	if f.hidden[t.id] {
		return target{}, fmt.Errorf("%w: %s", ErrHiddenField, t.id)
	}
	return t, nil
}

// validateLocked runs the sync rules and, when they pass, dispatches the
// async validator tagged with a fresh sequence number.
func (f *Form) validateLocked(t target) []Event {
	if cancel, ok := f.cancels[t.id]; ok {
		cancel()
		delete(f.cancels, t.id)
	}
	tag := f.seq.Next(t.id)
	value := f.getLocked(t)

	out := validation.CheckSync(t.field, value)
	if out.Status == validation.StatusInvalid || t.field.Async == nil {
		return f.setStateLocked(t, out.State())
	}

	ctx, cancel := context.WithCancel(f.ctx)
	f.cancels[t.id] = cancel
	go f.runAsync(ctx, t, value, tag)
	return f.setStateLocked(t, validation.Pending())
}

func (f *Form) runAsync(ctx context.Context, t target, value model.Value, tag uint64) {
	out := validation.RunAsync(ctx, t.field.Async, value, validation.WithTimeout(f.cfg.asyncTimeout))

	f.mu.Lock()
	if f.closed || !f.seq.Current(t.id, tag) {
		f.logf("form: %s: %v for %q", t.id, validation.ErrStaleCompletion, value.Text())
		f.unlockEmit(Event{Type: EventStale, Path: t.id, Value: value.Interface()})
		return
	}
	if cancel, ok := f.cancels[t.id]; ok {
		cancel()
		delete(f.cancels, t.id)
	}
	if out.Err != nil {
		f.logf("form: %s: %v", t.id, out.Err)
	}
	events := f.setStateLocked(t, out.State())
	f.unlockEmit(events...)
}

// Value returns the value at path. Hidden fields read as absent.
func (f *Form) Value(path model.Path) (model.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.resolveLocked(path)
	if err != nil {
		return model.Value{}, err
	}
	return f.getLocked(t), nil
}

// State returns the validation state at path.
func (f *Form) State(path model.Path) (validation.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.resolveLocked(path)
	if err != nil {
		return validation.State{}, err
	}
	return f.stateLocked(t.id), nil
}

// Visible reports whether the field at path is mounted.
func (f *Form) Visible(path model.Path) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.resolveLocked(path)
	if err != nil {
		return false, err
	}
	return !f.hidden[t.id], nil
}

// AddInstance appends an empty instance to group and returns its key.
func (f *Form) AddInstance(group string) (string, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return "", ErrClosed
	}
	m, ok := f.groups[group]
	if !ok {
		f.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrUnknownField, group)
	}
	key := m.Add()
	f.settleScopeLocked(group, key, true)
	f.notifyLocked()
	f.unlockEmit(Event{Type: EventInstanceAdded, Group: group, Key: key})
	return key, nil
}

// RemoveInstance deletes one instance, superseding its in-flight checks.
// Other instances keep their keys, values and states.
func (f *Form) RemoveInstance(group, key string) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	m, ok := f.groups[group]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownField, group)
	}
	if err := m.Remove(key); err != nil {
		f.mu.Unlock()
		f.logf("form: remove: %v", err)
		return err
	}
	scope := scopeID(group, key)
	f.stopScopeLocked(scope)
	delete(f.instanceInitial, scope)
	f.notifyLocked()
	f.unlockEmit(Event{Type: EventInstanceRemoved, Group: group, Key: key})
	return nil
}

// Instances returns copies of group's instances in order.
func (f *Form) Instances(group string) ([]arraygroup.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.groups[group]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, group)
	}
	return m.Instances(), nil
}

// Reset restores the initial values, rebuilding array instances under new
// keys, and clears every validation state.
func (f *Form) Reset() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	f.stopAllLocked()
	f.restoreInitialLocked()
	f.notifyLocked()
	f.unlockEmit(Event{Type: EventReset})
	return nil
}

// Clear empties every field and array group and clears validation states.
func (f *Form) Clear() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	f.stopAllLocked()
	f.values = make(map[string]model.Value)
	f.instanceInitial = make(map[string]map[string]model.Value)
	f.states = make(map[string]validation.State)
	f.hidden = make(map[string]bool)
	for _, m := range f.groups {
		m.Clear()
	}
	f.settleAllLocked(false)
	f.notifyLocked()
	f.unlockEmit(Event{Type: EventClear})
	return nil
}

// Submit validates every mounted field still untouched, waits for pending
// checks, and either refuses with a *SubmitError naming the first invalid
// field in layout order or hands the snapshot to the finish callback. Fields
// that become untouched while Submit waits (after Reset, Clear or an edit
// under the blur trigger) are validated again before it finishes. If ctx
// ends while checks are pending the error wraps ctx.Err().
func (f *Form) Submit(ctx context.Context) (Snapshot, error) {
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return Snapshot{}, ErrClosed
		}
		var events []Event
		pending := ""
		for _, t := range f.visibleTargetsLocked() {
			if f.stateLocked(t.id).Status == validation.StatusUntouched {
				events = append(events, f.validateLocked(t)...)
			}
			if pending == "" && f.stateLocked(t.id).Status == validation.StatusPending {
				pending = t.id
			}
		}
		if pending == "" {
			return f.finishLocked(events)
		}
		changed := f.changed
		f.unlockEmit(events...)

		select {
		case <-ctx.Done():
			return Snapshot{}, &SubmitError{Path: pending, Message: MessagePending, Err: ctx.Err()}
		case <-changed:
		}
	}
}

// finishLocked completes a submission once nothing is pending. Every mounted
// field must be valid. It releases f.mu.
func (f *Form) finishLocked(events []Event) (Snapshot, error) {
	for _, t := range f.visibleTargetsLocked() {
		st := f.stateLocked(t.id)
		if st.Status != validation.StatusValid {
			f.unlockEmit(events...)
			return Snapshot{}, &SubmitError{Path: t.id, Message: st.Message}
		}
	}
	snap := f.snapshotLocked()
	onFinish := f.cfg.onFinish
	f.unlockEmit(append(events, Event{Type: EventSubmitted})...)

	if onFinish != nil {
		onFinish(snap)
	}
	return snap, nil
}

// Values returns a snapshot of every mounted field.
func (f *Form) Values() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Await blocks until the field at path is no longer pending or ctx ends.
func (f *Form) Await(ctx context.Context, path model.Path) (validation.State, error) {
	for {
		f.mu.Lock()
		t, err := f.resolveLocked(path)
		if err != nil {
			f.mu.Unlock()
			return validation.State{}, err
		}
		st := f.stateLocked(t.id)
		closed := f.closed
		changed := f.changed
		f.mu.Unlock()

		if st.Status != validation.StatusPending {
			return st, nil
		}
		if closed {
			return st, ErrClosed
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-changed:
		}
	}
}

// Close supersedes all in-flight validation. Later writes return ErrClosed.
func (f *Form) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.stopAllLocked()
	f.stop()
	f.notifyLocked()
	return nil
}
