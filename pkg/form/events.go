package form

import (
	"slices"

	"github.com/goliatone/go-formkit/pkg/validation"
)

// EventType names a form event.
type EventType string

const (
	EventValue           EventType = "value"
	EventState           EventType = "state"
	EventVisibility      EventType = "visibility"
	EventInstanceAdded   EventType = "instance-added"
	EventInstanceRemoved EventType = "instance-removed"
	EventReset           EventType = "reset"
	EventClear           EventType = "clear"
	EventSubmitted       EventType = "submitted"
	EventStale           EventType = "stale"
)

// Event describes one observable change.
type Event struct {
	Type    EventType         `json:"type"`
	Path    string            `json:"path,omitempty"`
	Group   string            `json:"group,omitempty"`
	Key     string            `json:"key,omitempty"`
	Value   any               `json:"value,omitempty"`
	State   *validation.State `json:"state,omitempty"`
	Visible *bool             `json:"visible,omitempty"`
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. Listeners see events in the order the changes were applied.
// They run outside the form lock and may call back into the form; events
// caused by such calls are delivered after the current one returns.
func (f *Form) Subscribe(fn func(Event)) (cancel func()) {
	f.lmu.Lock()
	defer f.lmu.Unlock()
	id := f.nextListener
	f.nextListener++
	f.listeners[id] = fn
	return func() {
		f.lmu.Lock()
		defer f.lmu.Unlock()
		delete(f.listeners, id)
	}
}

// unlockEmit queues events in the order they were applied, releases f.mu and
// delivers the queue. Must be called with f.mu held. Only one goroutine
// delivers at a time; events queued by others (or by listeners calling back
// into the form) are delivered by the goroutine already draining.
func (f *Form) unlockEmit(events ...Event) {
	f.outbox = append(f.outbox, events...)
	if f.draining {
		f.mu.Unlock()
		return
	}
	f.draining = true
	held := true
	defer func() {
		if !held {
			f.mu.Lock()
		}
		f.draining = false
		f.mu.Unlock()
	}()
	for len(f.outbox) > 0 {
		batch := f.outbox
		f.outbox = nil
		held = false
		f.mu.Unlock()
		f.deliver(batch)
		f.mu.Lock()
		held = true
	}
}

func (f *Form) deliver(events []Event) {
	f.lmu.Lock()
	ids := make([]int, 0, len(f.listeners))
	for id := range f.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, f.listeners[id])
	}
	f.lmu.Unlock()

	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

func stateEvent(path string, st validation.State) Event {
	return Event{Type: EventState, Path: path, State: &st}
}

func visibilityEvent(path string, visible bool) Event {
	return Event{Type: EventVisibility, Path: path, Visible: &visible}
}
