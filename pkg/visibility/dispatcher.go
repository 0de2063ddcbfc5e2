package visibility

import "github.com/goliatone/go-formkit/pkg/model"

// Dispatcher indexes a scope's fields by the sibling names they depend on so
// a value change re-evaluates only its subscribers.
type Dispatcher struct {
	fields      []model.Field
	subscribers map[string][]int
}

// NewDispatcher builds the subscription index for one scope (the top-level
// fields of a form, or the templates of an array group).
func NewDispatcher(fields []model.Field) *Dispatcher {
	d := &Dispatcher{
		fields:      append([]model.Field(nil), fields...),
		subscribers: make(map[string][]int),
	}
	for idx, field := range d.fields {
		if !field.Conditional() {
			continue
		}
		for _, dep := range field.Dependencies {
			d.subscribers[dep] = append(d.subscribers[dep], idx)
		}
	}
	return d
}

// Subscribers returns, in declaration order, the conditional fields that
// depend on name.
func (d *Dispatcher) Subscribers(name string) []model.Field {
	if d == nil {
		return nil
	}
	indexes := d.subscribers[name]
	if len(indexes) == 0 {
		return nil
	}
	out := make([]model.Field, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, d.fields[idx])
	}
	return out
}

// Conditional returns every field of the scope that declares a predicate.
func (d *Dispatcher) Conditional() []model.Field {
	if d == nil {
		return nil
	}
	var out []model.Field
	for _, field := range d.fields {
		if field.Conditional() {
			out = append(out, field)
		}
	}
	return out
}
