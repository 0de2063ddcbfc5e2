// Package arraygroup keeps the ordered instances of a repeatable field group.
// Every instance carries a generated key that survives insertions and
// removals elsewhere in the list.
package arraygroup

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/goliatone/go-formkit/pkg/model"
)

// ErrUnknownInstance is returned for keys that are not in the group.
var ErrUnknownInstance = errors.New("arraygroup: unknown instance")

// Instance is one repetition of the group.
type Instance struct {
	Key    string
	Values map[string]model.Value
}

func (in Instance) clone() Instance {
	return Instance{Key: in.Key, Values: maps.Clone(in.Values)}
}

// Option configures a Manager.
type Option func(*Manager)

// WithKeyFunc replaces the key generator.
func WithKeyFunc(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.keyFn = fn
		}
	}
}

// Manager holds a group's instances in insertion order. It is not safe for
// concurrent use; the owning form serialises access.
type Manager struct {
	group     model.ArrayGroup
	instances []Instance
	keyFn     func() string
	issued    map[string]struct{}
}

// New returns an empty manager for group.
func New(group model.ArrayGroup, opts ...Option) *Manager {
	m := &Manager{
		group:  group,
		keyFn:  uuid.NewString,
		issued: make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Group returns the group definition.
func (m *Manager) Group() model.ArrayGroup {
	return m.group
}

// Add appends an instance with every field absent and returns its key.
func (m *Manager) Add() string {
	key := m.nextKey()
	m.instances = append(m.instances, Instance{Key: key, Values: make(map[string]model.Value)})
	return key
}

// AddValues appends an instance seeded with values. Unknown field names are
// rejected.
func (m *Manager) AddValues(values map[string]model.Value) (string, error) {
	for name := range values {
		if _, ok := m.group.Field(name); !ok {
			return "", fmt.Errorf("arraygroup: %s: unknown field %q", m.group.Name, name)
		}
	}
	key := m.nextKey()
	seeded := make(map[string]model.Value, len(values))
	for name, v := range values {
		if !v.IsAbsent() {
			seeded[name] = v
		}
	}
	m.instances = append(m.instances, Instance{Key: key, Values: seeded})
	return key, nil
}

// Remove deletes the instance with key. Other instances keep their keys,
// values and relative order.
func (m *Manager) Remove(key string) error {
	idx := m.Index(key)
	if idx < 0 {
		return fmt.Errorf("%w: %s.%s", ErrUnknownInstance, m.group.Name, key)
	}
	m.instances = slices.Delete(m.instances, idx, idx+1)
	return nil
}

// Instances returns copies of every instance in order.
func (m *Manager) Instances() []Instance {
	out := make([]Instance, len(m.instances))
	for i, in := range m.instances {
		out[i] = in.clone()
	}
	return out
}

// Keys returns instance keys in order.
func (m *Manager) Keys() []string {
	keys := make([]string, len(m.instances))
	for i, in := range m.instances {
		keys[i] = in.Key
	}
	return keys
}

// Instance returns a copy of the instance with key.
func (m *Manager) Instance(key string) (Instance, bool) {
	idx := m.Index(key)
	if idx < 0 {
		return Instance{}, false
	}
	return m.instances[idx].clone(), true
}

// Index returns the position of key, or -1.
func (m *Manager) Index(key string) int {
	return slices.IndexFunc(m.instances, func(in Instance) bool { return in.Key == key })
}

// KeyAt returns the key at position idx.
func (m *Manager) KeyAt(idx int) (string, bool) {
	if idx < 0 || idx >= len(m.instances) {
		return "", false
	}
	return m.instances[idx].Key, true
}

// Len reports the number of instances.
func (m *Manager) Len() int {
	return len(m.instances)
}

// Clear drops every instance. Keys already issued are not reused.
func (m *Manager) Clear() {
	m.instances = nil
}

// Get returns the value of field in instance key.
func (m *Manager) Get(key, field string) (model.Value, error) {
	idx, err := m.locate(key, field)
	if err != nil {
		return model.Value{}, err
	}
	return m.instances[idx].Values[field], nil
}

// Set stores value for field in instance key. Absent values unset the field.
func (m *Manager) Set(key, field string, value model.Value) error {
	idx, err := m.locate(key, field)
	if err != nil {
		return err
	}
	if value.IsAbsent() {
		delete(m.instances[idx].Values, field)
		return nil
	}
	m.instances[idx].Values[field] = value
	return nil
}

// Unset removes field from instance key.
func (m *Manager) Unset(key, field string) error {
	return m.Set(key, field, model.Absent())
}

// Scope returns the instance's values as the sibling scope for validation and
// visibility. The map is a copy.
func (m *Manager) Scope(key string) (map[string]model.Value, error) {
	idx := m.Index(key)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownInstance, m.group.Name, key)
	}
	return maps.Clone(m.instances[idx].Values), nil
}

func (m *Manager) locate(key, field string) (int, error) {
	idx := m.Index(key)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s.%s", ErrUnknownInstance, m.group.Name, key)
	}
	if _, ok := m.group.Field(field); !ok {
		return -1, fmt.Errorf("arraygroup: %s: unknown field %q", m.group.Name, field)
	}
	return idx, nil
}

const maxKeyAttempts = 64

func (m *Manager) nextKey() string {
	for range maxKeyAttempts {
		key := m.keyFn()
		if _, dup := m.issued[key]; dup || key == "" {
			continue
		}
		m.issued[key] = struct{}{}
		return key
	}
	panic(fmt.Sprintf("arraygroup: %s: key function keeps returning used keys", m.group.Name))
}
