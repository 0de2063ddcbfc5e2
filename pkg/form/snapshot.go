package form

import (
	"bytes"
	"time"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formkit/pkg/model"
)

// Snapshot is an ordered, deep copy of a form's mounted values. Plain fields
// hold nil (absent), string, float64 or time.Time; array groups hold a
// []Snapshot with one record per instance.
type Snapshot struct {
	keys   []string
	values map[string]any
}

func (s *Snapshot) set(name string, value any) {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	if _, ok := s.values[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.values[name] = value
}

// Keys returns entry names in layout order.
func (s Snapshot) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len reports the number of entries.
func (s Snapshot) Len() int {
	return len(s.keys)
}

// Get returns the entry named name.
func (s Snapshot) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Map converts the snapshot into plain nested maps; array groups become
// []map[string]any.
func (s Snapshot) Map() map[string]any {
	out := make(map[string]any, len(s.keys))
	for _, name := range s.keys {
		switch v := s.values[name].(type) {
		case []Snapshot:
			records := make([]map[string]any, len(v))
			for i, rec := range v {
				records[i] = rec.Map()
			}
			out[name] = records
		default:
			out[name] = v
		}
	}
	return out
}

// MarshalJSON writes the snapshot as an object preserving layout order.
// Dates use the date-only layout.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		if err := writeSnapshotValue(&buf, s.values[name]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeSnapshotValue(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case []Snapshot:
		buf.WriteByte('[')
		for i, rec := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			raw, err := rec.MarshalJSON()
			if err != nil {
				return err
			}
			buf.Write(raw)
		}
		buf.WriteByte(']')
		return nil
	case time.Time:
		value = v.Format(model.DateLayout)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(raw)
	return nil
}

func (f *Form) snapshotLocked() Snapshot {
	var snap Snapshot
	for _, item := range f.items {
		switch {
		case item.Field != nil:
			t := f.targetFor("", "", *item.Field)
			if f.hidden[t.id] {
				continue
			}
			snap.set(t.field.Name(), f.getLocked(t).Interface())
		case item.Group != nil:
			m := f.groups[item.Group.Name]
			records := make([]Snapshot, 0, m.Len())
			for _, key := range m.Keys() {
				var rec Snapshot
				for _, tmpl := range item.Group.Fields {
					t := f.targetFor(item.Group.Name, key, tmpl)
					if f.hidden[t.id] {
						continue
					}
					rec.set(tmpl.Name(), f.getLocked(t).Interface())
				}
				records = append(records, rec)
			}
			snap.set(item.Group.Name, records)
		}
	}
	return snap
}
