package arraygroup_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formkit/pkg/arraygroup"
	"github.com/goliatone/go-formkit/pkg/model"
)

func dependents() model.ArrayGroup {
	return model.ArrayGroup{
		Name: "dependents",
		Fields: []model.Field{
			{Path: model.P("name"), Widget: model.WidgetText},
			{Path: model.P("relationship"), Widget: model.WidgetText},
		},
	}
}

func sequentialKeys() arraygroup.Option {
	n := 0
	return arraygroup.WithKeyFunc(func() string {
		n++
		return fmt.Sprintf("k%d", n)
	})
}

func names(t *testing.T, m *arraygroup.Manager) []string {
	t.Helper()
	var out []string
	for _, in := range m.Instances() {
		out = append(out, in.Values["name"].Text())
	}
	return out
}

func TestRemoveKeepsOthersStable(t *testing.T) {
	m := arraygroup.New(dependents(), sequentialKeys())
	a, b, c := m.Add(), m.Add(), m.Add()
	for key, name := range map[string]string{a: "A", b: "B", c: "C"} {
		if err := m.Set(key, "name", model.String(name)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	if err := m.Remove(b); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if diff := cmp.Diff([]string{a, c}, m.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "C"}, names(t, m)); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if got := m.Index(c); got != 1 {
		t.Fatalf("expected C at index 1, got %d", got)
	}
}

func TestRemoveUnknownLeavesGroupUntouched(t *testing.T) {
	m := arraygroup.New(dependents(), sequentialKeys())
	m.Add()
	err := m.Remove("missing")
	if !errors.Is(err, arraygroup.ErrUnknownInstance) {
		t.Fatalf("expected ErrUnknownInstance, got %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("group changed after failed remove")
	}
}

func TestKeysAreNeverReused(t *testing.T) {
	m := arraygroup.New(dependents())
	first := m.Add()
	if err := m.Remove(first); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	m.Clear()
	second := m.Add()
	if first == second || second == "" {
		t.Fatalf("expected fresh key, got %q then %q", first, second)
	}
}

func TestInstancesAreCopies(t *testing.T) {
	m := arraygroup.New(dependents(), sequentialKeys())
	key := m.Add()
	if err := m.Set(key, "name", model.String("A")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	snapshot := m.Instances()
	snapshot[0].Values["name"] = model.String("mutated")

	got, err := m.Get(key, "name")
	if err != nil || got.Text() != "A" {
		t.Fatalf("instance leaked internal state: %v, %v", got, err)
	}
}

func TestSetValidatesFieldAndUnset(t *testing.T) {
	m := arraygroup.New(dependents(), sequentialKeys())
	key := m.Add()
	if err := m.Set(key, "unknown", model.String("x")); err == nil {
		t.Fatalf("expected error for unknown field")
	}
	if err := m.Set(key, "name", model.String("A")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Unset(key, "name"); err != nil {
		t.Fatalf("Unset: %v", err)
	}
	scope, err := m.Scope(key)
	if err != nil {
		t.Fatalf("Scope: %v", err)
	}
	if _, ok := scope["name"]; ok {
		t.Fatalf("expected name to be unset")
	}
}

func TestAddValues(t *testing.T) {
	m := arraygroup.New(dependents(), sequentialKeys())
	key, err := m.AddValues(map[string]model.Value{"name": model.String("A"), "relationship": model.Absent()})
	if err != nil {
		t.Fatalf("AddValues: %v", err)
	}
	in, ok := m.Instance(key)
	if !ok || len(in.Values) != 1 || in.Values["name"].Text() != "A" {
		t.Fatalf("unexpected instance %+v", in)
	}
	if _, err := m.AddValues(map[string]model.Value{"age": model.Number(3)}); err == nil {
		t.Fatalf("expected error for unknown field")
	}
	if k, ok := m.KeyAt(0); !ok || k != key {
		t.Fatalf("KeyAt(0) = %q, %v", k, ok)
	}
}
