package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func evalRule(t *testing.T, rule string, values map[string]any) bool {
	t.Helper()
	prog, err := Compile(rule)
	if err != nil {
		t.Fatalf("Compile(%q) returned error: %v", rule, err)
	}
	ok, err := prog.Eval(values, nil)
	if err != nil {
		t.Fatalf("Eval(%q) returned error: %v", rule, err)
	}
	return ok
}

func TestProgramStringComparison(t *testing.T) {
	t.Parallel()

	if !evalRule(t, `relationship == "family"`, map[string]any{"relationship": "family"}) {
		t.Fatalf("expected true for matching string")
	}
	if evalRule(t, `relationship == "family"`, map[string]any{"relationship": "friend"}) {
		t.Fatalf("expected false for different string")
	}
	if evalRule(t, `relationship == 'family'`, map[string]any{}) {
		t.Fatalf("expected false for missing value")
	}
	if !evalRule(t, `relationship != family`, map[string]any{}) {
		t.Fatalf("expected true for missing value compared with !=")
	}
}

func TestProgramBooleanAndTruthy(t *testing.T) {
	t.Parallel()

	if !evalRule(t, "enabled == true", map[string]any{"enabled": "true"}) {
		t.Fatalf("expected true for string true")
	}
	if !evalRule(t, "!enabled", map[string]any{"enabled": false}) {
		t.Fatalf("expected true for !false")
	}
	if evalRule(t, "nickname", map[string]any{"nickname": "   "}) {
		t.Fatalf("expected blank text to be falsy")
	}
}

func TestProgramNumbersAndNull(t *testing.T) {
	t.Parallel()

	if !evalRule(t, "count == 3", map[string]any{"count": float64(3)}) {
		t.Fatalf("expected numeric equality")
	}
	if !evalRule(t, "missing == null", map[string]any{}) {
		t.Fatalf("expected missing == null")
	}
	if !evalRule(t, "present != null", map[string]any{"present": false}) {
		t.Fatalf("expected present != null")
	}
}

func TestProgramComposition(t *testing.T) {
	t.Parallel()

	rule := `(kind == "family" || kind == "spouse") && !extras.readonly`
	values := map[string]any{"kind": "spouse"}

	prog := MustCompile(rule)
	ok, err := prog.Eval(values, map[string]any{"readonly": false})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected composition to hold")
	}

	ok, err = prog.Eval(values, map[string]any{"readonly": true})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected extras to veto visibility")
	}
}

func TestIdentifiers(t *testing.T) {
	t.Parallel()

	got, err := Identifiers(`relationship == "family" && (age != null || !extras.admin) && relationship != "x"`)
	if err != nil {
		t.Fatalf("Identifiers returned error: %v", err)
	}
	want := []string{"age", "relationship"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	cases := []string{
		`a = "x"`,
		`a == "x`,
		`(a == "x"`,
		`a &&`,
		`== "x"`,
	}
	for _, rule := range cases {
		if _, err := Compile(rule); err == nil {
			t.Fatalf("expected error for %q", rule)
		}
	}
}

func TestEmptyRuleAlwaysTrue(t *testing.T) {
	t.Parallel()

	if !evalRule(t, "   ", nil) {
		t.Fatalf("expected empty rule to evaluate true")
	}
}
