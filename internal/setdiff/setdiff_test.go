package setdiff

import (
	"slices"
	"testing"
)

func TestDiffBasic(t *testing.T) {
	res := Diff([]string{"a", "b"}, []string{"b", "c"})
	if !slices.Equal(res.ToAdd, []string{"a"}) {
		t.Fatalf("unexpected to_add: %v", res.ToAdd)
	}
	if !slices.Equal(res.ToRemove, []string{"c"}) {
		t.Fatalf("unexpected to_remove: %v", res.ToRemove)
	}
}

func TestDiffIdenticalSetsIsEmpty(t *testing.T) {
	res := Diff([]string{"r1", "r2", "r2"}, []string{"r2", "r1"})
	if !res.Empty() {
		t.Fatalf("expected empty diff, got %+v", res)
	}
	if res.ToAdd == nil || res.ToRemove == nil {
		t.Fatalf("expected non-nil slices for JSON output")
	}
}

func TestDiffDeduplicates(t *testing.T) {
	res := Diff([]string{"x", "x", "y"}, nil)
	if !slices.Equal(res.ToAdd, []string{"x", "y"}) {
		t.Fatalf("expected deduplicated additions, got %v", res.ToAdd)
	}
	if len(res.ToRemove) != 0 {
		t.Fatalf("unexpected removals: %v", res.ToRemove)
	}
}

func TestDiffIsOrderIndependent(t *testing.T) {
	a := Diff([]string{"c", "a", "b"}, []string{"d", "b"})
	b := Diff([]string{"b", "c", "a"}, []string{"b", "d"})
	if !slices.Equal(a.ToAdd, b.ToAdd) || !slices.Equal(a.ToRemove, b.ToRemove) {
		t.Fatalf("diff depends on input order: %+v vs %+v", a, b)
	}
}

func TestApplyReconstructsDesired(t *testing.T) {
	cases := []struct {
		desired []string
		current []string
	}{
		{[]string{"a", "b"}, []string{"b", "c"}},
		{nil, []string{"x", "y"}},
		{[]string{"x", "y"}, nil},
		{[]string{"m"}, []string{"m"}},
	}
	for _, tc := range cases {
		got := Apply(tc.current, Diff(tc.desired, tc.current))
		want := Apply(tc.desired, Result{})
		if !slices.Equal(got, want) {
			t.Fatalf("Apply(%v, Diff(%v, %v)) = %v, want %v", tc.current, tc.desired, tc.current, got, want)
		}
	}
}
