package setdiff

import "sort"

// Result lists the identifiers to add and remove so that current matches desired.
type Result struct {
	ToAdd    []string `json:"to_add"`
	ToRemove []string `json:"to_remove"`
}

// Empty reports whether current already matches desired.
func (r Result) Empty() bool { return len(r.ToAdd) == 0 && len(r.ToRemove) == 0 }

// Diff compares two unordered identifier collections. Duplicates collapse and the
// output is sorted; callers must not depend on any other ordering property.
func Diff(desired, current []string) Result {
	want := toSet(desired)
	have := toSet(current)

	res := Result{ToAdd: []string{}, ToRemove: []string{}}
	for id := range want {
		if _, ok := have[id]; !ok {
			res.ToAdd = append(res.ToAdd, id)
		}
	}
	for id := range have {
		if _, ok := want[id]; !ok {
			res.ToRemove = append(res.ToRemove, id)
		}
	}
	sort.Strings(res.ToAdd)
	sort.Strings(res.ToRemove)
	return res
}

// Apply reapplies a diff to current and returns the resulting set, sorted.
func Apply(current []string, r Result) []string {
	set := toSet(current)
	for _, id := range r.ToRemove {
		delete(set, id)
	}
	for _, id := range r.ToAdd {
		set[id] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
