package models

import "sort"

// OperationSelection is the result of a successful operation: the
// destination paths the UI should highlight afterwards, and the paths it
// must not disturb an existing selection for (skipped conflicts).
// Produced once, at completion.
type OperationSelection struct {
	// Selected are the destination paths written by the operation
	Selected []string

	// Ignored are paths the operation deliberately left alone
	Ignored []string
}

// Select records a written destination path. Duplicates are dropped so
// the selection behaves as a set.
func (s *OperationSelection) Select(path string) {
	s.Selected = appendUnique(s.Selected, path)
}

// Ignore records a path the operation skipped
func (s *OperationSelection) Ignore(path string) {
	s.Ignored = appendUnique(s.Ignored, path)
}

// Sorted returns a copy with both sets in lexical order, convenient for
// deterministic display and comparison
func (s OperationSelection) Sorted() OperationSelection {
	out := OperationSelection{
		Selected: append([]string(nil), s.Selected...),
		Ignored:  append([]string(nil), s.Ignored...),
	}
	sort.Strings(out.Selected)
	sort.Strings(out.Ignored)
	return out
}

func appendUnique(paths []string, path string) []string {
	for _, p := range paths {
		if p == path {
			return paths
		}
	}
	return append(paths, path)
}
