package scanner

import (
	"path/filepath"
	"sort"
	"strings"
)

// normalizeRoots resolves each root to a clean absolute path, drops exact
// duplicates, and drops any root that is itself nested under another root
// (spec.md §4.4 "Root normalization" — this prevents the same directory
// tree from being enumerated twice).
func normalizeRoots(roots []string) ([]string, error) {
	abs := make([]string, 0, len(roots))
	seen := make(map[string]bool)
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return nil, err
		}
		a = filepath.Clean(a)
		if seen[a] {
			continue
		}
		seen[a] = true
		abs = append(abs, a)
	}

	// Shortest paths first so a parent is evaluated before its children.
	sort.Slice(abs, func(i, j int) bool { return len(abs[i]) < len(abs[j]) })

	var kept []string
	for _, candidate := range abs {
		nested := false
		for _, parent := range kept {
			if isWithin(candidate, parent) {
				nested = true
				break
			}
		}
		if !nested {
			kept = append(kept, candidate)
		}
	}
	return kept, nil
}

// isWithin reports whether child is parent itself or a path beneath it.
func isWithin(child, parent string) bool {
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}
