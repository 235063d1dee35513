package storage

import "github.com/nikbrunner/minitab/internal/apperr"

// place inserts id into ids at pos, clamped to the list bounds.
// A nil pos appends.
func place(ids []string, id string, pos *int) []string {
	at := len(ids)
	if pos != nil && *pos < at {
		at = max(*pos, 0)
	}

	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:at]...)
	out = append(out, id)
	return append(out, ids[at:]...)
}

// checkPermutation rejects ordered unless it holds every id of current once.
func checkPermutation(current, ordered []string) error {
	if len(current) != len(ordered) {
		return apperr.Validation("group order must list every group exactly once")
	}

	known := make(map[string]bool, len(current))
	for _, id := range current {
		known[id] = true
	}
	seen := make(map[string]bool, len(ordered))
	for _, id := range ordered {
		if !known[id] {
			return apperr.Validation("unknown group " + id + " in group order")
		}
		if seen[id] {
			return apperr.Validation("group " + id + " listed twice in group order")
		}
		seen[id] = true
	}
	return nil
}
