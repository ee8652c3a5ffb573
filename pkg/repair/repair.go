// Package repair implements the shared validate-or-repair routine applied to
// generative-service output before it is accepted.
package repair

// EnsureComplete returns a map whose key set is exactly want. Missing keys
// are filled from def; keys not present in want are dropped. The returned
// slice lists the ids that had to be repaired.
func EnsureComplete[V any](got map[string]V, want []string, def func(id string) V) (map[string]V, []string) {
	repaired := make(map[string]V, len(want))
	var missing []string
	for _, id := range want {
		if v, ok := got[id]; ok {
			repaired[id] = v
			continue
		}
		repaired[id] = def(id)
		missing = append(missing, id)
	}
	return repaired, missing
}

// ClampIndex forces v into [0, n). n must be positive.
func ClampIndex(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// CountPerIndex tallies how many map values point at each index.
func CountPerIndex(mapping map[string]int) map[int]int {
	counts := make(map[int]int, len(mapping))
	for _, idx := range mapping {
		counts[idx]++
	}
	return counts
}
