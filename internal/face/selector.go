package face

import (
	"math"
	"sort"
)

// Policy identifies a target face selection strategy.
type Policy int

const (
	// PolicyAll selects every detected face in detection order.
	PolicyAll Policy = iota
	// PolicyLargest selects the single face with the largest bbox area.
	PolicyLargest
	// PolicyBest selects the single face with the highest detection score.
	PolicyBest
	// PolicyIndex selects one explicit face index.
	PolicyIndex
	// PolicyIndexList selects an explicit set of face indices.
	PolicyIndexList
)

// Selector decides which of the target's detected faces participate in
// matching. The zero value selects all faces.
type Selector struct {
	Policy  Policy
	Index   int   // used by PolicyIndex
	Indices []int // used by PolicyIndexList
}

// ParseSelector builds a Selector from a JSON-decoded request value.
// Accepted forms: nil, "all", "largest", "best", a number, or an array of
// numbers. Anything else falls back to selecting all faces.
func ParseSelector(v any) Selector {
	switch s := v.(type) {
	case nil:
		return Selector{Policy: PolicyAll}
	case string:
		switch s {
		case "largest":
			return Selector{Policy: PolicyLargest}
		case "best":
			return Selector{Policy: PolicyBest}
		}
		return Selector{Policy: PolicyAll}
	case float64:
		// Only integral values are face indices; 1.5 is not a valid index.
		if s != math.Trunc(s) {
			return Selector{Policy: PolicyAll}
		}
		return Selector{Policy: PolicyIndex, Index: int(s)}
	case int:
		return Selector{Policy: PolicyIndex, Index: s}
	case []any:
		var indices []int
		for _, e := range s {
			if n, ok := e.(float64); ok && n == math.Trunc(n) {
				indices = append(indices, int(n))
			}
		}
		return Selector{Policy: PolicyIndexList, Indices: indices}
	case []int:
		return Selector{Policy: PolicyIndexList, Indices: s}
	}
	return Selector{Policy: PolicyAll}
}

// resolveIndex normalizes an index against total, accepting negative indices
// counted from the end. Returns -1 when out of range.
func resolveIndex(idx, total int) int {
	if idx < -total || idx >= total {
		return -1
	}
	if idx < 0 {
		return idx + total
	}
	return idx
}

// Select returns the indices of the faces the selector picks, in ascending
// order. An empty face list always yields an empty selection; callers must
// treat that as "no usable target face".
func (s Selector) Select(faces []Face) []int {
	total := len(faces)
	if total == 0 {
		return nil
	}

	switch s.Policy {
	case PolicyLargest:
		best := 0
		bestArea := faces[0].BBoxArea()
		for i := 1; i < total; i++ {
			if a := faces[i].BBoxArea(); a > bestArea {
				bestArea = a
				best = i
			}
		}
		return []int{best}

	case PolicyBest:
		best := 0
		bestScore := math.Inf(-1)
		for i := range faces {
			score := math.Inf(-1)
			if faces[i].DetScore != 0 {
				score = faces[i].DetScore
			}
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
		return []int{best}

	case PolicyIndex:
		if idx := resolveIndex(s.Index, total); idx >= 0 {
			return []int{idx}
		}
		return nil

	case PolicyIndexList:
		seen := make(map[int]bool)
		var indices []int
		for _, raw := range s.Indices {
			idx := resolveIndex(raw, total)
			if idx < 0 || seen[idx] {
				continue
			}
			seen[idx] = true
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		return indices
	}

	// PolicyAll and anything unrecognized.
	all := make([]int, total)
	for i := range all {
		all[i] = i
	}
	return all
}
