package face

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
)

// fetchFromMap builds a FetchFunc serving a fixed item -> faces mapping.
func fetchFromMap(m map[string][]Face) FetchFunc {
	return func(_ context.Context, item string) ([]Face, error) {
		return m[item], nil
	}
}

func unitFaces(vectors ...[]float32) []Face {
	faces := make([]Face, len(vectors))
	for i, v := range vectors {
		faces[i] = Face{Embedding: v}
	}
	return faces
}

func TestMatchScopeBasic(t *testing.T) {
	// Target has two faces; item A contains target face 0 exactly, item B
	// contains a face orthogonal to both.
	target := unitFaces([]float32{1, 0, 0}, []float32{0, 1, 0})
	scope := map[string][]Face{
		"a.jpg": unitFaces([]float32{1, 0, 0}),
		"b.jpg": unitFaces([]float32{0, 0, 1}),
	}

	results := MatchScope(context.Background(), target, []int{0, 1}, []string{"a.jpg", "b.jpg"},
		MatchOptions{Threshold: 0.6}, fetchFromMap(scope))

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Item != "a.jpg" {
		t.Errorf("expected a.jpg, got %s", r.Item)
	}
	if len(r.Pairs) != 1 {
		t.Fatalf("expected 1 accepted pair, got %d", len(r.Pairs))
	}
	p := r.Pairs[0]
	if p.TargetFaceIndex != 0 || p.ScopeFaceIndex != 0 || math.Abs(p.Similarity-1.0) > 1e-6 {
		t.Errorf("unexpected pair %+v", p)
	}
	if math.Abs(r.BestSimilarity-1.0) > 1e-6 {
		t.Errorf("BestSimilarity = %v, want 1.0", r.BestSimilarity)
	}
}

func TestMatchScopeGreedyAcceptsAllNonConflicting(t *testing.T) {
	// One scope item with two faces matching the two target faces at 0.95
	// and 0.9; greedy assignment must accept both pairs, not just the best.
	target := unitFaces([]float32{1, 0}, []float32{0, 1})
	scope := map[string][]Face{
		"group.jpg": {
			{Embedding: []float32{0.9987, 0.05}}, // ~0.9987 to target 0
			{Embedding: []float32{0.1, 0.995}},   // ~0.995 to target 1
		},
	}

	results := MatchScope(context.Background(), target, []int{0, 1}, []string{"group.jpg"},
		MatchOptions{Threshold: 0.6}, fetchFromMap(scope))

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if len(r.Pairs) != 2 {
		t.Fatalf("expected 2 accepted pairs, got %d: %+v", len(r.Pairs), r.Pairs)
	}
	if !reflect.DeepEqual(r.TargetFaceIndices, []int{0, 1}) {
		t.Errorf("TargetFaceIndices = %v, want [0 1]", r.TargetFaceIndices)
	}
	// Accepted pairs are ordered by similarity descending.
	if r.Pairs[0].Similarity < r.Pairs[1].Similarity {
		t.Errorf("pairs not sorted by similarity: %+v", r.Pairs)
	}
}

func TestMatchScopeOneToOneInvariant(t *testing.T) {
	// Three target faces all resembling the single scope face; only one pair
	// may be accepted, and no index may repeat.
	target := unitFaces([]float32{1, 0}, []float32{0.99, 0.1}, []float32{0.98, 0.15})
	scope := map[string][]Face{
		"one.jpg": unitFaces([]float32{1, 0.01}),
	}

	results := MatchScope(context.Background(), target, []int{0, 1, 2}, []string{"one.jpg"},
		MatchOptions{Threshold: 0.5}, fetchFromMap(scope))

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	seenTarget := make(map[int]bool)
	seenScope := make(map[int]bool)
	for _, p := range results[0].Pairs {
		if seenTarget[p.TargetFaceIndex] {
			t.Errorf("target face %d accepted twice", p.TargetFaceIndex)
		}
		if seenScope[p.ScopeFaceIndex] {
			t.Errorf("scope face %d accepted twice", p.ScopeFaceIndex)
		}
		seenTarget[p.TargetFaceIndex] = true
		seenScope[p.ScopeFaceIndex] = true
	}
	if len(results[0].Pairs) != 1 {
		t.Errorf("expected single accepted pair, got %d", len(results[0].Pairs))
	}
}

func TestMatchScopeThresholdBoundary(t *testing.T) {
	// The [3,4] vector gives exactly 3/5 = 0.6 similarity against [1,0]
	// (all values exact in floating point): a pair at the threshold is
	// accepted, a pair just below is rejected.
	target := unitFaces([]float32{1, 0})
	scope := map[string][]Face{
		"at.jpg":    unitFaces([]float32{3, 4}),
		"below.jpg": unitFaces([]float32{59, 79}), // 59/sqrt(9722) ~ 0.5984
	}

	results := MatchScope(context.Background(), target, []int{0}, []string{"at.jpg", "below.jpg"},
		MatchOptions{Threshold: 0.6}, fetchFromMap(scope))

	if len(results) != 1 || results[0].Item != "at.jpg" {
		t.Fatalf("expected only at.jpg to match, got %+v", results)
	}
}

func TestMatchScopeDeterministic(t *testing.T) {
	// Concurrent processing must not affect the output: results depend only
	// on similarities and input order.
	target := unitFaces([]float32{1, 0, 0}, []float32{0, 1, 0})
	scopeFaces := map[string][]Face{
		"a.jpg": unitFaces([]float32{0.9, 0.1, 0}),
		"b.jpg": unitFaces([]float32{0.8, 0.2, 0}, []float32{0, 0.9, 0.1}),
		"c.jpg": unitFaces([]float32{0, 0, 1}),
		"d.jpg": unitFaces([]float32{0.7, 0.3, 0}),
	}
	scope := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"}

	baseline := MatchScope(context.Background(), target, []int{0, 1}, scope,
		MatchOptions{Threshold: 0.3}, fetchFromMap(scopeFaces))

	for run := 0; run < 10; run++ {
		got := MatchScope(context.Background(), target, []int{0, 1}, scope,
			MatchOptions{Threshold: 0.3, Concurrency: 4}, fetchFromMap(scopeFaces))
		if !reflect.DeepEqual(got, baseline) {
			t.Fatalf("run %d differed from baseline:\n got %+v\nwant %+v", run, got, baseline)
		}
	}
}

func TestMatchScopeTieBreakByInputOrder(t *testing.T) {
	// Two scope items with identical best similarity keep their input order.
	target := unitFaces([]float32{1, 0})
	scopeFaces := map[string][]Face{
		"second.jpg": unitFaces([]float32{1, 0}),
		"first.jpg":  unitFaces([]float32{1, 0}),
	}

	results := MatchScope(context.Background(), target, []int{0}, []string{"second.jpg", "first.jpg"},
		MatchOptions{Threshold: 0.6}, fetchFromMap(scopeFaces))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Item != "second.jpg" || results[1].Item != "first.jpg" {
		t.Errorf("tie not broken by input order: %s, %s", results[0].Item, results[1].Item)
	}
}

func TestMatchScopeSkipsFailedAndEmptyItems(t *testing.T) {
	target := unitFaces([]float32{1, 0})
	fetch := func(_ context.Context, item string) ([]Face, error) {
		switch item {
		case "broken.jpg":
			return nil, errors.New("decode failure")
		case "empty.jpg":
			return nil, nil
		default:
			return unitFaces([]float32{1, 0}), nil
		}
	}

	results := MatchScope(context.Background(), target, []int{0},
		[]string{"broken.jpg", "empty.jpg", "ok.jpg"},
		MatchOptions{Threshold: 0.6}, fetch)

	if len(results) != 1 || results[0].Item != "ok.jpg" {
		t.Fatalf("expected only ok.jpg, got %+v", results)
	}
}

func TestMatchScopeMaxResults(t *testing.T) {
	target := unitFaces([]float32{1, 0})
	scopeFaces := map[string][]Face{
		"a.jpg": unitFaces([]float32{1, 0}),
		"b.jpg": unitFaces([]float32{0.95, float32(math.Sqrt(1 - 0.95*0.95))}),
		"c.jpg": unitFaces([]float32{0.9, float32(math.Sqrt(1 - 0.9*0.9))}),
	}

	results := MatchScope(context.Background(), target, []int{0}, []string{"c.jpg", "a.jpg", "b.jpg"},
		MatchOptions{Threshold: 0.6, MaxResults: 2}, fetchFromMap(scopeFaces))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Item != "a.jpg" || results[1].Item != "b.jpg" {
		t.Errorf("expected top matches a.jpg, b.jpg; got %s, %s", results[0].Item, results[1].Item)
	}
}
