package face

import (
	"context"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"
)

// MatchCandidate is one accepted pairing of a target face to a scope face.
type MatchCandidate struct {
	Similarity      float64 `json:"similarity"`
	TargetFaceIndex int     `json:"target_face"`
	ScopeFaceIndex  int     `json:"scope_face"`
}

// MatchResult holds the accepted pairings for a single scope item.
// BestSimilarity is the highest accepted similarity; BestSeen is the highest
// similarity observed for the item regardless of threshold.
type MatchResult struct {
	Item              string
	BestSimilarity    float64
	BestSeen          float64
	Pairs             []MatchCandidate
	TargetFaceIndices []int
	ScopeFaceCount    int
}

// FetchFunc resolves the faces of one scope item, typically through the
// embedding cache. Returning an empty slice means no faces were detected;
// returning an error skips the item without aborting the rest of the scope.
type FetchFunc func(ctx context.Context, item string) ([]Face, error)

// MatchOptions control a MatchScope run.
type MatchOptions struct {
	Threshold   float64
	MaxResults  int // 0 = unlimited
	Concurrency int // 0 = sequential
}

// MatchScope compares the selected target faces against every scope item and
// returns per-item match results sorted by best similarity, highest first.
//
// Pairs above the threshold are assigned greedily: sorted by similarity
// descending (stable, so ties keep input order) and accepted only while both
// their target and scope face are unused. This is not a globally optimal
// bipartite matching; it deliberately reproduces the deterministic greedy
// behavior callers depend on.
//
// Scope items are fetched concurrently up to opts.Concurrency, but the output
// order depends only on similarities and input order, never on completion
// order.
func MatchScope(ctx context.Context, targetFaces []Face, selected []int, scope []string, opts MatchOptions, fetch FetchFunc) []MatchResult {
	results := make([]*MatchResult, len(scope))

	process := func(ctx context.Context, pos int, item string) {
		scopeFaces, err := fetch(ctx, item)
		if err != nil {
			log.Printf("skipping scope item %q: %v", item, err)
			return
		}
		if len(scopeFaces) == 0 {
			return
		}
		results[pos] = matchItem(item, targetFaces, selected, scopeFaces, opts.Threshold)
	}

	if opts.Concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for pos, item := range scope {
			pos, item := pos, item
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				process(gctx, pos, item)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for pos, item := range scope {
			if ctx.Err() != nil {
				break
			}
			process(ctx, pos, item)
		}
	}

	matched := make([]MatchResult, 0, len(scope))
	for _, r := range results {
		if r != nil {
			matched = append(matched, *r)
		}
	}

	// Stable sort keeps input order for equal similarities.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].BestSimilarity > matched[j].BestSimilarity
	})

	if opts.MaxResults > 0 && len(matched) > opts.MaxResults {
		matched = matched[:opts.MaxResults]
	}
	return matched
}

// matchItem scores one scope item and returns nil when nothing crosses the
// threshold.
func matchItem(item string, targetFaces []Face, selected []int, scopeFaces []Face, threshold float64) *MatchResult {
	var candidates []MatchCandidate
	bestSeen := -1.0
	for _, tIdx := range selected {
		if tIdx < 0 || tIdx >= len(targetFaces) {
			continue
		}
		tEmb := targetFaces[tIdx].Embedding
		for sIdx := range scopeFaces {
			sim := CosineSimilarity(tEmb, scopeFaces[sIdx].Embedding)
			if sim > bestSeen {
				bestSeen = sim
			}
			if sim >= threshold {
				candidates = append(candidates, MatchCandidate{
					Similarity:      sim,
					TargetFaceIndex: tIdx,
					ScopeFaceIndex:  sIdx,
				})
			}
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	// Greedy one-to-one assignment by highest similarity.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	usedTarget := make(map[int]bool)
	usedScope := make(map[int]bool)
	var accepted []MatchCandidate
	for _, c := range candidates {
		if usedTarget[c.TargetFaceIndex] || usedScope[c.ScopeFaceIndex] {
			continue
		}
		usedTarget[c.TargetFaceIndex] = true
		usedScope[c.ScopeFaceIndex] = true
		accepted = append(accepted, c)
	}

	targetIndices := make([]int, 0, len(accepted))
	for idx := range usedTarget {
		targetIndices = append(targetIndices, idx)
	}
	sort.Ints(targetIndices)

	return &MatchResult{
		Item:              item,
		BestSimilarity:    accepted[0].Similarity,
		BestSeen:          bestSeen,
		Pairs:             accepted,
		TargetFaceIndices: targetIndices,
		ScopeFaceCount:    len(scopeFaces),
	}
}
