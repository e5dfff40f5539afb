package stats

import (
	"sort"

	"github.com/verte-zerg/recall/internal/model"
)

// SelectLeeches selects the lowest-accuracy cards from aggregates. Cards with
// no misses are never leeches.
func SelectLeeches(aggs []model.CardAggregate, top int) map[string]struct{} {
	leeches := map[string]struct{}{}
	if len(aggs) == 0 {
		return leeches
	}
	candidates := make([]model.CardAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Incorrect == 0 {
			continue
		}
		candidates = append(candidates, agg)
	}
	sort.Slice(candidates, func(i, j int) bool {
		ai := CardAccuracy(candidates[i])
		aj := CardAccuracy(candidates[j])
		if ai == aj {
			return candidates[i].Key < candidates[j].Key
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for i := 0; i < top; i++ {
		leeches[candidates[i].Key] = struct{}{}
	}
	return leeches
}
