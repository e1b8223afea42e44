package detector

import (
	"sort"

	"github.com/kikiluvv/actionseg/internal/segments"
)

// ResolveOverlaps stable-sorts segs by descending score and greedily keeps
// each segment that does not overlap one already kept. The result stays
// in descending score order; use segments.SortChronological for timeline
// order.
func ResolveOverlaps(segs []segments.Segment) []segments.Segment {
	sorted := make([]segments.Segment, len(segs))
	copy(sorted, segs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]segments.Segment, 0, len(sorted))
	for _, candidate := range sorted {
		overlaps := false
		for _, k := range kept {
			if candidate.Overlaps(k) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, candidate)
		}
	}
	return kept
}
