package canvas

// AggregateSnapshot holds per-participant statistics derived from live
// placements at evaluation time. It is ephemeral: never persisted, always
// recomputed fresh so a just-created placement is included.
type AggregateSnapshot struct {
	// Total is the number of live placements owned by the participant.
	Total int
	// LabelCounts counts live placements grouped by label text.
	LabelCounts map[string]int
	// CategoryCounts counts live placements grouped by resolved category.
	CategoryCounts map[string]int
	// Density is the mean occupancy across the participant's non-empty
	// heatmap cells.
	Density float64
}

// Snapshot computes an AggregateSnapshot from a participant's live
// placements. Deleted records are skipped so callers may pass unfiltered
// history.
func Snapshot(placements []*Placement) AggregateSnapshot {
	snap := AggregateSnapshot{
		LabelCounts:    make(map[string]int),
		CategoryCounts: make(map[string]int),
	}
	live := make([]*Placement, 0, len(placements))
	for _, p := range placements {
		if p.Deleted {
			continue
		}
		live = append(live, p)
		snap.Total++
		snap.LabelCounts[p.Label]++
		snap.CategoryCounts[p.Category]++
	}
	snap.Density = meanCellOccupancy(live)
	return snap
}
