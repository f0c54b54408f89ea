package canvas

import (
	"math"
	"sort"
)

// HeatmapCellSize is the side length of a heatmap grid cell in surface units.
const HeatmapCellSize = 40

// HeatmapCell is one non-empty cell of the spatial grid.
// Cells with zero live placements are never emitted.
type HeatmapCell struct {
	CellX   int            `json:"cell_x"`
	CellY   int            `json:"cell_y"`
	Total   int            `json:"total"`
	ByOwner map[string]int `json:"by_owner"`
}

// cellCoord is the map key for heatmap bucketing.
type cellCoord struct {
	x, y int
}

// cellFor returns the grid cell containing the point.
func cellFor(x, y float64) cellCoord {
	return cellCoord{
		x: int(math.Floor(x / HeatmapCellSize)),
		y: int(math.Floor(y / HeatmapCellSize)),
	}
}

// BuildHeatmap buckets live placements into the spatial grid, retaining
// per-owner sub-counts within each cell. Output is sparse and sorted by
// (cell_x, cell_y) so consumers see a deterministic order.
func BuildHeatmap(placements []*Placement) []HeatmapCell {
	cells := make(map[cellCoord]*HeatmapCell)
	for _, p := range placements {
		if p.Deleted {
			continue
		}
		coord := cellFor(p.X, p.Y)
		cell, ok := cells[coord]
		if !ok {
			cell = &HeatmapCell{
				CellX:   coord.x,
				CellY:   coord.y,
				ByOwner: make(map[string]int),
			}
			cells[coord] = cell
		}
		cell.Total++
		cell.ByOwner[p.Owner]++
	}

	out := make([]HeatmapCell, 0, len(cells))
	for _, cell := range cells {
		out = append(out, *cell)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CellX != out[j].CellX {
			return out[i].CellX < out[j].CellX
		}
		return out[i].CellY < out[j].CellY
	})
	return out
}

// meanCellOccupancy returns the mean placement count across non-empty cells.
// Returns 0 when there are no live placements.
func meanCellOccupancy(placements []*Placement) float64 {
	cells := BuildHeatmap(placements)
	if len(cells) == 0 {
		return 0
	}
	total := 0
	for _, cell := range cells {
		total += cell.Total
	}
	return float64(total) / float64(len(cells))
}
