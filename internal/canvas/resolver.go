package canvas

import "context"

// DeleteWindow is the half-width of the square search window, in surface
// units, used to resolve an approximate delete gesture to a record.
const DeleteWindow = 30.0

// Resolver turns an approximate "delete near here" point into exactly one
// authoritative placement.
//
// The delete gesture only carries a point, not an identifier: the client does
// not track which of potentially many overlapping markers the user means, so
// nearest-within-window is the least-surprising deterministic resolution.
//
// Resolve's read and the caller's subsequent SoftDelete are deliberately not
// atomic. Two concurrent deletes over the same window can resolve to the same
// candidate; the second soft delete is an idempotent no-op and the duplicate
// placement_deleted event is absorbed by client tombstones.
type Resolver struct {
	repo PlacementRepository
}

// NewResolver creates a Resolver backed by the given repository.
func NewResolver(repo PlacementRepository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve selects the participant's live placement nearest to (x, y) within
// the square window of half-width DeleteWindow. Returns (nil, nil) when no
// candidate is in the window: the gesture simply had nothing to remove.
// Ties on distance break to the lowest id so resolution is deterministic.
func (r *Resolver) Resolve(ctx context.Context, owner string, x, y float64) (*Placement, error) {
	candidates, err := r.repo.ListLiveInWindow(ctx, owner, x, y, DeleteWindow)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	nearest := candidates[0]
	best := squaredDistance(nearest, x, y)
	for _, c := range candidates[1:] {
		d := squaredDistance(c, x, y)
		if d < best || (d == best && c.ID < nearest.ID) {
			nearest = c
			best = d
		}
	}
	return nearest, nil
}

func squaredDistance(p *Placement, x, y float64) float64 {
	dx := p.X - x
	dy := p.Y - y
	return dx*dx + dy*dy
}
