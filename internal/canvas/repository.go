package canvas

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PlacementRepository defines the interface for placement data operations.
//
// The store is the single source of truth: ids are assigned here, deletion is
// always a soft delete, and live queries exclude deleted records while the
// full history remains queryable for aggregation.
type PlacementRepository interface {
	// Create persists a new placement, assigning its id and creation
	// timestamp and resolving its category from the icon taxonomy.
	Create(ctx context.Context, placement *Placement) error

	// SoftDelete marks the placement with the given id as deleted.
	// Deleting an already-deleted or unknown id is a no-op, not an error.
	SoftDelete(ctx context.Context, id string) error

	// ListLive retrieves all live placements, oldest first.
	ListLive(ctx context.Context) ([]*Placement, error)

	// ListLiveByOwner retrieves a participant's live placements, oldest first.
	ListLiveByOwner(ctx context.Context, owner string) ([]*Placement, error)

	// ListLiveInWindow retrieves the participant's live placements whose
	// coordinates fall within the square window of half-width r centered
	// on (x, y).
	ListLiveInWindow(ctx context.Context, owner string, x, y, r float64) ([]*Placement, error)

	// Aggregates computes a fresh AggregateSnapshot for a participant.
	Aggregates(ctx context.Context, owner string) (AggregateSnapshot, error)

	// Heatmap buckets live placements into the spatial grid.
	// An empty owner scopes the heatmap to all participants.
	Heatmap(ctx context.Context, owner string) ([]HeatmapCell, error)

	// DashboardStats computes the analytics surface aggregates over the
	// trailing window ending at now.
	DashboardStats(ctx context.Context, window time.Duration) (DashboardStats, error)
}

// InMemoryPlacementRepository is an in-memory implementation of
// PlacementRepository. Thread-safe via RWMutex. Used for testing and
// development.
type InMemoryPlacementRepository struct {
	mu         sync.RWMutex
	placements map[string]*Placement
	taxonomy   IconTaxonomy
	now        func() time.Time
}

// NewInMemoryPlacementRepository creates a new in-memory placement repository.
// The taxonomy is copied so later mutations by the caller never change the
// category of placements created afterwards.
func NewInMemoryPlacementRepository(taxonomy IconTaxonomy) *InMemoryPlacementRepository {
	frozen := make(IconTaxonomy, len(taxonomy))
	for icon, category := range taxonomy {
		frozen[icon] = category
	}
	return &InMemoryPlacementRepository{
		placements: make(map[string]*Placement),
		taxonomy:   frozen,
		now:        time.Now,
	}
}

// Create persists a new placement, assigning id, timestamp and category.
func (r *InMemoryPlacementRepository) Create(ctx context.Context, placement *Placement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	placement.ID = uuid.New().String()
	placement.CreatedAt = r.now().UTC()
	placement.Deleted = false
	placement.Category = r.taxonomy.Categorize(placement.Icon)

	stored := *placement
	r.placements[stored.ID] = &stored
	return nil
}

// SoftDelete marks a placement deleted. Idempotent.
func (r *InMemoryPlacementRepository) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.placements[id]; ok {
		p.Deleted = true
	}
	return nil
}

// ListLive retrieves all live placements, oldest first.
func (r *InMemoryPlacementRepository) ListLive(ctx context.Context) ([]*Placement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(p *Placement) bool { return !p.Deleted }), nil
}

// ListLiveByOwner retrieves a participant's live placements, oldest first.
func (r *InMemoryPlacementRepository) ListLiveByOwner(ctx context.Context, owner string) ([]*Placement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(p *Placement) bool { return !p.Deleted && p.Owner == owner }), nil
}

// ListLiveInWindow retrieves the owner's live placements inside the square
// window of half-width r centered on (x, y).
func (r *InMemoryPlacementRepository) ListLiveInWindow(ctx context.Context, owner string, x, y, rad float64) ([]*Placement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(p *Placement) bool {
		return !p.Deleted && p.Owner == owner &&
			p.X >= x-rad && p.X <= x+rad &&
			p.Y >= y-rad && p.Y <= y+rad
	}), nil
}

// Aggregates computes a fresh snapshot for the participant.
func (r *InMemoryPlacementRepository) Aggregates(ctx context.Context, owner string) (AggregateSnapshot, error) {
	live, err := r.ListLiveByOwner(ctx, owner)
	if err != nil {
		return AggregateSnapshot{}, err
	}
	return Snapshot(live), nil
}

// Heatmap buckets live placements into the spatial grid.
func (r *InMemoryPlacementRepository) Heatmap(ctx context.Context, owner string) ([]HeatmapCell, error) {
	var (
		live []*Placement
		err  error
	)
	if owner == "" {
		live, err = r.ListLive(ctx)
	} else {
		live, err = r.ListLiveByOwner(ctx, owner)
	}
	if err != nil {
		return nil, err
	}
	return BuildHeatmap(live), nil
}

// DashboardStats computes the analytics aggregates over the trailing window.
func (r *InMemoryPlacementRepository) DashboardStats(ctx context.Context, window time.Duration) (DashboardStats, error) {
	live, err := r.ListLive(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	return BuildDashboardStats(live, r.now().UTC(), window), nil
}

// collect returns copies of matching placements ordered by
// (created_at, id) for a stable oldest-first order.
// Callers must hold at least a read lock.
func (r *InMemoryPlacementRepository) collect(match func(*Placement) bool) []*Placement {
	out := make([]*Placement, 0)
	for _, p := range r.placements {
		if match(p) {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
