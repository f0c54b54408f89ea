package stream

import (
	"sort"
	"sync"

	"github.com/onnwee/mural/internal/canvas"
)

// WorkingSet is the per-client reconciliation of the live placement stream.
//
// It merges an initial full snapshot with interleaved create/delete events
// into a local set of live placements, tolerant of delivery order: create
// and delete follow independent causal paths, so a delete for an id can be
// processed before its create arrives. A tombstone set records ids known to
// be deleted and suppresses such late creates.
//
// Applying events is idempotent, commutative across different ids, and
// convergent for both orderings of a create/delete pair on the same id.
type WorkingSet struct {
	mu         sync.RWMutex
	live       map[string]*canvas.Placement
	tombstones map[string]bool
}

// NewWorkingSet creates an empty working set, as at connection time.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{
		live:       make(map[string]*canvas.Placement),
		tombstones: make(map[string]bool),
	}
}

// ReplaceSnapshot replaces the working set wholesale with a full snapshot of
// currently-live placements. Tombstones are kept: a delete observed before
// the snapshot reply arrived still wins over the snapshot's copy.
func (w *WorkingSet) ReplaceSnapshot(placements []*canvas.Placement) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.live = make(map[string]*canvas.Placement, len(placements))
	for _, p := range placements {
		if w.tombstones[p.ID] {
			continue
		}
		copied := *p
		w.live[copied.ID] = &copied
	}
}

// ApplyCreated applies a placement_created event. Tombstoned ids are
// discarded (the delete already happened); ids already present are
// duplicate deliveries and are discarded too.
func (w *WorkingSet) ApplyCreated(p *canvas.Placement) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.tombstones[p.ID] {
		return
	}
	if _, ok := w.live[p.ID]; ok {
		return
	}
	copied := *p
	w.live[copied.ID] = &copied
}

// ApplyDeleted applies a placement_deleted event: the id is tombstoned and
// removed from the working set if present.
func (w *WorkingSet) ApplyDeleted(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tombstones[id] = true
	delete(w.live, id)
}

// Contains reports whether the id is currently live in the working set.
func (w *WorkingSet) Contains(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.live[id]
	return ok
}

// Len returns the number of live placements.
func (w *WorkingSet) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.live)
}

// Live returns copies of the live placements ordered by (created_at, id).
func (w *WorkingSet) Live() []*canvas.Placement {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*canvas.Placement, 0, len(w.live))
	for _, p := range w.live {
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
