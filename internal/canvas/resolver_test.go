package canvas

import (
	"context"
	"testing"
)

func seedResolver(t *testing.T, placements []*Placement) (*Resolver, *InMemoryPlacementRepository) {
	t.Helper()
	repo := NewInMemoryPlacementRepository(DefaultTaxonomy())
	for _, p := range placements {
		if err := repo.Create(context.Background(), p); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}
	return NewResolver(repo), repo
}

func TestResolve_NearestWins(t *testing.T) {
	near := &Placement{Label: "near", X: 102, Y: 101, Owner: "alice"}
	far := &Placement{Label: "far", X: 120, Y: 120, Owner: "alice"}
	resolver, _ := seedResolver(t, []*Placement{far, near})

	got, err := resolver.Resolve(context.Background(), "alice", 100, 100)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a resolution")
	}
	if got.Label != "near" {
		t.Errorf("expected nearest placement, got %q", got.Label)
	}
}

func TestResolve_NothingInWindow(t *testing.T) {
	outside := &Placement{Label: "outside", X: 200, Y: 200, Owner: "alice"}
	resolver, _ := seedResolver(t, []*Placement{outside})

	got, err := resolver.Resolve(context.Background(), "alice", 100, 100)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected no resolution, got %q", got.Label)
	}
}

func TestResolve_EmptySurface(t *testing.T) {
	resolver, _ := seedResolver(t, nil)

	got, err := resolver.Resolve(context.Background(), "alice", 0, 0)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected no resolution on empty surface, got %q", got.Label)
	}
}

func TestResolve_TieBreaksToLowestID(t *testing.T) {
	// Equidistant from the gesture point.
	a := &Placement{Label: "left", X: 90, Y: 100, Owner: "alice"}
	b := &Placement{Label: "right", X: 110, Y: 100, Owner: "alice"}
	resolver, _ := seedResolver(t, []*Placement{a, b})

	want := a
	if b.ID < a.ID {
		want = b
	}

	got, err := resolver.Resolve(context.Background(), "alice", 100, 100)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a resolution")
	}
	if got.ID != want.ID {
		t.Errorf("expected tie to break to lowest id %s, got %s", want.ID, got.ID)
	}
}

func TestResolve_IgnoresOtherOwnersAndDeleted(t *testing.T) {
	mine := &Placement{Label: "mine", X: 110, Y: 110, Owner: "alice"}
	theirs := &Placement{Label: "theirs", X: 100, Y: 100, Owner: "bob"}
	gone := &Placement{Label: "gone", X: 100, Y: 100, Owner: "alice"}
	resolver, repo := seedResolver(t, []*Placement{mine, theirs, gone})

	if err := repo.SoftDelete(context.Background(), gone.ID); err != nil {
		t.Fatalf("SoftDelete() failed: %v", err)
	}

	got, err := resolver.Resolve(context.Background(), "alice", 100, 100)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a resolution")
	}
	if got.ID != mine.ID {
		t.Errorf("expected alice's live placement, got %q", got.Label)
	}
}
