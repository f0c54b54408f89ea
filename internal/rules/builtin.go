package rules

import (
	"sort"

	"github.com/onnwee/mural/internal/canvas"
)

// Thresholds for the built-in rules.
const (
	// RepetitionThreshold is the live count of one label that triggers the
	// repetition rule.
	RepetitionThreshold = 3

	// DominanceMinTotal is the minimum live placement count before the
	// category dominance rule is considered.
	DominanceMinTotal = 10

	// DominanceShare is the share of live placements one category must
	// reach to count as dominant.
	DominanceShare = 0.5

	// HotspotDensity is the mean grid-cell occupancy above which the
	// hotspot rule fires.
	HotspotDensity = 5.0
)

// Builtin returns the compiled-in rule set in declaration order.
func Builtin() []Rule {
	return []Rule{
		{
			ID:       "repeat-object-10",
			Template: "I've noticed you often use the word: ",
			Param:    "word",
			Test:     testRepetition,
		},
		{
			ID:       "dominant-category",
			Template: "I've noticed your language often leans towards ",
			Param:    "category",
			Test:     testDominantCategory,
		},
		{
			ID: "hotspot-activity",
			Template: "You've been working intently over there, your own little hot spot on the map. " +
				"Can you share a bit about what you've been creating? What does it mean to you?",
			Test: testHotspot,
		},
	}
}

// testRepetition fires once any label has been placed (still live) at least
// RepetitionThreshold times. Qualifying labels are scanned in sorted order so
// the extracted word is deterministic regardless of map iteration order.
func testRepetition(snap canvas.AggregateSnapshot) Result {
	labels := make([]string, 0, len(snap.LabelCounts))
	for label := range snap.LabelCounts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		if snap.LabelCounts[label] >= RepetitionThreshold {
			return Match(map[string]string{"word": label})
		}
	}
	return NoMatch()
}

// testDominantCategory fires once the participant has at least
// DominanceMinTotal live placements and one non-Elemental category accounts
// for at least DominanceShare of them. Ties break to the lexicographically
// smallest category.
func testDominantCategory(snap canvas.AggregateSnapshot) Result {
	if snap.Total < DominanceMinTotal {
		return NoMatch()
	}

	categories := make([]string, 0, len(snap.CategoryCounts))
	for category := range snap.CategoryCounts {
		if category == canvas.CategoryElemental {
			continue
		}
		categories = append(categories, category)
	}
	sort.Strings(categories)

	dominant := ""
	max := 0
	for _, category := range categories {
		if snap.CategoryCounts[category] > max {
			max = snap.CategoryCounts[category]
			dominant = category
		}
	}
	if dominant == "" || float64(max)/float64(snap.Total) < DominanceShare {
		return NoMatch()
	}
	return Match(map[string]string{"category": dominant})
}

// testHotspot fires once the participant's mean grid-cell occupancy exceeds
// HotspotDensity.
func testHotspot(snap canvas.AggregateSnapshot) Result {
	if snap.Density > HotspotDensity {
		return Match(nil)
	}
	return NoMatch()
}
