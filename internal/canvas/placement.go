// Package canvas provides models and repositories for managing placements
// on the shared surface, including spatial delete resolution and aggregation.
package canvas

import (
	"errors"
	"time"
)

// Common errors for placement operations.
var (
	// ErrPlacementNotFound is returned when a placement id does not exist.
	ErrPlacementNotFound = errors.New("placement not found")
)

// CategoryUnknown is assigned when the icon token has no taxonomy entry.
const CategoryUnknown = "Unknown"

// Categories recognized by the default taxonomy. CategoryElemental is
// special-cased by the dominant-category rule, which never reports it.
const (
	CategoryAnimals       = "Animals"
	CategoryNature        = "Nature"
	CategoryElemental     = "Elemental"
	CategoryHumanoid      = "Humanoid"
	CategoryObjects       = "Objects"
	CategoryStructures    = "Structures"
	CategoryFoodDrinks    = "Food_Drinks"
	CategoryCommunication = "Communication"
)

// Placement represents a marker a participant has dropped on the surface.
//
// The id is assigned by the server at persistence time, never by the client.
// Once created, id, owner, coordinates and category never change; only
// Deleted transitions false -> true, exactly once.
type Placement struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Icon      string    `json:"icon,omitempty"`
	Category  string    `json:"category"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	Deleted   bool      `json:"deleted"`
}

// IconTaxonomy maps resolved icon tokens to categories.
//
// The taxonomy is captured by a repository at construction time and applied
// when a placement is created; the resolved category is frozen on the record,
// so later taxonomy changes never affect existing placements.
type IconTaxonomy map[string]string

// Categorize resolves the category for an icon token.
// Unknown or empty icons resolve to CategoryUnknown.
func (t IconTaxonomy) Categorize(icon string) string {
	if c, ok := t[icon]; ok {
		return c
	}
	return CategoryUnknown
}

// defaultTaxonomy is the static icon -> category lookup shipped with the
// server. Icon tokens are the file names the client resolves labels to.
var defaultTaxonomy = IconTaxonomy{
	"dolphin.png":   CategoryAnimals,
	"whale.png":     CategoryAnimals,
	"wolf.png":      CategoryAnimals,
	"bird.png":      CategoryAnimals,
	"fish.png":      CategoryAnimals,
	"tree.png":      CategoryNature,
	"flower.png":    CategoryNature,
	"mountain.png":  CategoryNature,
	"cloud.png":     CategoryNature,
	"fire.png":      CategoryElemental,
	"water.png":     CategoryElemental,
	"earth.png":     CategoryElemental,
	"wind.png":      CategoryElemental,
	"wizard.png":    CategoryHumanoid,
	"knight.png":    CategoryHumanoid,
	"child.png":     CategoryHumanoid,
	"hammer.png":    CategoryObjects,
	"key.png":       CategoryObjects,
	"lantern.png":   CategoryObjects,
	"boat.png":      CategoryObjects,
	"castle.png":    CategoryStructures,
	"bridge.png":    CategoryStructures,
	"tower.png":     CategoryStructures,
	"house.png":     CategoryStructures,
	"apple.png":     CategoryFoodDrinks,
	"bread.png":     CategoryFoodDrinks,
	"wine.png":      CategoryFoodDrinks,
	"letter.png":    CategoryCommunication,
	"bell.png":      CategoryCommunication,
	"signpost.png":  CategoryCommunication,
	"megaphone.png": CategoryCommunication,
}

// DefaultTaxonomy returns a copy of the built-in icon taxonomy.
// Callers may mutate the copy without affecting other repositories.
func DefaultTaxonomy() IconTaxonomy {
	t := make(IconTaxonomy, len(defaultTaxonomy))
	for icon, category := range defaultTaxonomy {
		t[icon] = category
	}
	return t
}
