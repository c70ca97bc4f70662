package aggregate

import (
	"time"

	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// Key identifies the shopping-list line a contribution merges into.
type Key struct {
	FoodID string
	UnitID string // empty when the line has no unit
}

// KeyOf returns the merge key of c. Contributions without a food id
// (free-text items) have no key and never merge.
func KeyOf(c store.LineContribution) (Key, bool) {
	return key(c.FoodID, c.UnitID)
}

// KeyOfItem returns the merge key of an existing line.
func KeyOfItem(it store.ShoppingListItem) (Key, bool) {
	return key(it.FoodID, it.UnitID)
}

func key(foodID, unitID *string) (Key, bool) {
	if foodID == nil || *foodID == "" {
		return Key{}, false
	}
	k := Key{FoodID: *foodID}
	if unitID != nil {
		k.UnitID = *unitID
	}
	return k, true
}

// Merge adds c into an existing line: quantities accumulate, a non-empty
// display unit replaces the old one, and c's recipe joins the sources.
func Merge(line store.ShoppingListItem, c store.LineContribution) store.ShoppingListItem {
	line.Quantity += c.Quantity
	if c.DisplayUnit != "" {
		line.DisplayUnit = c.DisplayUnit
	}
	line.SourceRecipes = addSource(line.SourceRecipes, c.RecipeID)
	return line
}

// NewLine turns c into a fresh unchecked line.
func NewLine(id, listID string, sortOrder int, c store.LineContribution) store.ShoppingListItem {
	return store.ShoppingListItem{
		ID:            id,
		ListID:        listID,
		DisplayName:   c.DisplayName,
		DisplayUnit:   c.DisplayUnit,
		Quantity:      c.Quantity,
		FoodID:        copyPtr(c.FoodID),
		UnitID:        copyPtr(c.UnitID),
		SortOrder:     sortOrder,
		SourceRecipes: addSource(nil, c.RecipeID),
	}
}

// Apply merges contribs into the lines of one list, in order, and returns
// the updated lines and how many contributions were applied. Keyed
// contributions merge into the first line with the same key (including lines
// created earlier in the same call); unkeyed ones always append. newID is
// called once per appended line.
func Apply(listID string, lines []store.ShoppingListItem, contribs []store.LineContribution, newID func() string) ([]store.ShoppingListItem, int) {
	byKey := make(map[Key]int, len(lines))
	nextSort := 0
	for i, l := range lines {
		if k, ok := KeyOfItem(l); ok {
			if _, dup := byKey[k]; !dup {
				byKey[k] = i
			}
		}
		if l.SortOrder >= nextSort {
			nextSort = l.SortOrder + 1
		}
	}

	applied := 0
	for _, c := range contribs {
		if k, ok := KeyOf(c); ok {
			if i, found := byKey[k]; found {
				lines[i] = Merge(lines[i], c)
				applied++
				continue
			}
			byKey[k] = len(lines)
		}
		lines = append(lines, NewLine(newID(), listID, nextSort, c))
		nextSort++
		applied++
	}
	return lines, applied
}

// Toggle flips the checked state of line. becameChecked is true only for an
// unchecked→checked transition.
func Toggle(line store.ShoppingListItem, now time.Time) (out store.ShoppingListItem, becameChecked bool) {
	line.IsChecked = !line.IsChecked
	if line.IsChecked {
		t := now
		line.CheckedAt = &t
		return line, true
	}
	line.CheckedAt = nil
	return line, false
}

// PantryDelta is what checking line adds to ownerID's pantry. Lines without
// a food id add nothing.
//
// Only checking adds: unchecking never subtracts, and checking the same line
// again adds its quantity again.
func PantryDelta(ownerID string, line store.ShoppingListItem) (store.PantryAdd, bool) {
	if line.FoodID == nil || *line.FoodID == "" {
		return store.PantryAdd{}, false
	}
	q := line.Quantity
	return store.PantryAdd{
		OwnerID:  ownerID,
		FoodID:   *line.FoodID,
		Quantity: &q,
		Unit:     line.DisplayUnit,
	}, true
}

// AccumulatePantry applies add to existing (nil when the entry does not
// exist yet). Quantities add, a missing quantity counting as nothing; unit
// and expiry are replaced when add carries them.
func AccumulatePantry(existing *store.PantryEntry, add store.PantryAdd, now time.Time) store.PantryEntry {
	if existing == nil {
		return store.PantryEntry{
			OwnerID:   add.OwnerID,
			FoodID:    add.FoodID,
			Quantity:  copyPtr(add.Quantity),
			Unit:      add.Unit,
			ExpiresAt: copyPtr(add.ExpiresAt),
			AddedAt:   now,
		}
	}

	e := *existing
	switch {
	case add.Quantity == nil:
	case e.Quantity == nil:
		e.Quantity = copyPtr(add.Quantity)
	default:
		sum := *e.Quantity + *add.Quantity
		e.Quantity = &sum
	}
	if add.Unit != "" {
		e.Unit = add.Unit
	}
	if add.ExpiresAt != nil {
		e.ExpiresAt = copyPtr(add.ExpiresAt)
	}
	return e
}

func addSource(sources []string, recipeID string) []string {
	if recipeID == "" {
		return sources
	}
	for _, s := range sources {
		if s == recipeID {
			return sources
		}
	}
	return append(sources, recipeID)
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
