package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/skafferi/pkg/skafferi/aggregate"
	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// Store is an in-memory implementation of store.Store. A single mutex
// serializes writes, which makes every read-modify-write atomic.
type Store struct {
	mu      sync.RWMutex
	foods   map[string]store.Food
	units   map[string]store.Unit
	recipes map[string]store.Recipe
	pantry  map[pantryKey]store.PantryEntry
	lists   map[string]store.ShoppingList
	items   map[string][]store.ShoppingListItem // list id -> lines
	itemIdx map[string]string                   // item id -> list id
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

type pantryKey struct {
	owner string
	food  string
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		foods:   make(map[string]store.Food),
		units:   make(map[string]store.Unit),
		recipes: make(map[string]store.Recipe),
		pantry:  make(map[pantryKey]store.PantryEntry),
		lists:   make(map[string]store.ShoppingList),
		items:   make(map[string][]store.ShoppingListItem),
		itemIdx: make(map[string]string),
		now:     time.Now,
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertFood inserts or replaces a food, assigning an id when empty.
func (s *Store) UpsertFood(ctx context.Context, f store.Food) (store.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = store.NewID()
	}
	if f.Status == "" {
		f.Status = store.StatusPending
	}
	f.CanonicalFoodID = copyPtr(f.CanonicalFoodID)
	s.foods[f.ID] = f
	return f, nil
}

// UpsertUnit inserts or replaces a unit, assigning an id when empty.
func (s *Store) UpsertUnit(ctx context.Context, u store.Unit) (store.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = store.NewID()
	}
	s.units[u.ID] = u
	return u, nil
}

// GetFood returns a food by id.
func (s *Store) GetFood(ctx context.Context, id string) (store.Food, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.foods[id]
	if !ok {
		return store.Food{}, fmt.Errorf("food %q: %w", id, internalerr.ErrNotFound)
	}
	f.CanonicalFoodID = copyPtr(f.CanonicalFoodID)
	return f, nil
}

// GetUnit returns a unit by id.
func (s *Store) GetUnit(ctx context.Context, id string) (store.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.units[id]
	if !ok {
		return store.Unit{}, fmt.Errorf("unit %q: %w", id, internalerr.ErrNotFound)
	}
	return u, nil
}

// ListFoods returns every food ordered by name.
func (s *Store) ListFoods(ctx context.Context) ([]store.Food, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Food, 0, len(s.foods))
	for _, f := range s.foods {
		f.CanonicalFoodID = copyPtr(f.CanonicalFoodID)
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListUnits returns every unit ordered by name.
func (s *Store) ListUnits(ctx context.Context) ([]store.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpsertRecipe inserts or replaces a recipe. Ingredient ids are assigned
// when empty and UpdatedAt defaults to now.
func (s *Store) UpsertRecipe(ctx context.Context, r store.Recipe) (store.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = store.NewID()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = s.now()
	}
	r = copyRecipe(r)
	for i := range r.Ingredients {
		if r.Ingredients[i].ID == "" {
			r.Ingredients[i].ID = store.NewID()
		}
	}
	s.recipes[r.ID] = r
	return copyRecipe(r), nil
}

// GetRecipe returns a recipe with its ingredients.
func (s *Store) GetRecipe(ctx context.Context, id string) (store.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		return store.Recipe{}, fmt.Errorf("recipe %q: %w", id, internalerr.ErrNotFound)
	}
	return copyRecipe(r), nil
}

// ListRecipes returns references to recipes, most recently updated first.
// An empty ownerID lists every recipe.
func (s *Store) ListRecipes(ctx context.Context, ownerID string) ([]store.RecipeRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.RecipeRef
	for _, r := range s.recipes {
		if ownerID != "" && r.OwnerID != ownerID {
			continue
		}
		out = append(out, store.RecipeRef{ID: r.ID, OwnerID: r.OwnerID, Name: r.Name, UpdatedAt: r.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AddToPantry accumulates add into the owner's entry for the food.
func (s *Store) AddToPantry(ctx context.Context, add store.PantryAdd) (store.PantryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addToPantryLocked(add), nil
}

func (s *Store) addToPantryLocked(add store.PantryAdd) store.PantryEntry {
	k := pantryKey{owner: add.OwnerID, food: add.FoodID}
	var existing *store.PantryEntry
	if e, ok := s.pantry[k]; ok {
		existing = &e
	}
	e := aggregate.AccumulatePantry(existing, add, s.now())
	s.pantry[k] = e
	return copyPantry(e)
}

// ListPantry returns the owner's pantry ordered by when entries were added.
func (s *Store) ListPantry(ctx context.Context, ownerID string) ([]store.PantryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.PantryEntry
	for k, e := range s.pantry {
		if k.owner == ownerID {
			out = append(out, copyPantry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].FoodID < out[j].FoodID
	})
	return out, nil
}

// DeletePantryEntry removes the owner's entry for a food.
func (s *Store) DeletePantryEntry(ctx context.Context, ownerID, foodID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := pantryKey{owner: ownerID, food: foodID}
	if _, ok := s.pantry[k]; !ok {
		return fmt.Errorf("pantry entry %q/%q: %w", ownerID, foodID, internalerr.ErrNotFound)
	}
	delete(s.pantry, k)
	return nil
}

// CreateList stores a new shopping list.
func (s *Store) CreateList(ctx context.Context, l store.ShoppingList) (store.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = store.NewID()
	}
	if _, ok := s.lists[l.ID]; ok {
		return store.ShoppingList{}, fmt.Errorf("list %q: %w", l.ID, internalerr.ErrDuplicate)
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	s.lists[l.ID] = l
	return l, nil
}

// GetList returns a shopping list by id.
func (s *Store) GetList(ctx context.Context, id string) (store.ShoppingList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lists[id]
	if !ok {
		return store.ShoppingList{}, fmt.Errorf("list %q: %w", id, internalerr.ErrNotFound)
	}
	return l, nil
}

// ListLists returns the owner's lists, oldest first.
func (s *Store) ListLists(ctx context.Context, ownerID string) ([]store.ShoppingList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.ShoppingList
	for _, l := range s.lists {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MergeItems applies contributions to a list under the write lock.
func (s *Store) MergeItems(ctx context.Context, listID string, contribs []store.LineContribution) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[listID]; !ok {
		return 0, fmt.Errorf("list %q: %w", listID, internalerr.ErrNotFound)
	}

	lines := copyItems(s.items[listID])
	lines, applied := aggregate.Apply(listID, lines, contribs, store.NewID)
	for _, l := range lines {
		s.itemIdx[l.ID] = listID
	}
	s.items[listID] = lines
	return applied, nil
}

// ListItems returns a list's lines in sort order.
func (s *Store) ListItems(ctx context.Context, listID string) ([]store.ShoppingListItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.lists[listID]; !ok {
		return nil, fmt.Errorf("list %q: %w", listID, internalerr.ErrNotFound)
	}
	out := copyItems(s.items[listID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

// ToggleItem flips a line's checked state and, when it becomes checked,
// adds it to the list owner's pantry in the same critical section.
func (s *Store) ToggleItem(ctx context.Context, itemID string, now time.Time) (store.ToggleOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listID, ok := s.itemIdx[itemID]
	if !ok {
		return store.ToggleOutcome{}, fmt.Errorf("item %q: %w", itemID, internalerr.ErrNotFound)
	}
	lines := s.items[listID]
	i := indexOf(lines, itemID)
	if i < 0 {
		return store.ToggleOutcome{}, fmt.Errorf("item %q: %w", itemID, internalerr.ErrNotFound)
	}

	line, became := aggregate.Toggle(copyItem(lines[i]), now)
	lines[i] = line

	out := store.ToggleOutcome{Item: copyItem(line)}
	if became {
		if add, ok := aggregate.PantryDelta(s.lists[listID].OwnerID, line); ok {
			e := s.addToPantryLocked(add)
			out.Pantry = &e
		}
	}
	return out, nil
}

// ClearChecked deletes checked lines from the given lists together with
// their recipe links.
func (s *Store) ClearChecked(ctx context.Context, listIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, listID := range listIDs {
		lines := s.items[listID]
		kept := lines[:0]
		for _, l := range lines {
			if l.IsChecked {
				delete(s.itemIdx, l.ID)
				deleted++
				continue
			}
			kept = append(kept, l)
		}
		if len(kept) == 0 {
			delete(s.items, listID)
		} else {
			s.items[listID] = kept
		}
	}
	return deleted, nil
}

func indexOf(lines []store.ShoppingListItem, id string) int {
	for i, l := range lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyRecipe(r store.Recipe) store.Recipe {
	ings := make([]store.IngredientMention, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ing.FoodID = copyPtr(ing.FoodID)
		ing.UnitID = copyPtr(ing.UnitID)
		ings[i] = ing
	}
	r.Ingredients = ings
	return r
}

func copyPantry(e store.PantryEntry) store.PantryEntry {
	e.Quantity = copyPtr(e.Quantity)
	e.ExpiresAt = copyPtr(e.ExpiresAt)
	return e
}

func copyItem(it store.ShoppingListItem) store.ShoppingListItem {
	it.FoodID = copyPtr(it.FoodID)
	it.UnitID = copyPtr(it.UnitID)
	it.CheckedAt = copyPtr(it.CheckedAt)
	it.SourceRecipes = append([]string(nil), it.SourceRecipes...)
	return it
}

func copyItems(in []store.ShoppingListItem) []store.ShoppingListItem {
	out := make([]store.ShoppingListItem, len(in))
	for i, it := range in {
		out[i] = copyItem(it)
	}
	return out
}
