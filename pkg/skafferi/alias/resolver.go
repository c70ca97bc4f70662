package alias

import (
	"fmt"

	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// Arena indexes catalog foods by id so alias pointers can be followed
// without going back to the store.
type Arena struct {
	foods map[string]store.Food
}

// NewArena builds an arena from a catalog snapshot. Later duplicates of an
// id replace earlier ones.
func NewArena(foods []store.Food) *Arena {
	m := make(map[string]store.Food, len(foods))
	for _, f := range foods {
		m[f.ID] = f
	}
	return &Arena{foods: m}
}

// Get returns the food with the given id.
func (a *Arena) Get(id string) (store.Food, bool) {
	f, ok := a.foods[id]
	return f, ok
}

// Len returns the number of foods in the arena.
func (a *Arena) Len() int {
	return len(a.foods)
}

// Resolution is the outcome of following a food's alias chain.
type Resolution struct {
	Food    store.Food // canonical food, or the last one reachable
	Matched store.Food // the food the walk started from
	Alias   bool       // Matched differs from Food
	Hops    int        // pointers followed
	Cycle   bool       // the chain revisited a food
	Broken  string     // id of a missing target, if the chain dangles
}

// Resolve follows CanonicalFoodID pointers from id until it reaches a food
// without one. A revisited id or a pointer to an unknown food ends the walk
// at the last food reached, with Cycle or Broken set; neither is an error.
func (a *Arena) Resolve(id string) (Resolution, error) {
	start, ok := a.foods[id]
	if !ok {
		return Resolution{}, fmt.Errorf("resolve food %q: %w", id, internalerr.ErrNotFound)
	}

	res := Resolution{Food: start, Matched: start}
	visited := map[string]struct{}{start.ID: {}}
	cur := start

	// Each step visits a new id, so the arena size bounds the walk.
	for range len(a.foods) {
		if cur.CanonicalFoodID == nil || *cur.CanonicalFoodID == "" {
			break
		}
		next := *cur.CanonicalFoodID
		if _, seen := visited[next]; seen {
			res.Cycle = true
			break
		}
		target, ok := a.foods[next]
		if !ok {
			res.Broken = next
			break
		}
		visited[next] = struct{}{}
		cur = target
		res.Hops++
	}

	res.Food = cur
	res.Alias = cur.ID != start.ID
	return res, nil
}

// CanonicalID returns the id id resolves to, or id itself when it is not in
// the arena.
func (a *Arena) CanonicalID(id string) string {
	res, err := a.Resolve(id)
	if err != nil {
		return id
	}
	return res.Food.ID
}
