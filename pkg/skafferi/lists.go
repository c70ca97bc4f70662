package skafferi

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/scale"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// AddRecipeRequest asks for a recipe's ingredients to be put on a list.
// Servings nil keeps the recipe's quantities; IngredientIDs empty adds
// every ingredient.
type AddRecipeRequest struct {
	RecipeID      string   `json:"recipe_id"`
	ListID        string   `json:"list_id"`
	Servings      *float64 `json:"servings,omitempty"`
	IngredientIDs []string `json:"ingredient_ids,omitempty"`
}

// AddRecipeResult reports how many ingredients reached the list
type AddRecipeResult struct {
	AddedCount int    `json:"added_count"`
	ListID     string `json:"list_id"`
}

// ToggleResult is the state of a line after a toggle
type ToggleResult struct {
	IsChecked bool `json:"is_checked"`
}

// ClearResult reports how many checked lines were removed
type ClearResult struct {
	DeletedCount int `json:"deleted_count"`
}

// AddRecipeToList scales the selected ingredients of a recipe to the
// requested servings and merges them into a list. Lines with the same food
// and unit accumulate; unresolved ingredients become free-text lines.
func (e *Engine) AddRecipeToList(ctx context.Context, req AddRecipeRequest) (AddRecipeResult, error) {
	r, err := e.store.GetRecipe(ctx, req.RecipeID)
	if err != nil {
		return AddRecipeResult{}, storeErr("get recipe", err)
	}
	if _, err := e.store.GetList(ctx, req.ListID); err != nil {
		return AddRecipeResult{}, storeErr("get list", err)
	}
	if req.Servings != nil {
		if s := *req.Servings; math.IsNaN(s) || s <= 0 {
			return AddRecipeResult{}, fmt.Errorf("servings %v: %w", s, internalerr.ErrInvalidInput)
		}
		if err := scale.ValidateYield(r.Servings); err != nil {
			return AddRecipeResult{}, fmt.Errorf("recipe %q: %w", r.ID, err)
		}
	}

	ings, err := selectIngredients(r.Ingredients, req.IngredientIDs)
	if err != nil {
		return AddRecipeResult{}, fmt.Errorf("recipe %q: %w", r.ID, err)
	}

	cat, err := e.loadCatalog(ctx, true)
	if err != nil {
		return AddRecipeResult{}, err
	}

	contribs := make([]store.LineContribution, 0, len(ings))
	for _, ing := range ings {
		c := store.LineContribution{
			DisplayName: ing.Name,
			DisplayUnit: ing.Measurement,
			Quantity:    scale.Scale(ing.Quantity, r.Servings, req.Servings),
			RecipeID:    r.ID,
		}
		if ing.FoodID != nil && *ing.FoodID != "" {
			id := *ing.FoodID
			if res, ok := e.resolve(cat, id); ok {
				id = res.Food.ID
				c.DisplayName = res.Food.Name
			}
			c.FoodID = &id
		}
		if ing.UnitID != nil && *ing.UnitID != "" {
			id := *ing.UnitID
			c.UnitID = &id
			if u, ok := cat.units[id]; ok {
				c.DisplayUnit = u.Name
			}
		}
		contribs = append(contribs, c)
	}

	added, err := e.store.MergeItems(ctx, req.ListID, contribs)
	if err != nil {
		return AddRecipeResult{}, storeErr(fmt.Sprintf("merge into list %q", req.ListID), err)
	}
	e.log.Info("recipe added to list",
		zap.String("recipe_id", r.ID),
		zap.String("list_id", req.ListID),
		zap.Int("added", added))
	return AddRecipeResult{AddedCount: added, ListID: req.ListID}, nil
}

// selectIngredients keeps the ingredients named by ids, in recipe order.
// An id that is not part of the recipe is rejected.
func selectIngredients(all []store.IngredientMention, ids []string) ([]store.IngredientMention, error) {
	if len(ids) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = false
	}
	var out []store.IngredientMention
	for _, ing := range all {
		if _, ok := want[ing.ID]; ok {
			want[ing.ID] = true
			out = append(out, ing)
		}
	}
	for id, found := range want {
		if !found {
			return nil, fmt.Errorf("ingredient %q not in recipe: %w", id, internalerr.ErrInvalidInput)
		}
	}
	return out, nil
}

// ToggleLineItem flips a line's checked state. Checking a line with a food
// adds its quantity to the list owner's pantry; unchecking never takes it
// back, and checking again adds it again.
func (e *Engine) ToggleLineItem(ctx context.Context, itemID string) (ToggleResult, error) {
	out, err := e.store.ToggleItem(ctx, itemID, e.now())
	if err != nil {
		return ToggleResult{}, storeErr("toggle item", err)
	}
	if out.Pantry != nil {
		fields := []zap.Field{
			zap.String("item_id", itemID),
			zap.String("owner_id", out.Pantry.OwnerID),
			zap.String("food_id", out.Pantry.FoodID),
		}
		if out.Pantry.Quantity != nil {
			fields = append(fields, zap.Float64("pantry_quantity", *out.Pantry.Quantity))
		}
		e.log.Info("checked item added to pantry", fields...)
	}
	return ToggleResult{IsChecked: out.Item.IsChecked}, nil
}

// ClearChecked removes checked lines from one of ownerID's lists, or from
// all of them when listID is empty.
func (e *Engine) ClearChecked(ctx context.Context, ownerID, listID string) (ClearResult, error) {
	var listIDs []string
	if listID != "" {
		l, err := e.store.GetList(ctx, listID)
		if err != nil {
			return ClearResult{}, storeErr("get list", err)
		}
		if ownerID != "" && l.OwnerID != ownerID {
			return ClearResult{}, fmt.Errorf("list %q: %w", listID, internalerr.ErrNotFound)
		}
		listIDs = []string{listID}
	} else {
		if ownerID == "" {
			return ClearResult{}, fmt.Errorf("owner or list required: %w", internalerr.ErrInvalidInput)
		}
		lists, err := e.store.ListLists(ctx, ownerID)
		if err != nil {
			return ClearResult{}, storeErr(fmt.Sprintf("list lists of %q", ownerID), err)
		}
		for _, l := range lists {
			listIDs = append(listIDs, l.ID)
		}
	}

	n, err := e.store.ClearChecked(ctx, listIDs)
	if err != nil {
		return ClearResult{}, storeErr("clear checked", err)
	}
	e.log.Info("cleared checked items", zap.Strings("list_ids", listIDs), zap.Int("deleted", n))
	return ClearResult{DeletedCount: n}, nil
}

// CreateList creates an empty shopping list for ownerID
func (e *Engine) CreateList(ctx context.Context, ownerID, name string) (store.ShoppingList, error) {
	if ownerID == "" {
		return store.ShoppingList{}, fmt.Errorf("owner is empty: %w", internalerr.ErrInvalidInput)
	}
	l, err := e.store.CreateList(ctx, store.ShoppingList{OwnerID: ownerID, Name: name, CreatedAt: e.now()})
	if err != nil {
		return store.ShoppingList{}, storeErr("create list", err)
	}
	return l, nil
}

// ListItems returns the lines of a list in sort order
func (e *Engine) ListItems(ctx context.Context, listID string) ([]store.ShoppingListItem, error) {
	items, err := e.store.ListItems(ctx, listID)
	if err != nil {
		return nil, storeErr("list items", err)
	}
	return items, nil
}

// AddManualItem appends a free-text line. Manual lines never merge, even
// with an identical manual line.
func (e *Engine) AddManualItem(ctx context.Context, listID, name, unit string, quantity float64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("item name is empty: %w", internalerr.ErrInvalidInput)
	}
	if math.IsNaN(quantity) || quantity < 0 {
		return fmt.Errorf("quantity %v: %w", quantity, internalerr.ErrInvalidInput)
	}
	if quantity == 0 {
		quantity = 1
	}
	_, err := e.store.MergeItems(ctx, listID, []store.LineContribution{{
		DisplayName: name,
		DisplayUnit: strings.TrimSpace(unit),
		Quantity:    quantity,
	}})
	if err != nil {
		return storeErr("add manual item", err)
	}
	return nil
}
