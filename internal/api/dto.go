package api

import (
	"time"

	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type matchRecipeRequest struct {
	RecipeID      string   `json:"recipe_id"`
	PantryFoodIDs []string `json:"pantry_food_ids"`
	MinPercentage float64  `json:"min_percentage"`
	Limit         int      `json:"limit"`
}

type matchPantryRequest struct {
	FoodIDs       []string `json:"food_ids"`
	MinPercentage float64  `json:"min_percentage"`
	OwnerFilter   string   `json:"owner_filter"`
	Limit         int      `json:"limit"`
}

type createListRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
	Name    string `json:"name"`
}

type listIDRequest struct {
	ListID string `json:"list_id" binding:"required"`
}

type manualItemRequest struct {
	ListID   string  `json:"list_id" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Unit     string  `json:"unit"`
	Quantity float64 `json:"quantity"`
}

type toggleRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

type clearRequest struct {
	OwnerID string `json:"owner_id"`
	ListID  string `json:"list_id"`
}

type ownerRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
}

type pantryKeyRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
	FoodID  string `json:"food_id" binding:"required"`
}

type ingredientJSON struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Quantity    string  `json:"quantity"`
	Measurement string  `json:"measurement"`
	Group       string  `json:"group,omitempty"`
	FoodID      *string `json:"food_id"`
	UnitID      *string `json:"unit_id"`
}

func (j ingredientJSON) mention() store.IngredientMention {
	return store.IngredientMention{
		ID:          j.ID,
		Name:        j.Name,
		Quantity:    j.Quantity,
		Measurement: j.Measurement,
		Group:       j.Group,
		FoodID:      j.FoodID,
		UnitID:      j.UnitID,
	}
}

func toIngredientJSON(m store.IngredientMention) ingredientJSON {
	return ingredientJSON{
		ID:          m.ID,
		Name:        m.Name,
		Quantity:    m.Quantity,
		Measurement: m.Measurement,
		Group:       m.Group,
		FoodID:      m.FoodID,
		UnitID:      m.UnitID,
	}
}

type recipeJSON struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	Name        string           `json:"name"`
	Servings    float64          `json:"servings"`
	Ingredients []ingredientJSON `json:"ingredients"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (j recipeJSON) recipe() store.Recipe {
	r := store.Recipe{
		ID:          j.ID,
		OwnerID:     j.OwnerID,
		Name:        j.Name,
		Servings:    j.Servings,
		Ingredients: make([]store.IngredientMention, len(j.Ingredients)),
	}
	for i, ing := range j.Ingredients {
		r.Ingredients[i] = ing.mention()
	}
	return r
}

func toRecipeJSON(r store.Recipe) recipeJSON {
	out := recipeJSON{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Name:        r.Name,
		Servings:    r.Servings,
		Ingredients: make([]ingredientJSON, len(r.Ingredients)),
		UpdatedAt:   r.UpdatedAt,
	}
	for i, ing := range r.Ingredients {
		out.Ingredients[i] = toIngredientJSON(ing)
	}
	return out
}

type listJSON struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toListJSON(l store.ShoppingList) listJSON {
	return listJSON{ID: l.ID, OwnerID: l.OwnerID, Name: l.Name, CreatedAt: l.CreatedAt}
}

type itemJSON struct {
	ID            string     `json:"id"`
	ListID        string     `json:"list_id"`
	DisplayName   string     `json:"display_name"`
	DisplayUnit   string     `json:"display_unit"`
	Quantity      float64    `json:"quantity"`
	FoodID        *string    `json:"food_id"`
	UnitID        *string    `json:"unit_id"`
	IsChecked     bool       `json:"is_checked"`
	CheckedAt     *time.Time `json:"checked_at,omitempty"`
	SortOrder     int        `json:"sort_order"`
	SourceRecipes []string   `json:"source_recipes"`
}

func toItemsJSON(items []store.ShoppingListItem) []itemJSON {
	out := make([]itemJSON, len(items))
	for i, it := range items {
		src := it.SourceRecipes
		if src == nil {
			src = []string{}
		}
		out[i] = itemJSON{
			ID:            it.ID,
			ListID:        it.ListID,
			DisplayName:   it.DisplayName,
			DisplayUnit:   it.DisplayUnit,
			Quantity:      it.Quantity,
			FoodID:        it.FoodID,
			UnitID:        it.UnitID,
			IsChecked:     it.IsChecked,
			CheckedAt:     it.CheckedAt,
			SortOrder:     it.SortOrder,
			SourceRecipes: src,
		}
	}
	return out
}

type pantryJSON struct {
	OwnerID   string     `json:"owner_id"`
	FoodID    string     `json:"food_id"`
	Quantity  *float64   `json:"quantity"`
	Unit      string     `json:"unit,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	AddedAt   time.Time  `json:"added_at"`
}

func toPantryJSON(e store.PantryEntry) pantryJSON {
	return pantryJSON{
		OwnerID:   e.OwnerID,
		FoodID:    e.FoodID,
		Quantity:  e.Quantity,
		Unit:      e.Unit,
		ExpiresAt: e.ExpiresAt,
		AddedAt:   e.AddedAt,
	}
}
