package store

import (
	"context"
	"time"
)

// Store is the persistence interface the engine reads the catalog from and
// applies pantry and shopping-list mutations through. Implementations must
// make AddToPantry, MergeItems and ToggleItem atomic per row so concurrent
// contributions to the same identity key all accumulate.
type Store interface {
	Close() error

	// Catalog
	UpsertFood(ctx context.Context, f Food) (Food, error)
	UpsertUnit(ctx context.Context, u Unit) (Unit, error)
	GetFood(ctx context.Context, id string) (Food, error)
	GetUnit(ctx context.Context, id string) (Unit, error)
	ListFoods(ctx context.Context) ([]Food, error)
	ListUnits(ctx context.Context) ([]Unit, error)

	// Recipes
	UpsertRecipe(ctx context.Context, r Recipe) (Recipe, error)
	GetRecipe(ctx context.Context, id string) (Recipe, error)
	ListRecipes(ctx context.Context, ownerID string) ([]RecipeRef, error)

	// Pantry
	AddToPantry(ctx context.Context, add PantryAdd) (PantryEntry, error)
	ListPantry(ctx context.Context, ownerID string) ([]PantryEntry, error)
	DeletePantryEntry(ctx context.Context, ownerID, foodID string) error

	// Shopping lists
	CreateList(ctx context.Context, l ShoppingList) (ShoppingList, error)
	GetList(ctx context.Context, id string) (ShoppingList, error)
	ListLists(ctx context.Context, ownerID string) ([]ShoppingList, error)
	MergeItems(ctx context.Context, listID string, contribs []LineContribution) (int, error)
	ListItems(ctx context.Context, listID string) ([]ShoppingListItem, error)
	ToggleItem(ctx context.Context, itemID string, now time.Time) (ToggleOutcome, error)
	ClearChecked(ctx context.Context, listIDs []string) (int, error)
}

// FoodStatus is the approval state of a catalog food.
type FoodStatus string

const (
	StatusPending  FoodStatus = "pending"
	StatusApproved FoodStatus = "approved"
	StatusRejected FoodStatus = "rejected"
)

// Food is a catalog food. A food with CanonicalFoodID set is an alias of
// the food it points to.
type Food struct {
	ID              string
	Name            string
	Status          FoodStatus
	CanonicalFoodID *string
}

// IsAlias reports whether f points at another food.
func (f Food) IsAlias() bool {
	return f.CanonicalFoodID != nil && *f.CanonicalFoodID != ""
}

// IsCanonical reports whether f is an approved food that is not an alias.
func (f Food) IsCanonical() bool {
	return f.Status == StatusApproved && !f.IsAlias()
}

// Unit is a measurement unit; Name, Plural and Abbreviation all match.
type Unit struct {
	ID           string
	Name         string
	Plural       string
	Abbreviation string
}

// IngredientMention is one ingredient row of a recipe as authored.
// The raw strings are kept for display even after FoodID/UnitID resolve.
type IngredientMention struct {
	ID          string
	Name        string
	Quantity    string
	Measurement string
	Group       string
	FoodID      *string
	UnitID      *string
}

// Recipe is the subset of a recipe the engine reads.
type Recipe struct {
	ID          string
	OwnerID     string
	Name        string
	Servings    float64
	Ingredients []IngredientMention
	UpdatedAt   time.Time
}

// RecipeRef identifies a recipe for listing and ranking.
type RecipeRef struct {
	ID        string
	OwnerID   string
	Name      string
	UpdatedAt time.Time
}

// PantryEntry is the stock of one food in an owner's pantry.
type PantryEntry struct {
	OwnerID   string
	FoodID    string
	Quantity  *float64
	Unit      string
	ExpiresAt *time.Time
	AddedAt   time.Time
}

// PantryAdd is a contribution to a pantry entry. Quantity is added to the
// existing quantity; Unit replaces it when non-empty.
type PantryAdd struct {
	OwnerID   string
	FoodID    string
	Quantity  *float64
	Unit      string
	ExpiresAt *time.Time
}

// ShoppingList groups line items for one owner.
type ShoppingList struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt time.Time
}

// ShoppingListItem is one line of a shopping list.
type ShoppingListItem struct {
	ID            string
	ListID        string
	DisplayName   string
	DisplayUnit   string
	Quantity      float64
	FoodID        *string
	UnitID        *string
	IsChecked     bool
	CheckedAt     *time.Time
	SortOrder     int
	SourceRecipes []string
}

// LineContribution is a quantity headed for a shopping list. Contributions
// with a FoodID merge into the line with the same (FoodID, UnitID); those
// without one always become a new line.
type LineContribution struct {
	FoodID      *string
	UnitID      *string
	DisplayName string
	DisplayUnit string
	Quantity    float64
	RecipeID    string
}

// ToggleOutcome reports the state of a line after ToggleItem and the
// pantry entry it fed, if any.
type ToggleOutcome struct {
	Item   ShoppingListItem
	Pantry *PantryEntry
}
