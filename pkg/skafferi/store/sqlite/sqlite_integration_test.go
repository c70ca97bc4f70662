package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

func ptr[T any](v T) *T { return &v }

func openTest(t *testing.T) (store.Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, dbPath
}

// TestSQLiteIntegrationCatalog tests food and unit CRUD
func TestSQLiteIntegrationCatalog(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	canonical, err := st.UpsertFood(ctx, store.Food{Name: "Gul lök", Status: store.StatusApproved})
	if err != nil {
		t.Fatalf("UpsertFood: %v", err)
	}
	alias, err := st.UpsertFood(ctx, store.Food{Name: "Lök", Status: store.StatusApproved, CanonicalFoodID: ptr(canonical.ID)})
	if err != nil {
		t.Fatalf("UpsertFood alias: %v", err)
	}

	got, err := st.GetFood(ctx, alias.ID)
	if err != nil {
		t.Fatalf("GetFood: %v", err)
	}
	if !got.IsAlias() || *got.CanonicalFoodID != canonical.ID {
		t.Errorf("alias lost its canonical pointer: %+v", got)
	}

	// Update in place
	canonical.Name = "Gul lök (hel)"
	if _, err := st.UpsertFood(ctx, canonical); err != nil {
		t.Fatalf("UpsertFood update: %v", err)
	}
	foods, _ := st.ListFoods(ctx)
	if len(foods) != 2 {
		t.Fatalf("Expected 2 foods, got %d", len(foods))
	}
	if foods[0].Name != "Gul lök (hel)" {
		t.Errorf("foods not ordered by name or not updated: %+v", foods)
	}

	unit, err := st.UpsertUnit(ctx, store.Unit{Name: "matsked", Plural: "matskedar", Abbreviation: "msk"})
	if err != nil {
		t.Fatalf("UpsertUnit: %v", err)
	}
	gotUnit, err := st.GetUnit(ctx, unit.ID)
	if err != nil {
		t.Fatalf("GetUnit: %v", err)
	}
	if gotUnit != unit {
		t.Errorf("GetUnit = %+v; want %+v", gotUnit, unit)
	}

	if _, err := st.GetFood(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("GetFood missing: expected ErrNotFound, got %v", err)
	}
	if _, err := st.GetUnit(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("GetUnit missing: expected ErrNotFound, got %v", err)
	}
}

// TestSQLiteIntegrationRecipe tests recipe round trips and ingredient replacement
func TestSQLiteIntegrationRecipe(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	updated := time.Date(2026, 4, 2, 18, 30, 0, 123, time.UTC)
	r, err := st.UpsertRecipe(ctx, store.Recipe{
		OwnerID:   "home",
		Name:      "Pannkakor",
		Servings:  4,
		UpdatedAt: updated,
		Ingredients: []store.IngredientMention{
			{Name: "vetemjöl", Quantity: "2.5", Measurement: "dl", FoodID: ptr("flour"), UnitID: ptr("dl")},
			{Name: "mjölk", Quantity: "6", Measurement: "dl", FoodID: ptr("milk")},
			{Name: "en nypa kärlek", Group: "extra"},
		},
	})
	if err != nil {
		t.Fatalf("UpsertRecipe: %v", err)
	}

	got, err := st.GetRecipe(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if !got.UpdatedAt.Equal(updated) || got.Servings != 4 {
		t.Errorf("recipe header mismatch: %+v", got)
	}
	if !reflect.DeepEqual(got.Ingredients, r.Ingredients) {
		t.Errorf("ingredients = %+v; want %+v", got.Ingredients, r.Ingredients)
	}

	// Re-upsert replaces the ingredient set
	r.Ingredients = r.Ingredients[:1]
	if _, err := st.UpsertRecipe(ctx, r); err != nil {
		t.Fatalf("UpsertRecipe again: %v", err)
	}
	got, _ = st.GetRecipe(ctx, r.ID)
	if len(got.Ingredients) != 1 {
		t.Errorf("Expected 1 ingredient after update, got %d", len(got.Ingredients))
	}

	refs, err := st.ListRecipes(ctx, "home")
	if err != nil || len(refs) != 1 || refs[0].Name != "Pannkakor" {
		t.Errorf("ListRecipes = %+v, %v", refs, err)
	}
	if refs, _ := st.ListRecipes(ctx, "elsewhere"); len(refs) != 0 {
		t.Errorf("owner filter leaked %d recipes", len(refs))
	}
}

// TestSQLiteIntegrationPantryAccumulates tests the pantry upsert
func TestSQLiteIntegrationPantryAccumulates(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	expires := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	steps := []struct {
		add     store.PantryAdd
		wantQty *float64
		unit    string
	}{
		{store.PantryAdd{OwnerID: "home", FoodID: "salt"}, nil, ""},
		{store.PantryAdd{OwnerID: "home", FoodID: "salt", Quantity: ptr(1.0), Unit: "kg"}, ptr(1.0), "kg"},
		{store.PantryAdd{OwnerID: "home", FoodID: "salt", Quantity: ptr(0.5)}, ptr(1.5), "kg"},
		{store.PantryAdd{OwnerID: "home", FoodID: "salt", ExpiresAt: &expires}, ptr(1.5), "kg"},
	}

	for i, step := range steps {
		e, err := st.AddToPantry(ctx, step.add)
		if err != nil {
			t.Fatalf("step %d: AddToPantry: %v", i, err)
		}
		if !reflect.DeepEqual(e.Quantity, step.wantQty) || e.Unit != step.unit {
			t.Errorf("step %d: got %v %q; want %v %q", i, e.Quantity, e.Unit, step.wantQty, step.unit)
		}
	}

	entries, _ := st.ListPantry(ctx, "home")
	if len(entries) != 1 || entries[0].ExpiresAt == nil || !entries[0].ExpiresAt.Equal(expires) {
		t.Errorf("unexpected pantry %+v", entries)
	}

	if err := st.DeletePantryEntry(ctx, "home", "salt"); err != nil {
		t.Fatalf("DeletePantryEntry: %v", err)
	}
	if err := st.DeletePantryEntry(ctx, "home", "salt"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

// TestSQLiteIntegrationMergeItems tests list line identity and merging
func TestSQLiteIntegrationMergeItems(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	l, err := st.CreateList(ctx, store.ShoppingList{OwnerID: "home", Name: "Veckohandling"})
	if err != nil {
		t.Fatalf("CreateList: %v", err)
	}
	if _, err := st.CreateList(ctx, l); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("duplicate CreateList: expected ErrDuplicate, got %v", err)
	}

	contribs := []store.LineContribution{
		{FoodID: ptr("egg"), UnitID: ptr("st"), DisplayName: "Ägg", DisplayUnit: "st", Quantity: 3, RecipeID: "r1"},
		{FoodID: ptr("milk"), UnitID: ptr("dl"), DisplayName: "Mjölk", DisplayUnit: "dl", Quantity: 5, RecipeID: "r1"},
		{FoodID: ptr("flour"), DisplayName: "Vetemjöl", Quantity: 1, RecipeID: "r1"},
		{DisplayName: "Servetter", Quantity: 1},
	}
	if n, err := st.MergeItems(ctx, l.ID, contribs); err != nil || n != 4 {
		t.Fatalf("first MergeItems = %d, %v", n, err)
	}
	contribs[1].DisplayUnit = "deciliter"
	contribs[1].RecipeID = "r2"
	if n, err := st.MergeItems(ctx, l.ID, contribs); err != nil || n != 4 {
		t.Fatalf("second MergeItems = %d, %v", n, err)
	}

	items, err := st.ListItems(ctx, l.ID)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("Expected 5 lines (3 merged, 2 manual), got %d", len(items))
	}

	want := []struct {
		name    string
		qty     float64
		unit    string
		sources []string
		order   int
	}{
		{"Ägg", 6, "st", []string{"r1"}, 0},
		{"Mjölk", 10, "deciliter", []string{"r1", "r2"}, 1},
		{"Vetemjöl", 2, "", []string{"r1"}, 2},
		{"Servetter", 1, "", nil, 3},
		{"Servetter", 1, "", nil, 4},
	}
	for i, w := range want {
		it := items[i]
		if it.DisplayName != w.name || it.Quantity != w.qty || it.DisplayUnit != w.unit || it.SortOrder != w.order {
			t.Errorf("line %d = %+v; want %+v", i, it, w)
		}
		if !reflect.DeepEqual(it.SourceRecipes, w.sources) {
			t.Errorf("line %d sources = %v; want %v", i, it.SourceRecipes, w.sources)
		}
	}

	if _, err := st.MergeItems(ctx, "missing", contribs); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("MergeItems on missing list: expected ErrNotFound, got %v", err)
	}
}

// TestSQLiteIntegrationToggle tests the check/uncheck pantry asymmetry
func TestSQLiteIntegrationToggle(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	l, _ := st.CreateList(ctx, store.ShoppingList{OwnerID: "home"})
	st.MergeItems(ctx, l.ID, []store.LineContribution{
		{FoodID: ptr("egg"), UnitID: ptr("st"), DisplayName: "Ägg", DisplayUnit: "st", Quantity: 6},
		{DisplayName: "Tandkräm", Quantity: 1},
	})
	items, _ := st.ListItems(ctx, l.ID)
	eggs, manual := items[0], items[1]

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, want := range []float64{6, 6, 12, 12, 18} {
		out, err := st.ToggleItem(ctx, eggs.ID, now)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		checked := i%2 == 0
		if out.Item.IsChecked != checked {
			t.Fatalf("toggle %d: IsChecked = %v; want %v", i, out.Item.IsChecked, checked)
		}
		if checked != (out.Pantry != nil) {
			t.Errorf("toggle %d: pantry outcome present = %v", i, out.Pantry != nil)
		}
		pantry, _ := st.ListPantry(ctx, "home")
		if len(pantry) != 1 || *pantry[0].Quantity != want || pantry[0].Unit != "st" {
			t.Fatalf("toggle %d: pantry %+v; want %v st", i, pantry, want)
		}
	}

	items, _ = st.ListItems(ctx, l.ID)
	if !items[0].IsChecked || items[0].CheckedAt == nil || !items[0].CheckedAt.Equal(now) {
		t.Errorf("checked state not persisted: %+v", items[0])
	}

	out, err := st.ToggleItem(ctx, manual.ID, now)
	if err != nil {
		t.Fatalf("toggle manual: %v", err)
	}
	if !out.Item.IsChecked || out.Pantry != nil {
		t.Errorf("manual toggle = %+v", out)
	}

	if _, err := st.ToggleItem(ctx, "missing", now); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("toggle missing: expected ErrNotFound, got %v", err)
	}
}

// TestSQLiteIntegrationClearChecked tests deletion scoped to the given lists
func TestSQLiteIntegrationClearChecked(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	a, _ := st.CreateList(ctx, store.ShoppingList{OwnerID: "home", Name: "a"})
	b, _ := st.CreateList(ctx, store.ShoppingList{OwnerID: "home", Name: "b"})
	for _, l := range []store.ShoppingList{a, b} {
		st.MergeItems(ctx, l.ID, []store.LineContribution{
			{FoodID: ptr("egg"), Quantity: 1, RecipeID: "r1"},
			{FoodID: ptr("milk"), Quantity: 1, RecipeID: "r1"},
		})
		items, _ := st.ListItems(ctx, l.ID)
		st.ToggleItem(ctx, items[0].ID, time.Now())
	}

	n, err := st.ClearChecked(ctx, []string{a.ID})
	if err != nil {
		t.Fatalf("ClearChecked: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d; want 1", n)
	}
	if items, _ := st.ListItems(ctx, a.ID); len(items) != 1 || items[0].IsChecked {
		t.Errorf("list a after clear: %+v", items)
	}
	if items, _ := st.ListItems(ctx, b.ID); len(items) != 2 {
		t.Errorf("list b should be untouched, got %d lines", len(items))
	}

	// Recipe links go with the deleted line
	var links int
	st.(*sqliteStore).db.QueryRowContext(ctx, `SELECT COUNT(*) FROM list_item_recipes`).Scan(&links)
	if links != 3 {
		t.Errorf("Expected 3 remaining recipe links, got %d", links)
	}

	if n, _ := st.ClearChecked(ctx, nil); n != 0 {
		t.Errorf("ClearChecked(nil) = %d", n)
	}
}

// TestSQLiteIntegrationConcurrentPantry tests that concurrent additions to
// the same pantry entry all accumulate
func TestSQLiteIntegrationConcurrentPantry(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	const numGoroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.AddToPantry(ctx, store.PantryAdd{OwnerID: "home", FoodID: "rice", Quantity: ptr(1.0)}); err != nil {
				t.Errorf("AddToPantry: %v", err)
			}
		}()
	}
	wg.Wait()

	pantry, _ := st.ListPantry(ctx, "home")
	if len(pantry) != 1 || *pantry[0].Quantity != numGoroutines {
		t.Errorf("Expected quantity %d, got %+v", numGoroutines, pantry)
	}
}

// TestSQLiteIntegrationConcurrentMerge tests that concurrent additions of
// the same food and unit land in one line
func TestSQLiteIntegrationConcurrentMerge(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)
	l, _ := st.CreateList(ctx, store.ShoppingList{OwnerID: "home"})

	const numGoroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.MergeItems(ctx, l.ID, []store.LineContribution{
				{FoodID: ptr("oats"), UnitID: ptr("dl"), Quantity: 2},
			}); err != nil {
				t.Errorf("MergeItems: %v", err)
			}
		}()
	}
	wg.Wait()

	items, _ := st.ListItems(ctx, l.ID)
	if len(items) != 1 || items[0].Quantity != 2*numGoroutines {
		t.Errorf("Expected one line with quantity %d, got %+v", 2*numGoroutines, items)
	}
}

// TestSQLiteIntegrationWALMode verifies WAL mode is enabled
func TestSQLiteIntegrationWALMode(t *testing.T) {
	ctx := context.Background()
	st, dbPath := openTest(t)

	if _, err := st.UpsertFood(ctx, store.Food{Name: "Ägg"}); err != nil {
		t.Fatalf("UpsertFood: %v", err)
	}

	var mode string
	if err := st.(*sqliteStore).db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q; want wal", mode)
	}

	// WAL file should be created
	if _, err := os.Stat(dbPath + "-wal"); os.IsNotExist(err) {
		t.Skip("WAL file may not exist immediately, skipping")
	}
}
