package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/skafferi/pkg/skafferi/aggregate"
	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// sqliteStore implements the Store interface using SQLite.
//
// Writers are serialized by mu so that read-modify-write sequences (toggle
// then pantry upsert, list merge) never interleave inside this process.
// Single-row accumulations are additionally expressed as one upsert
// statement, so they stay atomic across processes sharing the file.
type sqliteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenSQLite opens a SQLite database with WAL mode and foreign keys enabled
// and creates the schema if needed.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db, now: time.Now}, nil
}

// dsn applies per-connection pragmas; database/sql may open several
// connections and a PRAGMA executed once only reaches one of them.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS foods (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	canonical_food_id TEXT
);

CREATE TABLE IF NOT EXISTS units (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	plural TEXT NOT NULL DEFAULT '',
	abbreviation TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS recipes (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	servings REAL NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ingredients (
	id TEXT PRIMARY KEY,
	recipe_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	quantity TEXT NOT NULL DEFAULT '',
	measurement TEXT NOT NULL DEFAULT '',
	grp TEXT NOT NULL DEFAULT '',
	food_id TEXT,
	unit_id TEXT,
	FOREIGN KEY(recipe_id) REFERENCES recipes(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS ingredients_recipe ON ingredients(recipe_id, position);

CREATE TABLE IF NOT EXISTS pantry (
	owner_id TEXT NOT NULL,
	food_id TEXT NOT NULL,
	quantity REAL,
	unit TEXT NOT NULL DEFAULT '',
	expires_at TEXT,
	added_at TEXT NOT NULL,
	PRIMARY KEY(owner_id, food_id)
);

CREATE TABLE IF NOT EXISTS shopping_lists (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS list_items (
	id TEXT PRIMARY KEY,
	list_id TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	display_unit TEXT NOT NULL DEFAULT '',
	quantity REAL NOT NULL DEFAULT 0,
	food_id TEXT,
	unit_id TEXT,
	unit_key TEXT NOT NULL DEFAULT '',
	is_checked INTEGER NOT NULL DEFAULT 0,
	checked_at TEXT,
	sort_order INTEGER NOT NULL,
	FOREIGN KEY(list_id) REFERENCES shopping_lists(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS list_items_identity
	ON list_items(list_id, food_id, unit_key) WHERE food_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS list_item_recipes (
	item_id TEXT NOT NULL,
	recipe_id TEXT NOT NULL,
	PRIMARY KEY(item_id, recipe_id),
	FOREIGN KEY(item_id) REFERENCES list_items(id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertFood inserts or updates a food
func (s *sqliteStore) UpsertFood(ctx context.Context, f store.Food) (store.Food, error) {
	if f.ID == "" {
		f.ID = store.NewID()
	}
	if f.Status == "" {
		f.Status = store.StatusPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO foods (id, name, status, canonical_food_id) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name,
	status=excluded.status,
	canonical_food_id=excluded.canonical_food_id;
`, f.ID, f.Name, string(f.Status), nullString(f.CanonicalFoodID))
	if err != nil {
		return store.Food{}, fmt.Errorf("upsert food %q: %w", f.ID, err)
	}
	return f, nil
}

// UpsertUnit inserts or updates a unit
func (s *sqliteStore) UpsertUnit(ctx context.Context, u store.Unit) (store.Unit, error) {
	if u.ID == "" {
		u.ID = store.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO units (id, name, plural, abbreviation) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name,
	plural=excluded.plural,
	abbreviation=excluded.abbreviation;
`, u.ID, u.Name, u.Plural, u.Abbreviation)
	if err != nil {
		return store.Unit{}, fmt.Errorf("upsert unit %q: %w", u.ID, err)
	}
	return u, nil
}

// GetFood retrieves a food by ID
func (s *sqliteStore) GetFood(ctx context.Context, id string) (store.Food, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, status, canonical_food_id FROM foods WHERE id=?`, id)
	f, err := scanFood(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Food{}, fmt.Errorf("food %q: %w", id, internalerr.ErrNotFound)
	}
	return f, err
}

// GetUnit retrieves a unit by ID
func (s *sqliteStore) GetUnit(ctx context.Context, id string) (store.Unit, error) {
	var u store.Unit
	err := s.db.QueryRowContext(ctx, `SELECT id, name, plural, abbreviation FROM units WHERE id=?`, id).
		Scan(&u.ID, &u.Name, &u.Plural, &u.Abbreviation)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Unit{}, fmt.Errorf("unit %q: %w", id, internalerr.ErrNotFound)
	}
	return u, err
}

// ListFoods returns every food ordered by name
func (s *sqliteStore) ListFoods(ctx context.Context) ([]store.Food, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, status, canonical_food_id FROM foods ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Food
	for rows.Next() {
		f, err := scanFood(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListUnits returns every unit ordered by name
func (s *sqliteStore) ListUnits(ctx context.Context) ([]store.Unit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, plural, abbreviation FROM units ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Unit
	for rows.Next() {
		var u store.Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Plural, &u.Abbreviation); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpsertRecipe inserts or updates a recipe and replaces its ingredients
func (s *sqliteStore) UpsertRecipe(ctx context.Context, r store.Recipe) (store.Recipe, error) {
	if r.ID == "" {
		r.ID = store.NewID()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = s.now()
	}
	ings := make([]store.IngredientMention, len(r.Ingredients))
	copy(ings, r.Ingredients)
	for i := range ings {
		if ings[i].ID == "" {
			ings[i].ID = store.NewID()
		}
	}
	r.Ingredients = ings

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Recipe{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO recipes (id, owner_id, name, servings, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	owner_id=excluded.owner_id,
	name=excluded.name,
	servings=excluded.servings,
	updated_at=excluded.updated_at;
`, r.ID, r.OwnerID, r.Name, r.Servings, formatTime(r.UpdatedAt)); err != nil {
		return store.Recipe{}, fmt.Errorf("upsert recipe %q: %w", r.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ingredients WHERE recipe_id=?`, r.ID); err != nil {
		return store.Recipe{}, err
	}
	if len(ings) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO ingredients (id, recipe_id, position, name, quantity, measurement, grp, food_id, unit_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return store.Recipe{}, err
		}
		defer stmt.Close()
		for i, ing := range ings {
			if _, err := stmt.ExecContext(ctx, ing.ID, r.ID, i, ing.Name, ing.Quantity, ing.Measurement,
				ing.Group, nullString(ing.FoodID), nullString(ing.UnitID)); err != nil {
				return store.Recipe{}, fmt.Errorf("insert ingredient %q: %w", ing.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return store.Recipe{}, err
	}
	return r, nil
}

// GetRecipe retrieves a recipe with its ingredients in authored order
func (s *sqliteStore) GetRecipe(ctx context.Context, id string) (store.Recipe, error) {
	var (
		r       store.Recipe
		updated string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, owner_id, name, servings, updated_at FROM recipes WHERE id=?`, id).
		Scan(&r.ID, &r.OwnerID, &r.Name, &r.Servings, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Recipe{}, fmt.Errorf("recipe %q: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Recipe{}, err
	}
	r.UpdatedAt = parseTime(updated)

	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, quantity, measurement, grp, food_id, unit_id
FROM ingredients WHERE recipe_id=? ORDER BY position`, id)
	if err != nil {
		return store.Recipe{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ing          store.IngredientMention
			food, unitID sql.NullString
		)
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Quantity, &ing.Measurement, &ing.Group, &food, &unitID); err != nil {
			return store.Recipe{}, err
		}
		ing.FoodID = stringPtr(food)
		ing.UnitID = stringPtr(unitID)
		r.Ingredients = append(r.Ingredients, ing)
	}
	return r, rows.Err()
}

// ListRecipes returns recipe references, most recently updated first.
// An empty ownerID lists every recipe.
func (s *sqliteStore) ListRecipes(ctx context.Context, ownerID string) ([]store.RecipeRef, error) {
	query := `SELECT id, owner_id, name, updated_at FROM recipes`
	var args []any
	if ownerID != "" {
		query += ` WHERE owner_id=?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY updated_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.RecipeRef
	for rows.Next() {
		var (
			ref     store.RecipeRef
			updated string
		)
		if err := rows.Scan(&ref.ID, &ref.OwnerID, &ref.Name, &updated); err != nil {
			return nil, err
		}
		ref.UpdatedAt = parseTime(updated)
		out = append(out, ref)
	}
	return out, rows.Err()
}

// AddToPantry accumulates add into the owner's entry in a single upsert
func (s *sqliteStore) AddToPantry(ctx context.Context, add store.PantryAdd) (store.PantryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertPantry(ctx, s.db, add, s.now())
}

func upsertPantry(ctx context.Context, q querier, add store.PantryAdd, now time.Time) (store.PantryEntry, error) {
	var expires any
	if add.ExpiresAt != nil {
		expires = formatTime(*add.ExpiresAt)
	}
	var qty any
	if add.Quantity != nil {
		qty = *add.Quantity
	}

	row := q.QueryRowContext(ctx, `
INSERT INTO pantry (owner_id, food_id, quantity, unit, expires_at, added_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(owner_id, food_id) DO UPDATE SET
	quantity = CASE
		WHEN excluded.quantity IS NULL THEN pantry.quantity
		ELSE COALESCE(pantry.quantity, 0) + excluded.quantity
	END,
	unit = CASE WHEN excluded.unit <> '' THEN excluded.unit ELSE pantry.unit END,
	expires_at = COALESCE(excluded.expires_at, pantry.expires_at)
RETURNING owner_id, food_id, quantity, unit, expires_at, added_at;
`, add.OwnerID, add.FoodID, qty, add.Unit, expires, formatTime(now))

	e, err := scanPantry(row)
	if err != nil {
		return store.PantryEntry{}, fmt.Errorf("add %q to pantry of %q: %w", add.FoodID, add.OwnerID, err)
	}
	return e, nil
}

// ListPantry returns the owner's pantry ordered by when entries were added
func (s *sqliteStore) ListPantry(ctx context.Context, ownerID string) ([]store.PantryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT owner_id, food_id, quantity, unit, expires_at, added_at
FROM pantry WHERE owner_id=? ORDER BY added_at, food_id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.PantryEntry
	for rows.Next() {
		e, err := scanPantry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeletePantryEntry removes the owner's entry for a food
func (s *sqliteStore) DeletePantryEntry(ctx context.Context, ownerID, foodID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM pantry WHERE owner_id=? AND food_id=?`, ownerID, foodID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pantry entry %q/%q: %w", ownerID, foodID, internalerr.ErrNotFound)
	}
	return nil
}

// CreateList stores a new shopping list
func (s *sqliteStore) CreateList(ctx context.Context, l store.ShoppingList) (store.ShoppingList, error) {
	if l.ID == "" {
		l.ID = store.NewID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM shopping_lists WHERE id=?`, l.ID).Scan(&exists)
	if err == nil {
		return store.ShoppingList{}, fmt.Errorf("list %q: %w", l.ID, internalerr.ErrDuplicate)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.ShoppingList{}, err
	}

	if _, err := s.db.ExecContext(ctx, `
INSERT INTO shopping_lists (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)`,
		l.ID, l.OwnerID, l.Name, formatTime(l.CreatedAt)); err != nil {
		return store.ShoppingList{}, fmt.Errorf("create list %q: %w", l.ID, err)
	}
	return l, nil
}

// GetList retrieves a shopping list by ID
func (s *sqliteStore) GetList(ctx context.Context, id string) (store.ShoppingList, error) {
	l, err := getList(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ShoppingList{}, fmt.Errorf("list %q: %w", id, internalerr.ErrNotFound)
	}
	return l, err
}

func getList(ctx context.Context, q querier, id string) (store.ShoppingList, error) {
	var (
		l       store.ShoppingList
		created string
	)
	err := q.QueryRowContext(ctx, `SELECT id, owner_id, name, created_at FROM shopping_lists WHERE id=?`, id).
		Scan(&l.ID, &l.OwnerID, &l.Name, &created)
	if err != nil {
		return store.ShoppingList{}, err
	}
	l.CreatedAt = parseTime(created)
	return l, nil
}

// ListLists returns the owner's lists, oldest first
func (s *sqliteStore) ListLists(ctx context.Context, ownerID string) ([]store.ShoppingList, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, owner_id, name, created_at FROM shopping_lists
WHERE owner_id=? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ShoppingList
	for rows.Next() {
		var (
			l       store.ShoppingList
			created string
		)
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Name, &created); err != nil {
			return nil, err
		}
		l.CreatedAt = parseTime(created)
		out = append(out, l)
	}
	return out, rows.Err()
}

// MergeItems applies contributions to a list in one transaction. Keyed
// contributions go through an upsert on (list_id, food_id, unit_key) so the
// quantity addition happens inside the database.
func (s *sqliteStore) MergeItems(ctx context.Context, listID string, contribs []store.LineContribution) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := getList(ctx, tx, listID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("list %q: %w", listID, internalerr.ErrNotFound)
		}
		return 0, err
	}

	var nextSort int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM list_items WHERE list_id=?`, listID).Scan(&nextSort); err != nil {
		return 0, err
	}

	applied := 0
	for _, c := range contribs {
		newID := store.NewID()

		var itemID string
		if k, keyed := aggregate.KeyOf(c); keyed {
			err = tx.QueryRowContext(ctx, `
INSERT INTO list_items (id, list_id, display_name, display_unit, quantity, food_id, unit_id, unit_key, sort_order)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(list_id, food_id, unit_key) WHERE food_id IS NOT NULL DO UPDATE SET
	quantity = list_items.quantity + excluded.quantity,
	display_unit = CASE WHEN excluded.display_unit <> '' THEN excluded.display_unit ELSE list_items.display_unit END
RETURNING id;
`, newID, listID, c.DisplayName, c.DisplayUnit, c.Quantity, nullString(c.FoodID), nullString(c.UnitID),
				k.UnitID, nextSort).Scan(&itemID)
		} else {
			itemID = newID
			_, err = tx.ExecContext(ctx, `
INSERT INTO list_items (id, list_id, display_name, display_unit, quantity, sort_order)
VALUES (?, ?, ?, ?, ?, ?)`, newID, listID, c.DisplayName, c.DisplayUnit, c.Quantity, nextSort)
		}
		if err != nil {
			return 0, fmt.Errorf("merge into list %q: %w", listID, err)
		}
		if itemID == newID {
			nextSort++
		}

		if c.RecipeID != "" {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO list_item_recipes (item_id, recipe_id) VALUES (?, ?)`, itemID, c.RecipeID); err != nil {
				return 0, err
			}
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return applied, nil
}

// ListItems returns a list's lines in sort order with their source recipes
func (s *sqliteStore) ListItems(ctx context.Context, listID string) ([]store.ShoppingListItem, error) {
	if _, err := s.GetList(ctx, listID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, itemColumns+` WHERE list_id=? ORDER BY sort_order, id`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []store.ShoppingListItem
	pos := make(map[string]int)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		pos[it.ID] = len(items)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	srcRows, err := s.db.QueryContext(ctx, `
SELECT r.item_id, r.recipe_id FROM list_item_recipes r
JOIN list_items i ON i.id = r.item_id
WHERE i.list_id=? ORDER BY r.rowid`, listID)
	if err != nil {
		return nil, err
	}
	defer srcRows.Close()
	for srcRows.Next() {
		var itemID, recipeID string
		if err := srcRows.Scan(&itemID, &recipeID); err != nil {
			return nil, err
		}
		if i, ok := pos[itemID]; ok {
			items[i].SourceRecipes = append(items[i].SourceRecipes, recipeID)
		}
	}
	return items, srcRows.Err()
}

// ToggleItem flips a line and feeds the list owner's pantry in the same
// transaction when the line becomes checked.
func (s *sqliteStore) ToggleItem(ctx context.Context, itemID string, now time.Time) (store.ToggleOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.ToggleOutcome{}, err
	}
	defer tx.Rollback()

	line, err := scanItem(tx.QueryRowContext(ctx, itemColumns+` WHERE id=?`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return store.ToggleOutcome{}, fmt.Errorf("item %q: %w", itemID, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.ToggleOutcome{}, err
	}
	list, err := getList(ctx, tx, line.ListID)
	if err != nil {
		return store.ToggleOutcome{}, fmt.Errorf("list of item %q: %w", itemID, err)
	}

	line, became := aggregate.Toggle(line, now)
	var checkedAt any
	if line.CheckedAt != nil {
		checkedAt = formatTime(*line.CheckedAt)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE list_items SET is_checked=?, checked_at=? WHERE id=?`,
		boolInt(line.IsChecked), checkedAt, itemID); err != nil {
		return store.ToggleOutcome{}, err
	}

	out := store.ToggleOutcome{Item: line}
	if became {
		if add, ok := aggregate.PantryDelta(list.OwnerID, line); ok {
			e, err := upsertPantry(ctx, tx, add, now)
			if err != nil {
				return store.ToggleOutcome{}, err
			}
			out.Pantry = &e
		}
	}

	if err := tx.Commit(); err != nil {
		return store.ToggleOutcome{}, err
	}
	return out, nil
}

// ClearChecked deletes checked lines from the given lists; recipe links
// go with them through the cascading foreign key.
func (s *sqliteStore) ClearChecked(ctx context.Context, listIDs []string) (int, error) {
	if len(listIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(listIDs)), ",")
	args := make([]any, len(listIDs))
	for i, id := range listIDs {
		args[i] = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM list_items WHERE is_checked=1 AND list_id IN (%s)`, placeholders), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

const itemColumns = `
SELECT id, list_id, display_name, display_unit, quantity, food_id, unit_id, is_checked, checked_at, sort_order
FROM list_items`

type scanner interface {
	Scan(dest ...any) error
}

func scanFood(sc scanner) (store.Food, error) {
	var (
		f         store.Food
		status    string
		canonical sql.NullString
	)
	if err := sc.Scan(&f.ID, &f.Name, &status, &canonical); err != nil {
		return store.Food{}, err
	}
	f.Status = store.FoodStatus(status)
	f.CanonicalFoodID = stringPtr(canonical)
	return f, nil
}

func scanPantry(sc scanner) (store.PantryEntry, error) {
	var (
		e       store.PantryEntry
		qty     sql.NullFloat64
		expires sql.NullString
		added   string
	)
	if err := sc.Scan(&e.OwnerID, &e.FoodID, &qty, &e.Unit, &expires, &added); err != nil {
		return store.PantryEntry{}, err
	}
	if qty.Valid {
		v := qty.Float64
		e.Quantity = &v
	}
	if expires.Valid {
		t := parseTime(expires.String)
		e.ExpiresAt = &t
	}
	e.AddedAt = parseTime(added)
	return e, nil
}

func scanItem(sc scanner) (store.ShoppingListItem, error) {
	var (
		it           store.ShoppingListItem
		food, unitID sql.NullString
		checked      int
		checkedAt    sql.NullString
	)
	if err := sc.Scan(&it.ID, &it.ListID, &it.DisplayName, &it.DisplayUnit, &it.Quantity,
		&food, &unitID, &checked, &checkedAt, &it.SortOrder); err != nil {
		return store.ShoppingListItem{}, err
	}
	it.FoodID = stringPtr(food)
	it.UnitID = stringPtr(unitID)
	it.IsChecked = checked != 0
	if checkedAt.Valid {
		t := parseTime(checkedAt.String)
		it.CheckedAt = &t
	}
	return it, nil
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timeLayout is fixed-width so that text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}
