package skafferi

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/skafferi/pkg/skafferi/internalerr"
	"github.com/cognicore/skafferi/pkg/skafferi/store"
)

// PantryAddRequest adds stock of one food to an owner's pantry
type PantryAddRequest struct {
	OwnerID   string     `json:"owner_id"`
	FoodID    string     `json:"food_id"`
	Quantity  *float64   `json:"quantity,omitempty"`
	Unit      string     `json:"unit,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// AddToPantry adds to the owner's entry for the food, creating it when
// missing. An alias food id is stored under its canonical food so both
// spellings accumulate into one entry.
func (e *Engine) AddToPantry(ctx context.Context, req PantryAddRequest) (store.PantryEntry, error) {
	if req.OwnerID == "" || req.FoodID == "" {
		return store.PantryEntry{}, fmt.Errorf("owner and food required: %w", internalerr.ErrInvalidInput)
	}
	if q := req.Quantity; q != nil && (math.IsNaN(*q) || *q < 0) {
		return store.PantryEntry{}, fmt.Errorf("quantity %v: %w", *q, internalerr.ErrInvalidInput)
	}

	cat, err := e.loadCatalog(ctx, false)
	if err != nil {
		return store.PantryEntry{}, err
	}
	res, ok := e.resolve(cat, req.FoodID)
	if !ok {
		return store.PantryEntry{}, fmt.Errorf("food %q: %w", req.FoodID, internalerr.ErrNotFound)
	}

	entry, err := e.store.AddToPantry(ctx, store.PantryAdd{
		OwnerID:   req.OwnerID,
		FoodID:    res.Food.ID,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		return store.PantryEntry{}, storeErr("add to pantry", err)
	}
	e.log.Info("pantry updated",
		zap.String("owner_id", req.OwnerID),
		zap.String("food_id", res.Food.ID),
		zap.Bool("via_alias", res.Alias))
	return entry, nil
}

// ListPantry returns the owner's pantry entries
func (e *Engine) ListPantry(ctx context.Context, ownerID string) ([]store.PantryEntry, error) {
	entries, err := e.store.ListPantry(ctx, ownerID)
	if err != nil {
		return nil, storeErr("list pantry", err)
	}
	return entries, nil
}

// RemoveFromPantry deletes the owner's entry for a food
func (e *Engine) RemoveFromPantry(ctx context.Context, ownerID, foodID string) error {
	if err := e.store.DeletePantryEntry(ctx, ownerID, foodID); err != nil {
		return storeErr("remove from pantry", err)
	}
	return nil
}
