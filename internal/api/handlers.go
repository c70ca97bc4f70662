package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cognicore/skafferi/pkg/skafferi"
)

type handlers struct {
	eng *skafferi.Engine
	log *zap.Logger
}

func (h *handlers) searchFood(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.eng.SearchFood(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (h *handlers) searchUnit(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.eng.SearchUnit(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (h *handlers) resolveMention(c *gin.Context) {
	var req ingredientJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	m, err := h.eng.ResolveMention(c.Request.Context(), req.mention())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toIngredientJSON(m))
}

func (h *handlers) importRecipe(c *gin.Context) {
	var req recipeJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	r, err := h.eng.ImportRecipe(c.Request.Context(), req.recipe())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toRecipeJSON(r))
}

func (h *handlers) matchRecipeToPantry(c *gin.Context) {
	var req matchRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.eng.MatchRecipeToPantry(c.Request.Context(), req.RecipeID, req.PantryFoodIDs, req.MinPercentage, req.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (h *handlers) matchPantryToFoodIDs(c *gin.Context) {
	var req matchPantryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.eng.MatchPantryToFoodIDs(c.Request.Context(), req.FoodIDs, req.MinPercentage, req.OwnerFilter, req.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (h *handlers) createList(c *gin.Context) {
	var req createListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	l, err := h.eng.CreateList(c.Request.Context(), req.OwnerID, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toListJSON(l))
}

func (h *handlers) listItems(c *gin.Context) {
	var req listIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	items, err := h.eng.ListItems(c.Request.Context(), req.ListID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toItemsJSON(items)})
}

func (h *handlers) addRecipeToList(c *gin.Context) {
	var req skafferi.AddRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.eng.AddRecipeToList(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) addManualItem(c *gin.Context) {
	var req manualItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.eng.AddManualItem(c.Request.Context(), req.ListID, req.Name, req.Unit, req.Quantity); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) toggleLineItem(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.eng.ToggleLineItem(c.Request.Context(), req.ItemID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) clearChecked(c *gin.Context) {
	var req clearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	out, err := h.eng.ClearChecked(c.Request.Context(), req.OwnerID, req.ListID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) addToPantry(c *gin.Context) {
	var req skafferi.PantryAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	e, err := h.eng.AddToPantry(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPantryJSON(e))
}

func (h *handlers) listPantry(c *gin.Context) {
	var req ownerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	entries, err := h.eng.ListPantry(c.Request.Context(), req.OwnerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]pantryJSON, len(entries))
	for i, e := range entries {
		out[i] = toPantryJSON(e)
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

func (h *handlers) removeFromPantry(c *gin.Context) {
	var req pantryKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.eng.RemoveFromPantry(c.Request.Context(), req.OwnerID, req.FoodID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
