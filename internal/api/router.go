// Package api exposes the engine as JSON RPC endpoints over gin.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cognicore/skafferi/pkg/skafferi"
)

// Options configures the router middleware
type Options struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64
	Burst     int
}

// DefaultOptions returns permissive CORS, a 1 MiB body limit and 20 rps per IP.
func DefaultOptions() Options {
	return Options{
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   1 << 20,
		RateLimit:      20,
		Burst:          40,
	}
}

// NewRouter builds the gin engine serving every RPC under /rpc.
func NewRouter(eng *skafferi.Engine, log *zap.Logger, opts Options) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.New())
	r.Use(Logger(log))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	if opts.MaxBodyBytes > 0 {
		r.Use(BodySizeLimit(opts.MaxBodyBytes))
	}
	if opts.RateLimit > 0 {
		r.Use(RateLimit(opts.RateLimit, opts.Burst))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	h := &handlers{eng: eng, log: log}
	rpc := r.Group("/rpc")
	{
		rpc.POST("/search_food", h.searchFood)
		rpc.POST("/search_unit", h.searchUnit)
		rpc.POST("/resolve_mention", h.resolveMention)
		rpc.POST("/import_recipe", h.importRecipe)
		rpc.POST("/match_recipe_to_pantry", h.matchRecipeToPantry)
		rpc.POST("/match_pantry_to_food_ids", h.matchPantryToFoodIDs)
		rpc.POST("/create_list", h.createList)
		rpc.POST("/list_items", h.listItems)
		rpc.POST("/add_recipe_to_list", h.addRecipeToList)
		rpc.POST("/add_manual_item", h.addManualItem)
		rpc.POST("/toggle_line_item", h.toggleLineItem)
		rpc.POST("/clear_checked", h.clearChecked)
		rpc.POST("/add_to_pantry", h.addToPantry)
		rpc.POST("/list_pantry", h.listPantry)
		rpc.POST("/remove_from_pantry", h.removeFromPantry)
	}
	return r
}

// corsConfig allows every origin when origins is empty or contains "*".
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	all := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			all = true
		}
	}
	if all {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
