package server

import (
	"foodtube/internal/core/restaurant"
	"foodtube/internal/core/scan"
	"foodtube/internal/core/youtube"
	"foodtube/internal/health"
	"foodtube/internal/utils/httputil"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Scan        *scan.Handler
	Restaurants *restaurant.Handler
	Playlists   *youtube.Handler
	Health      map[string]health.Checker
	// RateLimit is requests per minute per client IP on the API group.
	RateLimit int
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	healthHandler := health.NewHealthHandler(d.Health)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1", httputil.RequireUser())
	if d.RateLimit > 0 {
		api.Use(health.RateLimiter(d.RateLimit))
	}

	api.Post("/scan", d.Scan.HandleCreate)
	api.Get("/scan/:jobId", d.Scan.HandleStatus)
	api.Get("/scan/:jobId/events", d.Scan.HandleEvents)

	api.Get("/restaurants", d.Restaurants.HandleList)
	api.Delete("/restaurants/:id", d.Restaurants.HandleDelete)

	api.Get("/playlists", d.Playlists.HandleListPlaylists)

	return healthHandler
}
