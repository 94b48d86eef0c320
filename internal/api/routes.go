package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bilgisen/illustrate/internal/config"
	"github.com/bilgisen/illustrate/internal/middleware"
)

// NewApp builds the fiber app with the shared error handler and routes.
func NewApp(cfg *config.Config, svc Services) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	SetupRoutes(app, cfg, svc)
	return app
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, cfg *config.Config, svc Services) {
	h := NewHandlers(cfg, svc)

	api := app.Group("/api/v1")

	api.Get("/health", h.HealthCheck)

	articles := api.Group("/articles")
	articles.Get("", h.ListArticles)
	articles.Get("/top", h.TopArticles)
	articles.Get("/:id", h.GetArticle)
	articles.Post("/:id/bookmark", h.ToggleBookmark)
	articles.Put("/:id/notes", h.SetNotes)

	api.Get("/sources", h.ListSources)
	api.Get("/stats", h.Stats)
	api.Get("/search", h.Search)

	admin := api.Group("/admin", middleware.AdminOnly(cfg.AdminAPIKey))
	admin.Post("/init", h.Init)
	admin.Post("/refresh", h.Refresh)
	admin.Post("/analyze", h.Analyze)
	admin.Post("/sources", h.AddSource)
	admin.Post("/sources/fetch", h.FetchSource)
	admin.Patch("/sources/:id", h.UpdateSource)
	admin.Delete("/sources/:id", h.DeleteSource)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
