package routes

import (
	"ptehtimetable_go/controllers"
	"ptehtimetable_go/services"
	"ptehtimetable_go/services/scraper"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes wires the ingestion surface. Query/filter endpoints over the
// normalized schedule belong to downstream consumers and are not served
// here.
func SetupRoutes(app *fiber.App, runner *scraper.Runner) {
	// Initialize controllers
	scrapeController := controllers.NewScrapeController(runner)
	exportController := &controllers.ExportController{}
	healthController := controllers.NewHealthController(services.NewHealthService("", ""))

	app.Get("/health", healthController.GetHealthStatus)

	// API group
	api := app.Group("/api")

	api.Post("/scrape/run", scrapeController.RunScrape)
	api.Get("/scrape/runs", scrapeController.GetRuns)
	api.Get("/scrape/runs/:run_id", scrapeController.GetRun)

	api.Get("/weeks/:id/export", exportController.ExportWeek)
}
