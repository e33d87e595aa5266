package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ptehtimetable_go/database"
	"ptehtimetable_go/models"
	"ptehtimetable_go/services/scraper"
)

// ScrapeController exposes the ingestion surface: trigger a run, inspect
// run history.
type ScrapeController struct {
	runner *scraper.Runner
}

func NewScrapeController(runner *scraper.Runner) *ScrapeController {
	return &ScrapeController{runner: runner}
}

// RunScrape triggers one synchronous ingestion pass and returns its summary.
// The run takes no parameters; everything it needs comes from configuration.
func (sc *ScrapeController) RunScrape(c *fiber.Ctx) error {
	run, err := sc.runner.Run(c.Context(), "manual")
	if err != nil {
		if errors.Is(err, scraper.ErrRunInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "a run is already in progress",
			})
		}
		status := fiber.StatusInternalServerError
		response := fiber.Map{"error": err.Error()}
		if run != nil {
			response["run_id"] = run.RunID
		}
		return c.Status(status).JSON(response)
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"run_id":          run.RunID,
		"weeks_created":   run.WeeksCreated,
		"weeks_skipped":   run.WeeksSkipped,
		"weeks_failed":    run.WeeksFailed,
		"lessons_created": run.LessonsCreated,
		"lessons_updated": run.LessonsUpdated,
		"cards_skipped":   run.CardsSkipped,
	})
}

// GetRuns returns the most recent ingestion runs, newest first.
func (sc *ScrapeController) GetRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var runs []models.ScrapeRun
	if err := database.DB.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch runs"})
	}

	return c.JSON(fiber.Map{"runs": runs, "count": len(runs)})
}

// GetRun returns one run by its run id.
func (sc *ScrapeController) GetRun(c *fiber.Ctx) error {
	runID := c.Params("run_id")

	var run models.ScrapeRun
	if err := database.DB.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "run not found"})
	}

	return c.JSON(run)
}
