package main

import (
	"context"
	"log"
	"os"

	"ptehtimetable_go/config"
	"ptehtimetable_go/database"
	"ptehtimetable_go/database/seeders"
	"ptehtimetable_go/middleware"
	"ptehtimetable_go/routes"
	"ptehtimetable_go/services"
	"ptehtimetable_go/services/scraper"
	"ptehtimetable_go/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func init() {
	// Initialize logging
	setupLogging()

	// Load configuration
	config.LoadConfig()

	// Connect to database
	database.Connect()

	// Days must exist before the first ingestion pass
	seeders.SeedAll()
}

func main() {
	// Optional raw payload archive
	var archive scraper.PayloadArchiver
	if config.AppConfig.ArchivePayloads {
		payloadArchive, err := storage.NewPayloadArchive()
		if err != nil {
			logrus.WithError(err).Warn("Payload archive unavailable, continuing without it")
		} else {
			archive = payloadArchive
		}
	}

	client := scraper.NewClient(config.AppConfig)
	runner := scraper.NewRunner(database.DB, client, database.GetRedisClient(), archive, config.AppConfig)

	// Scheduled ingestion runs
	scheduler := services.NewScrapeScheduler(runner)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start scrape scheduler:", err)
	}

	if config.AppConfig.ScrapeOnStart {
		go func() {
			if _, err := runner.Run(context.Background(), "cron"); err != nil {
				logrus.WithError(err).Error("Startup ingestion run failed")
			}
		}()
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(middleware.LoggerMiddleware())

	// API routes
	routes.SetupRoutes(app, runner)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	// Start server
	port := ":" + config.AppConfig.Port
	log.Printf("Server starting on port %s", config.AppConfig.Port)
	log.Printf("Environment: %s", config.AppConfig.AppEnv)

	if err := app.Listen(port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// setupLogging configures the logging system
func setupLogging() {
	// Create logs directory if it doesn't exist
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Warning: Could not create logs directory: %v", err)
	}

	// Configure logrus
	logrus.SetFormatter(&logrus.JSONFormatter{})

	// Set log level
	level, err := logrus.ParseLevel("info") // Default to info
	if err == nil {
		logrus.SetLevel(level)
	}

	// Log to both file and stdout in development
	if os.Getenv("APP_ENV") == "development" {
		logrus.SetOutput(os.Stdout)
	} else {
		// In production, log to file
		file, err := os.OpenFile("logs/app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logrus.SetOutput(file)
		}
	}
}

// customErrorHandler handles application errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Log the error
	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	// Send error response
	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}
