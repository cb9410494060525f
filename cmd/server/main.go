package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/adapter/ai"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/adapter/detect"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/adapter/report"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/adapter/store"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/handler"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/middleware"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/service"
	"github.com/arturoeanton/go-data-auditor-ollama/pkg/config"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting Data Auditor AI",
		"port", cfg.Port,
		"ollama", cfg.OllamaBaseURL,
		"model", cfg.OllamaModel,
		"auto_fix_threshold", cfg.AutoFixThreshold,
	)

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	if err := pgStore.Migrate(context.Background()); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	reasoner := ai.NewOllamaReasoner(ai.OllamaConfig{
		BaseURL: cfg.OllamaBaseURL,
		Model:   cfg.OllamaModel,
		Token:   cfg.OllamaToken,
	})

	// ── Detectors (Strategy Pattern) ─────────────────────────────────────
	detectors := port.NewDetectorRegistry(
		detect.NewMissingFieldsDetector(nil),
		detect.NewFormatDetector(),
		detect.NewDuplicateDetector(),
		detect.NewStaleRecordDetector(0),
	)

	// ── Services ─────────────────────────────────────────────────────────
	classifier := service.NewClassifier(cfg)
	remediation := service.NewRemediationService(
		pgStore, reasoner, classifier,
		cfg.AutoFixThreshold,
		time.Duration(cfg.RemediationTimeoutSeconds)*time.Second,
	)
	feedback := service.NewFeedbackService(pgStore)
	queue := service.NewQueueService(pgStore, feedback)
	tracker := service.NewRunTracker()
	audit := service.NewAuditService(pgStore, detectors, classifier, remediation, tracker,
		cfg.AuditWorkers,
		service.ScoreWeights{
			Error:   cfg.ScoreWeightError,
			Warning: cfg.ScoreWeightWarning,
			Info:    cfg.ScoreWeightInfo,
		},
	)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	// Activity middleware (logs all requests)
	app.Use(middleware.ActivityMiddleware(pgStore))

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
		})
	})

	// ── Routes ───────────────────────────────────────────────────────────
	api := app.Group("/api/v1")

	auditHandler := handler.NewAuditHandler(audit, detectors)
	auditHandler.Register(api)

	runsHandler := handler.NewRunsHandler(tracker)
	runsHandler.Register(api)

	queueHandler := handler.NewQueueHandler(queue)
	queueHandler.Register(api)

	dashboardHandler := handler.NewDashboardHandler(pgStore)
	dashboardHandler.Register(api)

	reportHandler := handler.NewReportHandler(pgStore, report.NewCSVRenderer(), report.NewHTMLRenderer())
	reportHandler.Register(api)

	recordsHandler := handler.NewRecordsHandler(pgStore)
	recordsHandler.Register(api)

	activityHandler := handler.NewActivityHandler(pgStore)
	activityHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
