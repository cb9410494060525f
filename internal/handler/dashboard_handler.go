package handler

import (
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/gofiber/fiber/v3"
)

// DashboardHandler serves the aggregate quality dashboard.
type DashboardHandler struct {
	store port.Store
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(store port.Store) *DashboardHandler {
	return &DashboardHandler{store: store}
}

// Register sets up the dashboard route.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.Dashboard)
}

// Dashboard returns the latest run summary with queue and AI performance stats.
func (h *DashboardHandler) Dashboard(c fiber.Ctx) error {
	runs, err := h.store.LatestCompletedRuns(c.Context(), 2)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if len(runs) == 0 {
		return c.JSON(fiber.Map{"hasData": false})
	}

	latest := runs[0]
	improvement := 0.0
	if len(runs) > 1 {
		improvement = latest.DataQualityScore - runs[1].DataQualityScore
	}

	queueStats, err := h.store.QueueStatsSnapshot(c.Context(), time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	aiPerf, err := h.store.AIPerformanceStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"hasData":       true,
		"currentScore":  latest.DataQualityScore,
		"improvement":   improvement,
		"trend":         domain.TrendOf(improvement),
		"latestAudit":   latest,
		"manualQueue":   queueStats,
		"aiPerformance": aiPerf,
	})
}
