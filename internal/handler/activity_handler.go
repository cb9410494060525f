package handler

import (
	"strconv"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/adapter/store"
	"github.com/gofiber/fiber/v3"
)

// ActivityHandler handles activity log endpoints.
type ActivityHandler struct {
	store *store.PostgresStore
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(store *store.PostgresStore) *ActivityHandler {
	return &ActivityHandler{store: store}
}

// Register sets up activity routes.
func (h *ActivityHandler) Register(router fiber.Router) {
	activity := router.Group("/activity")
	activity.Get("/logs", h.ListLogs)
}

// ListLogs returns activity logs with optional filtering.
func (h *ActivityHandler) ListLogs(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	action := c.Query("action", "")

	logs, err := h.store.ListActivityLogs(c.Context(), limit, action)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}
