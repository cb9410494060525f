package handler

import (
	"errors"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// QueueHandler handles manual intervention queue endpoints.
type QueueHandler struct {
	queue    *service.QueueService
	validate *validator.Validate
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(queue *service.QueueService) *QueueHandler {
	return &QueueHandler{queue: queue, validate: validator.New()}
}

// Register sets up queue routes.
func (h *QueueHandler) Register(router fiber.Router) {
	router.Get("/manual-queue", h.List)
	router.Post("/manual-queue/:id/claim", h.Claim)
	router.Post("/resolve-issue", h.Resolve)
}

// List returns queue items with their issues, highest priority first and
// oldest first within a tier.
func (h *QueueHandler) List(c fiber.Ctx) error {
	priority := c.Query("priority")
	status := c.Query("status")

	entries, err := h.queue.List(c.Context(), priority, status)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if entries == nil {
		entries = []port.QueueEntry{}
	}

	return c.JSON(fiber.Map{"items": entries, "count": len(entries)})
}

// Claim marks a pending queue item as in progress.
func (h *QueueHandler) Claim(c fiber.Ctx) error {
	item, err := h.queue.Claim(c.Context(), c.Params("id"))
	switch {
	case errors.Is(err, port.ErrQueueItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, port.ErrAlreadyResolved):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"item": item})
}

type resolveRequest struct {
	QueueID           string `json:"queueId"  validate:"required"`
	Action            string `json:"action"   validate:"required,oneof=approve reject custom"`
	Notes             string `json:"notes"`
	ApplyAISuggestion bool   `json:"applyAiSuggestion"`
}

// Resolve performs the terminal transition for a queue item.
func (h *QueueHandler) Resolve(c fiber.Ctx) error {
	var body resolveRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.queue.Resolve(c.Context(), body.QueueID, body.Action, body.Notes, body.ApplyAISuggestion)
	switch {
	case errors.Is(err, port.ErrQueueItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false, "message": err.Error(),
		})
	case errors.Is(err, port.ErrAlreadyResolved):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false, "message": err.Error(),
		})
	case errors.Is(err, port.ErrInvalidAction):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": err.Error(),
		})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "message": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   result.Message,
		"slaMissed": result.SLAMissed,
	})
}
