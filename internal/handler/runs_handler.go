package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/service"
	"github.com/gofiber/fiber/v3"
)

// RunsHandler exposes in-flight audit run progress.
type RunsHandler struct {
	tracker *service.RunTracker
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(tracker *service.RunTracker) *RunsHandler {
	return &RunsHandler{tracker: tracker}
}

// Register sets up run progress routes.
func (h *RunsHandler) Register(router fiber.Router) {
	runs := router.Group("/runs")
	runs.Get("/:id", h.GetStatus)
	runs.Get("/:id/stream", h.StreamSSE)
}

// GetStatus returns the current run status.
func (h *RunsHandler) GetStatus(c fiber.Ctx) error {
	id := c.Params("id")
	run, ok := h.tracker.Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "run not found"})
	}
	return c.JSON(run)
}

// StreamSSE streams run updates via Server-Sent Events.
func (h *RunsHandler) StreamSSE(c fiber.Ctx) error {
	id := c.Params("id")

	run, ok := h.tracker.Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "run not found"})
	}

	// If already finished, just return the final status
	if run.Status == service.RunStatusComplete || run.Status == service.RunStatusError {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		data, _ := json.Marshal(run)
		return c.SendString(fmt.Sprintf("event: %s\ndata: %s\n\n", run.Status, string(data)))
	}

	ch := h.tracker.Subscribe(id)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Access-Control-Allow-Origin", "*")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer h.tracker.Unsubscribe(id, ch)

		// Send initial status
		data, _ := json.Marshal(run)
		fmt.Fprintf(w, "event: progress\ndata: %s\n\n", string(data))
		w.Flush()

		timeout := time.After(5 * time.Minute)
		for {
			select {
			case update, ok := <-ch:
				if !ok {
					return
				}
				data, _ := json.Marshal(update)
				eventType := "progress"
				if update.Status == service.RunStatusComplete || update.Status == service.RunStatusError {
					eventType = update.Status
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, string(data))
				w.Flush()

				if update.Status == service.RunStatusComplete || update.Status == service.RunStatusError {
					return
				}
			case <-timeout:
				slog.Warn("SSE timeout", "run_id", id)
				return
			}
		}
	})
}
