package handler

import (
	"errors"
	"strconv"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/service"
	"github.com/gofiber/fiber/v3"
)

// AuditHandler handles audit trigger and history endpoints.
type AuditHandler struct {
	audit     *service.AuditService
	detectors *port.DetectorRegistry
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(audit *service.AuditService, detectors *port.DetectorRegistry) *AuditHandler {
	return &AuditHandler{audit: audit, detectors: detectors}
}

// Register sets up audit routes.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Post("/run-audit", h.RunAudit)
	router.Get("/audit-history", h.History)
	router.Get("/detectors", h.ListDetectors)
}

// RunAudit triggers a new audit run and returns 202 immediately. The run
// executes in the background; progress is available via /runs/:id.
func (h *AuditHandler) RunAudit(c fiber.Ctx) error {
	run, err := h.audit.Start(c.Context())
	if errors.Is(err, port.ErrAuditInFlight) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "running",
		"run_id": run.ID,
	})
}

// History returns recent audit runs, newest first.
func (h *AuditHandler) History(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	runs, err := h.audit.History(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if runs == nil {
		runs = []domain.AuditRun{}
	}

	return c.JSON(fiber.Map{"runs": runs, "count": len(runs)})
}

// ListDetectors returns the registered detectors.
func (h *AuditHandler) ListDetectors(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"detectors": h.detectors.Names()})
}
