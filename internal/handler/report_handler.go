package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/gofiber/fiber/v3"
)

// ReportHandler serves downloadable CSV and renderable HTML audit reports.
type ReportHandler struct {
	store port.Store
	csv   port.ReportRenderer
	html  port.ReportRenderer
}

// NewReportHandler creates a new report handler.
func NewReportHandler(store port.Store, csv, html port.ReportRenderer) *ReportHandler {
	return &ReportHandler{store: store, csv: csv, html: html}
}

// Register sets up report routes.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("/report/:auditId", h.CSVReport)
	router.Get("/email-preview/:auditId", h.EmailPreview)
}

// CSVReport returns the run report as a CSV attachment.
func (h *ReportHandler) CSVReport(c fiber.Ctx) error {
	return h.render(c, h.csv, func(run *domain.AuditRun) {
		c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=audit-%s.csv", run.ID))
	})
}

// EmailPreview returns the run report as renderable HTML.
func (h *ReportHandler) EmailPreview(c fiber.Ctx) error {
	return h.render(c, h.html, nil)
}

func (h *ReportHandler) render(c fiber.Ctx, renderer port.ReportRenderer, decorate func(*domain.AuditRun)) error {
	run, issues, err := h.load(c.Context(), c.Params("auditId"))
	if errors.Is(err, port.ErrRunNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	body, err := renderer.Render(run, issues)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", renderer.ContentType())
	if decorate != nil {
		decorate(run)
	}
	return c.Send(body)
}

func (h *ReportHandler) load(ctx context.Context, id string) (*domain.AuditRun, []domain.AuditIssue, error) {
	run, err := h.store.GetRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	issues, err := h.store.ListIssuesByRun(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, issues, nil
}
