package handler

import (
	"encoding/json"
	"errors"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/adapter/store"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// RecordsHandler handles the audited record set: listing, lookup, and ingest.
type RecordsHandler struct {
	store    *store.PostgresStore
	validate *validator.Validate
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(store *store.PostgresStore) *RecordsHandler {
	return &RecordsHandler{store: store, validate: validator.New()}
}

// Register sets up record routes.
func (h *RecordsHandler) Register(router fiber.Router) {
	records := router.Group("/records")
	records.Get("/", h.List)
	records.Get("/:id", h.Get)
	records.Put("/:id", h.Upsert)
}

// List returns every audited record.
func (h *RecordsHandler) List(c fiber.Ctx) error {
	records, err := h.store.ListRecords(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if records == nil {
		records = []domain.Record{}
	}
	return c.JSON(fiber.Map{"records": records, "count": len(records)})
}

// Get returns one record by ID.
func (h *RecordsHandler) Get(c fiber.Ctx) error {
	record, err := h.store.GetRecord(c.Context(), c.Params("id"))
	if errors.Is(err, port.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"record": record})
}

type upsertRecordRequest struct {
	EntityType string         `json:"entity_type" validate:"required"`
	Fields     map[string]any `json:"fields"      validate:"required"`
}

// Upsert inserts or replaces an audited record.
func (h *RecordsHandler) Upsert(c fiber.Ctx) error {
	var body upsertRecordRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	fields, err := json.Marshal(body.Fields)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid fields document"})
	}

	record, err := h.store.UpsertRecord(c.Context(), &domain.Record{
		ID:         c.Params("id"),
		EntityType: body.EntityType,
		Fields:     fields,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"record": record})
}
