package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sellerops/internal/catalog"
	"sellerops/internal/dispatch"
	"sellerops/internal/middleware"
	"sellerops/internal/models"
	"sellerops/internal/services"
	"sellerops/internal/store"
)

// BlockHandler handles block catalog, configuration and dispatch endpoints
type BlockHandler struct {
	configs    *services.BlockConfigService
	dispatcher *dispatch.Dispatcher
	records    store.ExecutionStore
}

// NewBlockHandler creates a new block handler
func NewBlockHandler(configs *services.BlockConfigService, dispatcher *dispatch.Dispatcher, records store.ExecutionStore) *BlockHandler {
	return &BlockHandler{configs: configs, dispatcher: dispatcher, records: records}
}

// Catalog lists every category and its options
// GET /api/blocks/catalog
func (h *BlockHandler) Catalog(c *fiber.Ctx) error {
	type categoryInfo struct {
		Category models.Category `json:"category"`
		Options  []string        `json:"options"`
	}

	out := make([]categoryInfo, 0, len(catalog.Categories()))
	for _, cat := range catalog.Categories() {
		out = append(out, categoryInfo{Category: cat, Options: catalog.OptionsFor(cat)})
	}
	return c.JSON(fiber.Map{"categories": out})
}

// ListConfigs returns the session user's block configurations
// GET /api/block-configs?category=
func (h *BlockHandler) ListConfigs(c *fiber.Ctx) error {
	var category models.Category
	if q := c.Query("category"); q != "" {
		parsed, ok := catalog.ParseCategory(q)
		if !ok {
			return badRequest(c, "unknown category: "+q)
		}
		category = parsed
	}

	configs, err := h.configs.List(c.Context(), middleware.Session(c), category)
	if err != nil {
		return respondError(c, err)
	}
	if configs == nil {
		configs = []models.BlockConfiguration{}
	}
	return c.JSON(fiber.Map{"configs": configs})
}

// UpsertConfig validates and saves a block configuration
// PUT /api/block-configs
func (h *BlockHandler) UpsertConfig(c *fiber.Ctx) error {
	var input services.BlockConfigInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	cfg, err := h.configs.Upsert(c.Context(), middleware.Session(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cfg)
}

// SetFunctional toggles real execution for a block
// PATCH /api/block-configs/functional
func (h *BlockHandler) SetFunctional(c *fiber.Ctx) error {
	var req struct {
		Category     models.Category `json:"category"`
		Name         string          `json:"name"`
		BlockID      string          `json:"blockId"`
		IsFunctional bool            `json:"isFunctional"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	cfg, err := h.configs.SetFunctional(c.Context(), middleware.Session(c), req.Category, req.Name, req.BlockID, req.IsFunctional)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cfg)
}

// Dispatch runs one block in demo or functional mode
// POST /api/blocks/dispatch
func (h *BlockHandler) Dispatch(c *fiber.Ctx) error {
	var req dispatch.Request
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if !req.Category.Valid() {
		return badRequest(c, "unknown block category: "+string(req.Category))
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}

	return c.JSON(h.dispatcher.Dispatch(c.Context(), middleware.Session(c), req))
}

// ListExecutions returns recent execution records for a block
// GET /api/blocks/:blockId/executions?limit=
func (h *BlockHandler) ListExecutions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	records, err := h.records.ListExecutionRecords(c.Context(), middleware.Session(c), c.Params("blockId"), limit)
	if err != nil {
		return respondError(c, err)
	}
	if records == nil {
		records = []models.ExecutionRecord{}
	}
	return c.JSON(fiber.Map{"executions": records})
}
