package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sellerops/internal/canvas"
	"sellerops/internal/flow"
	"sellerops/internal/middleware"
	"sellerops/internal/models"
	"sellerops/internal/services"
)

// FlowHandler handles flow authoring and run endpoints
type FlowHandler struct {
	tasks *services.TaskService
}

// NewFlowHandler creates a new flow handler
func NewFlowHandler(tasks *services.TaskService) *FlowHandler {
	return &FlowHandler{tasks: tasks}
}

// RunFlowRequest starts one run of a flow
type RunFlowRequest struct {
	Flow    models.Flow    `json:"flow"`
	Trigger models.Trigger `json:"trigger,omitempty"`
}

// Validate checks a flow without persisting anything
// POST /api/flows/validate
func (h *FlowHandler) Validate(c *fiber.Ctx) error {
	var f models.Flow
	if err := c.BodyParser(&f); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := flow.Validate(f); err != nil {
		return c.JSON(fiber.Map{"valid": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"valid": true})
}

// Arrange lays the flow's steps out on the canvas grid
// POST /api/flows/arrange
func (h *FlowHandler) Arrange(c *fiber.Ctx) error {
	var f models.Flow
	if err := c.BodyParser(&f); err != nil {
		return badRequest(c, "Invalid request body")
	}

	arranged := f.Clone()
	arranged.Steps = canvas.AutoArrange(f.Steps)
	return c.JSON(fiber.Map{
		"flow":        arranged,
		"connections": canvas.Connections(arranged.Steps),
	})
}

// Run creates the root task for a flow run
// POST /api/flows/run
func (h *FlowHandler) Run(c *fiber.Ctx) error {
	var req RunFlowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	task, err := h.tasks.RunFlow(c.Context(), middleware.Session(c), req.Flow, req.Trigger)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}
