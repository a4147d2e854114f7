package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"sellerops/internal/middleware"
	"sellerops/internal/models"
	"sellerops/internal/services"
	"sellerops/internal/store"
)

// TaskHandler handles task tree and step tracking endpoints
type TaskHandler struct {
	tasks *services.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Tree returns the session user's tasks as a forest
// GET /api/tasks/tree?status=
func (h *TaskHandler) Tree(c *fiber.Ctx) error {
	var filter store.TaskFilter
	if s := c.Query("status"); s != "" {
		status := models.TaskStatus(s)
		if !status.Valid() {
			return badRequest(c, "unknown status: "+s)
		}
		filter.Status = status
	}
	if t := c.Query("type"); t != "" {
		filter.TaskType = models.TaskType(t)
	}

	tree, err := h.tasks.Tree(c.Context(), middleware.Session(c), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tasks": tree})
}

// Get returns one task
// GET /api/tasks/:id
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	task, err := h.tasks.Get(c.Context(), middleware.Session(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

// Create creates a manual root task
// POST /api/tasks
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	var input services.TaskInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	task, err := h.tasks.CreateTask(c.Context(), middleware.Session(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// AddSubtask nests a task under :id
// POST /api/tasks/:id/subtasks
func (h *TaskHandler) AddSubtask(c *fiber.Ctx) error {
	var input services.TaskInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	task, err := h.tasks.AddSubtask(c.Context(), middleware.Session(c), c.Params("id"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// UpdateStatus moves a task to a new status
// PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *fiber.Ctx) error {
	var req struct {
		Status models.TaskStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	task, err := h.tasks.UpdateStatus(c.Context(), middleware.Session(c), c.Params("id"), req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

// Delete removes a task and its subtasks
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	if err := h.tasks.Delete(c.Context(), middleware.Session(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CompleteStep marks a flow step completed
// POST /api/tasks/:id/steps/:index/complete
func (h *TaskHandler) CompleteStep(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return badRequest(c, "step index must be an integer")
	}

	var req struct {
		Note string `json:"note"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	task, err := h.tasks.CompleteStep(c.Context(), middleware.Session(c), c.Params("id"), index, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

// ClearSteps resets the completed step set
// POST /api/tasks/:id/steps/clear
func (h *TaskHandler) ClearSteps(c *fiber.Ctx) error {
	task, err := h.tasks.ClearCompletions(c.Context(), middleware.Session(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}

// RegenerateSteps replaces a flow task's steps and blocks
// PUT /api/tasks/:id/steps
func (h *TaskHandler) RegenerateSteps(c *fiber.Ctx) error {
	var req struct {
		Steps  []models.Step  `json:"steps"`
		Blocks []models.Block `json:"blocks"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	task, err := h.tasks.RegenerateFlowSteps(c.Context(), middleware.Session(c), c.Params("id"), req.Steps, req.Blocks)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(task)
}
