package handlers

import (
	"github.com/gofiber/fiber/v2"

	"sellerops/internal/middleware"
	"sellerops/pkg/auth"
)

// Handlers groups everything Register mounts
type Handlers struct {
	Flows  *FlowHandler
	Tasks  *TaskHandler
	Blocks *BlockHandler
	Health *HealthHandler
}

// Register mounts the API. Every /api route requires a session.
func Register(app *fiber.App, h Handlers, tokens *auth.TokenAuth, limits *middleware.RateLimitConfig) {
	app.Get("/health", h.Health.Handle)

	api := app.Group("/api", middleware.SessionMiddleware(tokens))

	flows := api.Group("/flows")
	flows.Post("/validate", h.Flows.Validate)
	flows.Post("/arrange", h.Flows.Arrange)
	flows.Post("/run", h.Flows.Run)

	tasks := api.Group("/tasks")
	tasks.Get("/tree", h.Tasks.Tree)
	tasks.Post("/", h.Tasks.Create)
	tasks.Get("/:id", h.Tasks.Get)
	tasks.Delete("/:id", h.Tasks.Delete)
	tasks.Post("/:id/subtasks", h.Tasks.AddSubtask)
	tasks.Patch("/:id/status", h.Tasks.UpdateStatus)
	tasks.Post("/:id/steps/clear", h.Tasks.ClearSteps)
	tasks.Post("/:id/steps/:index/complete", h.Tasks.CompleteStep)
	tasks.Put("/:id/steps", h.Tasks.RegenerateSteps)

	configs := api.Group("/block-configs")
	configs.Get("/", h.Blocks.ListConfigs)
	configs.Put("/", h.Blocks.UpsertConfig)
	configs.Patch("/functional", h.Blocks.SetFunctional)

	blocks := api.Group("/blocks")
	blocks.Get("/catalog", h.Blocks.Catalog)
	if limits != nil {
		blocks.Post("/dispatch", middleware.DispatchRateLimiter(limits), h.Blocks.Dispatch)
	} else {
		blocks.Post("/dispatch", h.Blocks.Dispatch)
	}
	blocks.Get("/:blockId/executions", h.Blocks.ListExecutions)
}
