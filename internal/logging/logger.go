package logging

import (
	"log/slog"
	"os"
	"strings"

	"sellerops/internal/models"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	slog.SetDefault(slog.New(newHandler(os.Getenv("ENVIRONMENT"))))
}

func newHandler(env string) slog.Handler {
	if strings.ToLower(env) == "production" {
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
}

// WithTask returns a logger with task context fields attached.
// Use this for all logging about a task's lifecycle.
func WithTask(taskID, userID string) *slog.Logger {
	return slog.With(
		"task_id", taskID,
		"user_id", userID,
	)
}

// WithBlock returns a logger scoped to a single block dispatch.
func WithBlock(logger *slog.Logger, blockID string, category models.Category, name string) *slog.Logger {
	return logger.With(
		"block_id", blockID,
		"block_category", string(category),
		"block_name", name,
	)
}
