package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"sellerops/internal/flow"
	"sellerops/internal/services"
	"sellerops/internal/session"
	"sellerops/internal/store"
)

// respondError maps service and domain errors onto HTTP status codes
func respondError(c *fiber.Ctx, err error) error {
	var (
		dangling   *flow.DanglingReferenceError
		flowErr    *flow.ValidationError
		optionErr  *flow.InvalidOptionError
		stepErr    *flow.InvalidStepError
		serviceErr *services.ValidationError
	)

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNoSession):
		status = fiber.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.As(err, &dangling):
		status = fiber.StatusConflict
	case errors.As(err, &flowErr), errors.As(err, &optionErr), errors.As(err, &stepErr), errors.As(err, &serviceErr),
		errors.Is(err, flow.ErrUnknownCategory), errors.Is(err, flow.ErrBlockNotFound), errors.Is(err, flow.ErrStepNotFound):
		status = fiber.StatusBadRequest
	}

	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [API] %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}
