package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"sellerops/internal/session"
	"sellerops/pkg/auth"
)

const sessionKey = "session"

// SessionMiddleware verifies the bearer token and attaches a session.Context
// to the request. Requests without a valid token are rejected.
func SessionMiddleware(tokens *auth.TokenAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ExtractToken(c.Get("Authorization"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid authorization token",
			})
		}

		user, err := tokens.VerifyAccessToken(token)
		if err != nil {
			log.Printf("❌ [AUTH] Token rejected: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		sess, err := session.New(user.ID, user.Email, user.Role)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(sessionKey, sess)
		c.Locals("user_id", user.ID)
		return c.Next()
	}
}

// Session returns the session attached by SessionMiddleware, or the zero
// Context when none is present
func Session(c *fiber.Ctx) session.Context {
	sess, _ := c.Locals(sessionKey).(session.Context)
	return sess
}
