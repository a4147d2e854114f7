package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellerops/pkg/auth"
)

func newApp(t *testing.T, tokens *auth.TokenAuth, limits *RateLimitConfig) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(SessionMiddleware(tokens))
	if limits != nil {
		app.Use(DispatchRateLimiter(limits))
	}
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(Session(c).UserID)
	})
	return app
}

func TestSessionMiddleware(t *testing.T) {
	tokens, err := auth.NewTokenAuth("secret", time.Minute)
	require.NoError(t, err)
	app := newApp(t, tokens, nil)

	token, err := tokens.IssueAccessToken("seller-1", "seller@example.com", "user")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "seller-1", string(body))

	for _, header := range []string{"", "Bearer nope", "Token " + token} {
		req := httptest.NewRequest("GET", "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, header)
	}
}

func TestDispatchRateLimiter_PerUser(t *testing.T) {
	tokens, err := auth.NewTokenAuth("secret", time.Minute)
	require.NoError(t, err)
	app := newApp(t, tokens, NewRateLimitConfig(100, 2, false))

	call := func(userID string) int {
		token, err := tokens.IssueAccessToken(userID, "", "user")
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, call("a"))
	assert.Equal(t, fiber.StatusOK, call("a"))
	assert.Equal(t, fiber.StatusTooManyRequests, call("a"))
	assert.Equal(t, fiber.StatusOK, call("b"))
}
