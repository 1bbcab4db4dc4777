package middleware

import (
	"crypto/subtle"
	"strings"

	"object-storage-api/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/kerimovok/go-pkg-utils/httpx"
)

// RequireAPIKey authenticates requests against the configured shared
// secret. The key is accepted from the x-api-key header or as a bearer
// token in the Authorization header.
func RequireAPIKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("x-api-key")
		if key == "" {
			auth := c.Get(fiber.HeaderAuthorization)
			if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
				key = auth[7:]
			}
		}

		expected := config.APIKey()
		if key == "" || expected == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			response := httpx.Unauthorized("Invalid or missing API key")
			return httpx.SendResponse(c, response)
		}

		return c.Next()
	}
}
