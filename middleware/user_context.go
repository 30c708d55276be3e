// middleware/user_context.go — resolves the caller for secured routes
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/petertyt/matchmasterMVP-bolt-v1-sub001/services"
)

// UserContextMiddleware resolves the Bearer token through the auth service
// and attaches the verified identity to the request. Fails closed: any
// verification error yields 401 before a handler runs. Role sufficiency is
// NOT checked here — that is call-specific and lives in the services.
func UserContextMiddleware(authClient *services.AuthServiceClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [USER_CTX] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "not authenticated",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" || token == authHeader {
			log.Printf("🚫 [USER_CTX] Malformed Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "not authenticated",
			})
		}

		resp, err := authClient.ValidateToken(c.UserContext(), token)
		if err != nil {
			log.Printf("❌ [USER_CTX] Token validation failed for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "not authenticated",
			})
		}

		// Attach to ctx for handlers
		c.Locals("user_id", resp.UserID)
		c.Locals("user_role", resp.Role)
		c.Locals("user_name", resp.Username)

		log.Printf("👤 [USER_CTX] UserID=%s, Role=%s | Path: %s", resp.UserID, resp.Role, c.Path())

		return c.Next()
	}
}
