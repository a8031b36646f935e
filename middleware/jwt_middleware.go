package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"emailfinder/utils"
)

// Protected requires a valid bearer token signed with secret. An empty
// secret leaves the API open.
func Protected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Invalid authorization format")
			}
			token = tokenParts[1]
		} else {
			// Fall back to cookie if header not present
			token = c.Cookies("access_token")
			if token == "" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Authorization required")
			}
		}

		claims, err := utils.ParseJWTToken(token, secret)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "unauthorized", "Invalid or expired token")
		}

		c.Locals("client", claims.Subject)
		return c.Next()
	}
}
