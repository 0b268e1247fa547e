package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/utils"
)

// Protected returns a middleware that checks for a valid portal JWT. The
// authenticated user id is stored in Locals and copied onto the correlation
// context so every record written while serving the request carries it.
func Protected(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := GetRequestLogger(c)

		authHeader := c.Get(AuthorizationHeader)
		if authHeader == "" {
			logger.Warn("Missing Authorization header")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			logger.Warn("Invalid Authorization header format")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization format (Bearer token required)",
			})
		}
		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		if tokenString == "" {
			logger.Warn("Empty token string after Bearer prefix")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := utils.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			logger.Warn("Invalid JWT token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(UserIDKey, claims.UserID)
		c.Locals(UserRoleKey, claims.Role)
		if rc := GetRequestContext(c); rc != nil {
			rc.UserID = claims.UserID
		}
		logger.Debug("JWT validated", zap.String("userID", claims.UserID), zap.String("role", claims.Role))

		return c.Next()
	}
}

// RequireAdmin gates the audit deletion path. Runs after Protected.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(UserRoleKey).(string)
		if role != RoleAdmin {
			GetRequestLogger(c).Warn("Non-admin attempted administrative operation",
				zap.String("role", role), zap.String("path", c.Path()))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Administrator role required",
			})
		}
		return c.Next()
	}
}
