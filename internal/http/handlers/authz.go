package handlers

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	applog "vendorpos/internal/log"
)

const deviceKeyHeader = "X-Device-Key"

// RequireDeviceKey checks the X-Device-Key header against a bcrypt hash.
// An empty hash disables the check.
func RequireDeviceKey(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == "" {
			return c.Next()
		}
		key := c.Get(deviceKeyHeader)
		if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			applog.Security(c, "access.denied.device_key", map[string]any{"present": key != ""})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "device key required"})
		}
		return c.Next()
	}
}
