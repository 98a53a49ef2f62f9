package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "vendorpos/internal/log"
	"vendorpos/internal/repos"
	"vendorpos/internal/services"
	"vendorpos/internal/validate"
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	return c.Render(tmpl, data)
}

// fail maps service errors to a JSON error without leaking internals.
func fail(c *fiber.Ctx, action string, err error, fields map[string]any) error {
	switch {
	case errors.Is(err, validate.ErrInvalid):
		applog.Security(c, "validation.fail", map[string]any{"action": action, "detail": err.Error()})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, repos.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, repos.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already exists"})
	case errors.Is(err, services.ErrNotInitialized):
		applog.Warn(c, action, err, fields)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "offline mode is disabled on this device"})
	}
	applog.Error(c, action, err, fields)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Something went wrong. Please try again."})
}

func badRequest(c *fiber.Ctx, field, msg string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
