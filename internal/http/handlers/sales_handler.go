package handlers

import (
	"github.com/gofiber/fiber/v2"

	"vendorpos/internal/domain"
	"vendorpos/internal/services"
)

type SalesHandler struct {
	Sales    *services.SalesService
	VendorID string
}

// POST /api/v1/sales
func (h *SalesHandler) Create(c *fiber.Ctx) error {
	var sale domain.Sale
	if err := c.BodyParser(&sale); err != nil {
		return badRequest(c, "body", "malformed sale")
	}
	if sale.VendorID == "" {
		sale.VendorID = h.VendorID
	}
	saved, err := h.Sales.Record(c.UserContext(), sale)
	if err != nil {
		return fail(c, "sale.record.fail", err, map[string]any{"sale_id": sale.ID})
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

// GET /api/v1/sales/pending
func (h *SalesHandler) Pending(c *fiber.Ctx) error {
	sales, err := h.Sales.Pending(c.UserContext())
	if err != nil {
		return fail(c, "sale.pending.fail", err, nil)
	}
	return c.JSON(sales)
}
