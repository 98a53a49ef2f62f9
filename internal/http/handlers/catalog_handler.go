package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"vendorpos/internal/domain"
	"vendorpos/internal/services"
	"vendorpos/internal/validate"
)

type CatalogHandler struct {
	Catalog  *services.CatalogService
	VendorID string
}

func (h *CatalogHandler) vendor(c *fiber.Ctx) (string, bool) {
	return validate.ID(c.Query("vendorId", h.VendorID))
}

// GET /api/v1/products?vendorId=&q=
func (h *CatalogHandler) Products(c *fiber.Ctx) error {
	vendorID, ok := h.vendor(c)
	if !ok {
		return badRequest(c, "vendorId", "vendorId is required")
	}
	q := ""
	if raw := strings.TrimSpace(c.Query("q")); raw != "" {
		if q, ok = validate.Q(raw); !ok {
			return badRequest(c, "q", "enter a valid keyword")
		}
	}
	products, err := h.Catalog.ListProducts(c.UserContext(), vendorID, q)
	if err != nil {
		return fail(c, "products.list.fail", err, nil)
	}
	return c.JSON(products)
}

// GET /api/v1/products/barcode/:code
func (h *CatalogHandler) ByBarcode(c *fiber.Ctx) error {
	code, ok := validate.Barcode(c.Params("code"))
	if !ok {
		return badRequest(c, "code", "invalid barcode")
	}
	vendorID, _ := h.vendor(c)
	p, err := h.Catalog.ProductByBarcode(c.UserContext(), vendorID, code)
	if err != nil {
		return fail(c, "products.barcode.fail", err, map[string]any{"barcode": code})
	}
	return c.JSON(p)
}

// POST /api/v1/products and PUT /api/v1/products/:id
func (h *CatalogHandler) SaveProduct(c *fiber.Ctx) error {
	var p domain.Product
	if err := c.BodyParser(&p); err != nil {
		return badRequest(c, "body", "malformed product")
	}
	if id := c.Params("id"); id != "" {
		p.ID = id
	}
	if _, ok := validate.ID(p.ID); !ok {
		return badRequest(c, "id", "invalid product id")
	}
	if p.VendorID == "" {
		p.VendorID = h.VendorID
	}
	op, err := h.Catalog.SaveProduct(c.UserContext(), p)
	if err != nil {
		return fail(c, "products.save.fail", err, map[string]any{"product_id": p.ID})
	}
	status := fiber.StatusOK
	if op == domain.OpCreate {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"id": p.ID, "queued": op})
}

// DELETE /api/v1/products/:id
func (h *CatalogHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid product id")
	}
	if err := h.Catalog.DeleteProduct(c.UserContext(), id); err != nil {
		return fail(c, "products.delete.fail", err, map[string]any{"product_id": id})
	}
	return c.JSON(fiber.Map{"id": id, "queued": domain.OpDelete})
}

// GET /api/v1/customers?vendorId=
func (h *CatalogHandler) Customers(c *fiber.Ctx) error {
	vendorID, ok := h.vendor(c)
	if !ok {
		return badRequest(c, "vendorId", "vendorId is required")
	}
	customers, err := h.Catalog.ListCustomers(c.UserContext(), vendorID)
	if err != nil {
		return fail(c, "customers.list.fail", err, nil)
	}
	return c.JSON(customers)
}

// POST /api/v1/customers and PUT /api/v1/customers/:id
func (h *CatalogHandler) SaveCustomer(c *fiber.Ctx) error {
	var cu domain.Customer
	if err := c.BodyParser(&cu); err != nil {
		return badRequest(c, "body", "malformed customer")
	}
	if id := c.Params("id"); id != "" {
		cu.ID = id
	}
	if _, ok := validate.ID(cu.ID); !ok {
		return badRequest(c, "id", "invalid customer id")
	}
	if cu.VendorID == "" {
		cu.VendorID = h.VendorID
	}
	op, err := h.Catalog.SaveCustomer(c.UserContext(), cu)
	if err != nil {
		return fail(c, "customers.save.fail", err, map[string]any{"customer_id": cu.ID})
	}
	status := fiber.StatusOK
	if op == domain.OpCreate {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"id": cu.ID, "queued": op})
}
