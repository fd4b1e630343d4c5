package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"totembo/internal/services"
	"totembo/internal/validate"
)

type InventoryHandler struct {
	Stock *services.StockService
}

// GET /api/v1/availability?product=<slug>
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Query("product"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product"})
	}
	a, err := h.Stock.CheckAvailability(slug)
	if errors.Is(err, services.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown product"})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"product": slug, "status": a.Status, "qty": a.Qty})
}
