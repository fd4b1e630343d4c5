package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "totembo/internal/log"
	"totembo/internal/services"
	"totembo/internal/validate"
)

type SearchHandler struct {
	Catalog *services.CatalogService
}

// GET /search?q=
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	raw := c.Query("q")
	q, ok := validate.Q(raw)
	if !ok && strings.TrimSpace(raw) != "" {
		applog.Security(c, "input.search.reject", map[string]any{"len": len(raw)})
	}
	results, err := h.Catalog.Search(raw)
	if err != nil {
		return err
	}
	return render(c, "search", fiber.Map{"Title": "Поиск", "Q": q, "Products": results})
}
