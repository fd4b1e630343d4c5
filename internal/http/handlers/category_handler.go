package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "totembo/internal/log"
	"totembo/internal/services"
	"totembo/internal/validate"
)

type CategoryHandler struct {
	Catalog *services.CatalogService
}

// GET /
func (h *CategoryHandler) Home(c *fiber.Ctx) error {
	cats, err := h.Catalog.Home()
	if err != nil {
		return err
	}
	return render(c, "home", fiber.Map{"Categories": cats})
}

// GET /category/:slug?sort=&type=&page=
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		return fiber.ErrNotFound
	}
	if s := c.Query("sort"); s != "" {
		if _, ok := validate.Sort(s); !ok {
			applog.Security(c, "input.sort.reject", map[string]any{"sort": s})
		}
	}
	p, err := h.Catalog.CategoryPage(slug, c.Query("sort"), c.Query("type"), validate.Page(c.Query("page")))
	if errors.Is(err, services.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}
	return render(c, "category", fiber.Map{"Title": p.Category.Title, "Page": p})
}
