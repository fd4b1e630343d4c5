package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "totembo/internal/log"
	"totembo/internal/services"
	"totembo/internal/validate"
)

type FavouriteHandler struct {
	Favs *services.FavouriteService
}

// POST /favourite/:slug toggles the product; anonymous visitors are sent back.
func (h *FavouriteHandler) Toggle(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil {
		return c.Redirect(back(c, "/"))
	}
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		return fiber.ErrNotFound
	}
	added, err := h.Favs.Toggle(u.ID, slug)
	if errors.Is(err, services.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}
	applog.Info(c, "favourite.toggle", map[string]any{"product": slug, "added": added})
	return c.Redirect(back(c, "/product/"+slug))
}

// GET /favourites
func (h *FavouriteHandler) List(c *fiber.Ctx) error {
	items, err := h.Favs.List(currentUser(c).ID)
	if err != nil {
		return err
	}
	return render(c, "favourites", fiber.Map{"Title": "Избранное", "Products": items})
}
