package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "totembo/internal/log"
	"totembo/internal/services"
	"totembo/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
	Reviews *services.ReviewService
	Favs    *services.FavouriteService
}

// GET /product/:slug
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		return fiber.ErrNotFound
	}
	d, err := h.Catalog.ProductDetail(slug)
	if errors.Is(err, services.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}
	fav := false
	if u := currentUser(c); u != nil {
		if fav, err = h.Favs.Contains(u.ID, d.Product.ID); err != nil {
			return err
		}
	}
	return render(c, "product", fiber.Map{
		"Title":       d.Product.Title,
		"Detail":      d,
		"IsFavourite": fav,
	})
}

// POST /review/:id
func (h *ProductHandler) SaveReview(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fiber.ErrNotFound
	}
	slug, err := h.Reviews.Save(u.ID, id, c.FormValue("text"))
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.ErrNotFound
	case errors.As(err, &verr):
		for _, m := range verr.Messages {
			setFlash(c, levelError, m)
		}
	case err != nil:
		applog.Error(c, "review.save.fail", err, map[string]any{"product": id})
		return err
	default:
		applog.Audit(c, "review.save", map[string]any{"product": id})
		setFlash(c, levelSuccess, "Спасибо за отзыв!")
	}
	return c.Redirect("/product/" + slug)
}
