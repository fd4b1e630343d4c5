package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"totembo/internal/domain"
	applog "totembo/internal/log"
	"totembo/internal/services"
	"totembo/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

// GET /cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cart := domain.NewCart(domain.Order{}, nil)
	if u := currentUser(c); u != nil {
		var err error
		if cart, err = h.Cart.Info(u.ID); err != nil {
			return err
		}
	}
	return render(c, "cart", fiber.Map{"Title": "Корзина", "Cart": cart})
}

// POST /to_cart/:id/:action
func (h *CartHandler) ToCart(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fiber.ErrNotFound
	}
	action, ok := validate.Action(c.Params("action"))
	if !ok {
		applog.Security(c, "cart.action.reject", map[string]any{"action": c.Params("action")})
		return fiber.ErrBadRequest
	}
	_, err := h.Cart.Apply(u.ID, id, action)
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.ErrNotFound
	case errors.Is(err, services.ErrOutOfStock):
		setFlash(c, levelError, "Товара нет в наличии.")
	case err != nil:
		applog.Error(c, "cart.update.fail", err, map[string]any{"product": id, "action": action})
		return err
	default:
		applog.Audit(c, "cart."+action, map[string]any{"product": id})
	}
	return c.Redirect("/cart")
}

// POST /clear_cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	n, err := h.Cart.Release(currentUser(c).ID)
	if err != nil {
		applog.Error(c, "cart.clear.fail", err, nil)
		return err
	}
	applog.Audit(c, "cart.clear", map[string]any{"units": n})
	return c.Redirect("/cart")
}

// GET /api/v1/cart
func (h *CartHandler) Summary(c *fiber.Ctx) error {
	cart := domain.NewCart(domain.Order{}, nil)
	if u := currentUser(c); u != nil {
		var err error
		if cart, err = h.Cart.Info(u.ID); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{
		"cart_total_quantity": cart.TotalQuantity,
		"cart_total_price":    cart.TotalPrice.StringFixed(2),
	})
}
