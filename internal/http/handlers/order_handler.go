package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	"totembo/internal/domain"
	applog "totembo/internal/log"
	"totembo/internal/repos"
	"totembo/internal/services"
	"totembo/internal/validate"
)

type OrderHandler struct {
	Orders    *services.OrderService
	Customers *repos.CustomerRepo
}

// GET /profile
func (h *OrderHandler) Profile(c *fiber.Ctx) error {
	u := currentUser(c)
	orders, err := h.Orders.History(u.ID)
	if err != nil {
		return err
	}
	cust, err := h.Customers.ByUser(u.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return render(c, "profile", fiber.Map{
		"Title":    "Личный кабинет",
		"Customer": cust,
		"Orders":   orders,
	})
}

// GET /order/:id is visible to its owner and admins only. Others get the
// same 404 as for a missing order.
func (h *OrderHandler) View(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fiber.ErrNotFound
	}
	d, err := h.Orders.Detail(id, u)
	if errors.Is(err, services.ErrForbidden) {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": id})
		return fiber.ErrNotFound
	}
	if errors.Is(err, services.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}
	return render(c, "order", fiber.Map{
		"Title":   "Заказ",
		"Order":   d,
		"IsOpen":  d.Order.Status == domain.OrderOpen,
		"IsAdmin": u.IsAdmin(),
	})
}
