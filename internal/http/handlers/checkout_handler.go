package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "totembo/internal/log"
	"totembo/internal/payment"
	"totembo/internal/services"
)

type CheckoutHandler struct {
	Checkout *services.CheckoutService
}

// GET /checkout
func (h *CheckoutHandler) Page(c *fiber.Ctx) error {
	v, err := h.Checkout.Checkout(currentUser(c).ID)
	if err != nil {
		return err
	}
	if v.Cart.Empty() {
		setFlash(c, levelWarning, "Корзина пуста.")
		return c.Redirect("/cart")
	}
	return render(c, "checkout", fiber.Map{"Title": "Оформление заказа", "View": v})
}

// POST /checkout/session stores the delivery details and hands the
// customer over to the payment page.
func (h *CheckoutHandler) CreateSession(c *fiber.Ctx) error {
	form := services.CheckoutForm{
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
		Address:   c.FormValue("address"),
		City:      c.FormValue("city"),
		Region:    c.FormValue("region"),
		Phone:     c.FormValue("phone"),
	}
	url, err := h.Checkout.CreateSession(c.UserContext(), currentUser(c).ID, form)
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		for _, m := range verr.Messages {
			setFlash(c, levelError, m)
		}
		return c.Redirect("/checkout")
	case errors.Is(err, services.ErrEmptyCart):
		setFlash(c, levelWarning, "Корзина пуста.")
		return c.Redirect("/cart")
	case errors.Is(err, payment.ErrProvider):
		applog.Error(c, "checkout.session.fail", err, nil)
		setFlash(c, levelError, "Платёжный сервис недоступен, попробуйте позже.")
		return c.Redirect("/checkout")
	case err != nil:
		applog.Error(c, "checkout.session.fail", err, nil)
		return err
	}
	applog.Audit(c, "checkout.session", nil)
	return c.Redirect(url, fiber.StatusSeeOther)
}

// GET /payment/success?token=
func (h *CheckoutHandler) Success(c *fiber.Ctx) error {
	orderID, err := h.Checkout.ConfirmPayment(c.UserContext(), c.Query("token"))
	switch {
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrOrderState),
		errors.Is(err, services.ErrNotPaid):
		applog.Security(c, "payment.confirm.reject", map[string]any{"reason": err.Error()})
		setFlash(c, levelError, "Не удалось подтвердить оплату.")
		return c.Redirect("/")
	case errors.Is(err, payment.ErrProvider):
		applog.Error(c, "payment.confirm.provider", err, nil)
		setFlash(c, levelError, "Платёжный сервис недоступен, попробуйте позже.")
		return c.Redirect("/")
	case err != nil:
		applog.Error(c, "payment.confirm.fail", err, nil)
		return err
	}
	applog.Audit(c, "payment.confirm", map[string]any{"order_id": orderID})
	setFlash(c, levelSuccess, "Оплата прошла успешно")
	return c.Redirect("/")
}
