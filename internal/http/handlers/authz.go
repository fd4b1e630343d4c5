package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "totembo/internal/log"
	"totembo/internal/services"
)

// AttachUser resolves the "sid" cookie to a user for every request.
func AttachUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := auth.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	}
}

// RequireAdmin answers 403 to anyone but an ADMIN.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil {
			return c.Redirect("/login_registration")
		}
		if !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"user_id": u.ID})
			return c.Status(fiber.StatusForbidden).Render("notfound", page(c, fiber.Map{"Message": "Access denied"}))
		}
		return c.Next()
	}
}

// RequireUser sends anonymous visitors to the login page with msg.
func RequireUser(msg string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			setFlash(c, levelError, msg)
			return c.Redirect("/login_registration")
		}
		return c.Next()
	}
}
