package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"totembo/internal/domain"
)

// page fills the keys every template reads so none of them renders as "<no value>".
func page(c *fiber.Ctx, data fiber.Map) fiber.Map {
	if data == nil {
		data = fiber.Map{}
	}
	data["User"] = nil
	if u := currentUser(c); u != nil {
		data["User"] = u
	}
	tok, _ := c.Locals("CSRFToken").(string)
	data["CSRFToken"] = tok
	data["Flashes"] = takeFlashes(c)
	if _, ok := data["Title"]; !ok {
		data["Title"] = "TOTEMBO"
	}
	return data
}

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	return c.Render(tmpl, page(c, data))
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

// back returns the local part of the Referer, or fallback when it is
// missing or points elsewhere.
func back(c *fiber.Ctx, fallback string) string {
	ref := c.Get(fiber.HeaderReferer)
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Hostname()) {
		return fallback
	}
	if u.Path == "" || u.Path[0] != '/' || (len(u.Path) > 1 && u.Path[1] == '/') {
		return fallback
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}
