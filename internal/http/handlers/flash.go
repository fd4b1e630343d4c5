package handlers

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
)

const flashCookie = "flash"

const (
	levelSuccess = "success"
	levelError   = "danger"
	levelWarning = "warning"
)

type Flash struct {
	Level string `json:"l"`
	Text  string `json:"t"`
}

// Flashes decodes messages left by earlier responses. They stay in the
// cookie until a page is rendered.
func Flashes() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := c.Cookies(flashCookie); raw != "" {
			var msgs []Flash
			if b, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
				_ = json.Unmarshal(b, &msgs)
			}
			c.Locals("flash.in", msgs)
		}
		return c.Next()
	}
}

func pendingFlashes(c *fiber.Ctx) []Flash {
	if out, ok := c.Locals("flash.out").([]Flash); ok {
		return out
	}
	in, _ := c.Locals("flash.in").([]Flash)
	return in
}

// setFlash queues a message for the next page rendered by this client.
func setFlash(c *fiber.Ctx, level, text string) {
	msgs := append(pendingFlashes(c), Flash{Level: level, Text: text})
	c.Locals("flash.out", msgs)

	b, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   300,
	})
}

// takeFlashes hands every queued message to the page being rendered and
// drops the cookie.
func takeFlashes(c *fiber.Ctx) []Flash {
	msgs := pendingFlashes(c)
	if len(msgs) > 0 {
		c.Locals("flash.out", []Flash{})
		c.Cookie(&fiber.Cookie{Name: flashCookie, Value: "", Path: "/", HTTPOnly: true, Expires: time.Unix(0, 0)})
	}
	return msgs
}
