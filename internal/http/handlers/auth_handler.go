package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"totembo/internal/log"
	"totembo/internal/services"
	"totembo/internal/validate"
)

type AuthHandler struct {
	Auth         *services.AuthService
	SecureCookie bool
}

func (h *AuthHandler) ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   h.SecureCookie,
		})
	}
	return sid
}

// GET /login_registration
func (h *AuthHandler) Page(c *fiber.Ctx) error {
	return render(c, "login_register", fiber.Map{"Title": "Вход и регистрация", "Err": ""})
}

// POST /login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	username := c.FormValue("username")
	pass := c.FormValue("password")
	if _, ok := validate.Username(username); !ok || pass == "" {
		log.Security(c, "auth.login.fail", map[string]any{"username": username, "reason": "bad_format"})
		setFlash(c, levelError, "Что-то пошло не так!")
		return c.Status(fiber.StatusUnauthorized).Render("login_register", page(c, fiber.Map{"Err": ""}))
	}

	// A fresh session id on every login.
	sid := uuid.NewString()
	if _, err := h.Auth.Login(sid, username, pass); err != nil {
		if !errors.Is(err, services.ErrBadCreds) {
			log.Error(c, "auth.login.error", err, nil)
		}
		log.Security(c, "auth.login.fail", map[string]any{"username": username})
		setFlash(c, levelError, "Что-то пошло не так!")
		return c.Status(fiber.StatusUnauthorized).Render("login_register", page(c, fiber.Map{"Err": ""}))
	}
	if old := c.Cookies("sid"); old != "" {
		_ = h.Auth.Logout(old)
	}
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.SecureCookie,
	})

	log.Audit(c, "auth.login.success", map[string]any{"username": username})
	setFlash(c, levelSuccess, "Вы вошли в аккаунт!")
	return c.Redirect("/")
}

// POST /register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	u, err := h.Auth.Register(c.FormValue("username"), c.FormValue("email"), c.FormValue("password1"), c.FormValue("password2"))
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		for _, m := range verr.Messages {
			setFlash(c, levelError, m)
		}
		return c.Redirect("/login_registration")
	case errors.Is(err, services.ErrUsernameTaken):
		setFlash(c, levelError, "Пользователь с таким именем уже существует.")
		return c.Redirect("/login_registration")
	case err != nil:
		log.Error(c, "auth.register.error", err, nil)
		return err
	}
	log.Audit(c, "auth.register", map[string]any{"user_id": u.ID, "username": u.Username})
	setFlash(c, levelSuccess, "Регистрация прошла успешно!")
	return c.Redirect("/")
}

// POST /logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := h.ensureSID(c)
	_ = h.Auth.Logout(sid)
	// Expire cookie
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.SecureCookie,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", nil)
	setFlash(c, levelWarning, "Уже уходите ??")
	return c.Redirect("/login_registration")
}
