package handlers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"totembo/internal/config"
	applog "totembo/internal/log"
	"totembo/internal/metrics"
	"totembo/internal/payment"
	"totembo/internal/telemetry"
)

// Limits are per-IP request budgets.
type Limits struct {
	Global       int // per minute, all pages
	Login        int // per 10 minutes
	Availability int // per 30 seconds
	Search       int // per minute
}

func DefaultLimits() Limits {
	return Limits{Global: 120, Login: 5, Availability: 15, Search: 20}
}

type Options struct {
	// Provider defaults to the sandbox when nil.
	Provider payment.Provider
	// Storage backs limiters and CSRF tokens; nil keeps them in memory.
	Storage fiber.Storage
	Metrics *metrics.Metrics
	Limits  Limits
	// Deps lets the caller share services with background jobs; nil builds them here.
	Deps *Deps
}

// NewEngine loads the HTML templates under dir.
func NewEngine(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("money", func(d decimal.Decimal) string { return d.StringFixed(2) })
	return engine
}

// ErrorHandler renders a generic page and never exposes error details.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	if fe, ok := err.(*fiber.Error); ok && fe.Code < 500 {
		code = fe.Code
		msg = "Page not found"
		if code != fiber.StatusNotFound {
			msg = "Request could not be processed."
		}
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	// Avoid leaking internals; best-effort render
	if rerr := c.Status(code).Render("notfound", page(c, fiber.Map{"Message": msg})); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// New wires middleware, services and routes into a Fiber app.
func New(cfg config.Config, db *sqlx.DB, opts Options) *fiber.App {
	if opts.Provider == nil {
		opts.Provider = payment.SandboxProvider{}
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	deps := opts.Deps
	if deps == nil {
		deps = NewDeps(db, cfg, opts.Provider, opts.Metrics)
	}

	app := fiber.New(fiber.Config{
		Views:        NewEngine(cfg.TemplatesDir),
		ErrorHandler: ErrorHandler,
		BodyLimit:    1 << 20, // 1 MiB
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(opts.Metrics.Middleware())
	app.Use(telemetry.Middleware())
	app.Use(AttachUser(deps.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        opts.Limits.Global,
		Expiration: time.Minute,
		Storage:    opts.Storage,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/media/") || p == "/healthz"
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		Storage:        opts.Storage,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"reason": err.Error()})
			return c.Status(fiber.StatusForbidden).Render("notfound", page(c, fiber.Map{"Message": "Security check failed. Please refresh and try again."}))
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
	app.Use(Flashes())

	// ---------- Static assets ----------
	mediaDir := cfg.MediaDir
	if !filepath.IsAbs(mediaDir) {
		if abs, err := filepath.Abs(mediaDir); err == nil {
			mediaDir = abs
		}
	}
	app.Static("/static", cfg.StaticDir)
	app.Get("/media/*", serveMedia(mediaDir))

	// ---------- Catalog ----------
	app.Get("/", deps.Category.Home)
	app.Get("/category/:slug", deps.Category.List)
	app.Get("/product/:slug", deps.Product.Detail)
	app.Post("/review/:id", RequireUser("Войдите, чтобы оставить отзыв."), deps.Product.SaveReview)
	app.Get("/search", limiter.New(limiter.Config{
		Max:          opts.Limits.Search,
		Expiration:   time.Minute,
		Storage:      opts.Storage,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() + "|search" },
	}), deps.Search.Search)

	// ---------- Auth ----------
	app.Get("/login_registration", deps.AuthH.Page)
	app.Post("/login", limiter.New(limiter.Config{
		Max:          opts.Limits.Login,
		Expiration:   10 * time.Minute,
		Storage:      opts.Storage,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() + "|login" },
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login_register", page(c, fiber.Map{"Err": "Слишком много попыток. Попробуйте позже."}))
		},
	}), deps.AuthH.Login)
	app.Post("/register", deps.AuthH.Register)
	app.Post("/logout", deps.AuthH.Logout)

	// ---------- Favourites ----------
	app.Post("/favourite/:slug", deps.Favourite.Toggle)
	app.Get("/favourites", RequireUser("Войдите, чтобы увидеть избранное."), deps.Favourite.List)

	// ---------- Cart & checkout ----------
	app.Get("/cart", deps.Cart.View)
	app.Post("/to_cart/:id/:action", RequireUser("Авторизуйтесь что бы совершить покупку!"), deps.Cart.ToCart)
	app.Post("/clear_cart", RequireUser("Авторизуйтесь что бы совершить покупку!"), deps.Cart.Clear)
	app.Get("/checkout", RequireUser("Авторизуйтесь что бы совершить покупку!"), deps.Checkout.Page)
	app.Post("/checkout/session", RequireUser("Авторизуйтесь что бы совершить покупку!"), deps.Checkout.CreateSession)
	app.Get("/payment/success", deps.Checkout.Success)

	// ---------- Account ----------
	app.Get("/profile", RequireUser("Войдите в аккаунт."), deps.Order.Profile)
	app.Get("/order/:id", RequireUser("Войдите в аккаунт."), deps.Order.View)

	// ---------- API ----------
	api := app.Group("/api/v1")
	api.Get("/availability", limiter.New(limiter.Config{
		Max:        opts.Limits.Availability,
		Expiration: 30 * time.Second,
		Storage:    opts.Storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}), deps.Inventory.Check)
	api.Get("/cart", deps.Cart.Summary)

	// ---------- Admin ----------
	admin := app.Group("/admin", RequireAdmin())
	admin.Get("/", deps.Admin.Dashboard)
	admin.Get("/orders", deps.Admin.OrdersPage)
	admin.Post("/orders/:id/status", deps.Admin.UpdateOrderStatus)
	admin.Get("/stock", deps.Admin.StockPage)
	admin.Post("/stock", deps.Admin.UpdateStock)
	admin.Get("/users", deps.Admin.UsersPage)
	admin.Post("/users/:id/delete", deps.Admin.DeleteUser)
	admin.Get("/products.xlsx", deps.Admin.ExportProducts)

	// ---------- Health, metrics & 404 ----------
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	if opts.Metrics != nil {
		app.Get("/metrics", opts.Metrics.Handler())
	}
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).Render("notfound", page(c, fiber.Map{"Message": "Page not found"}))
	})

	return app
}

// serveMedia serves uploaded images while refusing path traversal.
func serveMedia(mediaDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Params("*")
		rawLower := strings.ToLower(path)
		// Block encoded traversal attempts as well as raw .. or null bytes
		if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		clean := filepath.Clean(path)
		if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendFile(filepath.Join(mediaDir, clean), true)
	}
}
