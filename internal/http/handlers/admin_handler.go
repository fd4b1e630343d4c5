package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tealeg/xlsx"

	"totembo/internal/domain"
	applog "totembo/internal/log"
	"totembo/internal/repos"
	"totembo/internal/services"
	"totembo/internal/validate"
)

type AdminHandler struct {
	Orders *services.OrderService
	Stock  *services.StockService
	Users  *repos.UserRepo
	Prods  *repos.ProductRepo
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	return render(c, "admin_dashboard", fiber.Map{"Title": "Admin"})
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	ords, err := h.Orders.Latest(100)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return c.Status(500).Render("notfound", page(c, fiber.Map{"Message": "Could not load orders"}))
	}
	return render(c, "admin_orders", fiber.Map{
		"Title":    "Orders",
		"Orders":   ords,
		"Statuses": []string{domain.OrderPaid, domain.OrderShipped, domain.OrderCanceled},
	})
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	status := c.FormValue("status")
	if !ok || status == "" {
		return c.Status(400).SendString("missing id or status")
	}
	if err := h.Orders.UpdateStatus(id, status); err != nil {
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id, "status": status})
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(404).SendString("order not found")
		}
		return c.Status(400).SendString("could not update status")
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": status})
	return c.Redirect("/admin/orders")
}

// GET /admin/stock
func (h *AdminHandler) StockPage(c *fiber.Ctx) error {
	rows, err := h.Stock.Levels()
	if err != nil {
		applog.Error(c, "admin.stock.list.fail", err, nil)
		return c.Status(500).Render("notfound", page(c, fiber.Map{"Message": "Could not load stock"}))
	}
	return render(c, "admin_stock", fiber.Map{"Title": "Stock", "Products": rows})
}

// POST /admin/stock
func (h *AdminHandler) UpdateStock(c *fiber.Ctx) error {
	pid := c.FormValue("product_id")
	qty, err := strconv.Atoi(c.FormValue("qty"))
	if _, okID := validate.ID(pid); !okID || err != nil || qty < 0 {
		return c.Status(400).SendString("invalid input")
	}
	if err := h.Stock.SetStock(pid, qty); err != nil {
		applog.Error(c, "admin.stock.save.fail", err, map[string]any{"product": pid, "qty": qty})
		return c.Status(400).SendString("could not save stock")
	}
	applog.Audit(c, "admin.stock.save", map[string]any{"product": pid, "qty": qty})
	return c.Redirect("/admin/stock")
}

// UsersPage lists customer accounts.
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	all, err := h.Users.List()
	if err != nil {
		applog.Error(c, "admin.users.list.fail", err, nil)
		return c.Status(500).Render("notfound", page(c, fiber.Map{"Message": "Could not load users"}))
	}
	users := make([]domain.User, 0, len(all))
	for _, u := range all {
		if u.Role != domain.RoleAdmin {
			users = append(users, u)
		}
	}
	return render(c, "admin_users", fiber.Map{"Title": "Users", "Users": users})
}

// DeleteUser removes a user, puts their cart back on the shelves and
// cancels their open orders.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(400).SendString("missing id")
	}
	if id == currentUser(c).ID {
		return c.Status(400).SendString("cannot delete yourself")
	}
	if err := h.Users.DeleteUserCascade(id); err != nil {
		applog.Error(c, "admin.users.delete.fail", err, map[string]any{"user_id": id})
		return c.Status(400).SendString("could not delete user")
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"user_id": id})
	return c.Redirect("/admin/users")
}

// GET /admin/products.xlsx
func (h *AdminHandler) ExportProducts(c *fiber.Ctx) error {
	products, err := h.Prods.All()
	if err != nil {
		applog.Error(c, "admin.export.fail", err, nil)
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return err
	}
	header := sheet.AddRow()
	for _, title := range []string{"ID", "Title", "Slug", "Price", "Quantity", "Color", "Size"} {
		header.AddCell().Value = title
	}
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().Value = p.ID
		row.AddCell().Value = p.Title
		row.AddCell().Value = p.Slug
		row.AddCell().Value = p.Price.StringFixed(2)
		row.AddCell().SetInt(p.Quantity)
		row.AddCell().Value = p.Color
		row.AddCell().SetInt(p.Size)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="products.xlsx"`)
	applog.Audit(c, "admin.export.products", map[string]any{"rows": len(products)})
	return file.Write(c.Response().BodyWriter())
}
