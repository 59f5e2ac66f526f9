package handlers

import (
	"errors"
	"strings"

	"shopeasy/internal/domain"
	applog "shopeasy/internal/log"
	"shopeasy/internal/remote"
	"shopeasy/internal/services"
	"shopeasy/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	Admin *services.AdminService
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.Admin.Dashboard(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.dashboard.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load dashboard"})
	}
	return render(c, "admin", fiber.Map{"Dash": d})
}

var orderStatuses = []domain.OrderStatus{domain.OrderPending, domain.OrderProcessing, domain.OrderShipped, domain.OrderDelivered}

// GET /admin/users/:id lists one user's orders with a status control per order.
func (h *AdminHandler) UserOrders(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "User not found")
	}
	uo, err := h.Admin.UserOrders(c.UserContext(), id)
	if errors.Is(err, remote.ErrNotFound) {
		return notFound(c, "User not found")
	}
	if err != nil {
		applog.Error(c, "admin.user.orders.fail", err, map[string]any{"user": id})
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "admin_user", fiber.Map{"UO": uo, "Statuses": orderStatuses})
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	status := domain.OrderStatus(strings.TrimSpace(c.FormValue("status")))
	if !ok || !status.Valid() {
		return c.Status(400).SendString("missing id or status")
	}
	if err := h.Admin.SetOrderStatus(c.UserContext(), id, status); err != nil {
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id})
		return c.Status(400).SendString("could not update status")
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": status})
	if uid, ok := validate.ID(c.FormValue("userId")); ok {
		return c.Redirect("/admin/users/" + uid)
	}
	return c.Redirect("/admin")
}
