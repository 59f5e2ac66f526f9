package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	applog "shopeasy/internal/log"
	"shopeasy/internal/services"
	"shopeasy/internal/validate"
)

type OrderHandler struct{}

// GET /checkout. The page carries a fresh order id that doubles as the submit token.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	return render(c, "checkout", fiber.Map{
		"Cart":    storefront(c).Cart.View(),
		"OrderID": uuid.NewString(),
	})
}

// POST /checkout
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	sf := storefront(c)
	orderID, ok := validate.ID(c.FormValue("orderId"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "orderId"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid order token")
	}

	o, err := sf.Checkout.PlaceOrder(c.UserContext(), orderID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNoSession):
		return c.Redirect("/login")
	case errors.Is(err, services.ErrEmptyCart):
		c.Status(fiber.StatusBadRequest)
		return render(c, "checkout", fiber.Map{"Cart": sf.Cart.View(), "OrderID": uuid.NewString(), "Err": "Your cart is empty"})
	case errors.Is(err, services.ErrOrderPending):
		return c.Status(fiber.StatusConflict).SendString("This order is already being placed.")
	default:
		applog.Error(c, "order.place.fail", err, map[string]any{"order_id": orderID})
		c.Status(fiber.StatusBadGateway)
		return render(c, "checkout", fiber.Map{
			"Cart": sf.Cart.View(), "OrderID": orderID,
			"Err": "Could not place order. Please try again.",
		})
	}

	applog.Audit(c, "order.place", map[string]any{
		"order_id": o.ID,
		"total":    o.Total.StringFixed(2),
		"lines":    len(o.Items),
	})
	return c.Redirect("/orders")
}

// History lists the signed-in user's orders, newest first.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	return render(c, "orders", fiber.Map{"Orders": currentUser(c).Orders})
}

// POST /orders/refresh re-reads the history from the remote store.
func (h *OrderHandler) Refresh(c *fiber.Ctx) error {
	if _, err := storefront(c).Session.Reload(c.UserContext()); err != nil {
		if errors.Is(err, services.ErrNoSession) {
			return c.Redirect("/login")
		}
		applog.Error(c, "orders.refresh.fail", err, nil)
		return c.Status(fiber.StatusBadGateway).Render("notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return c.Redirect("/orders")
}
