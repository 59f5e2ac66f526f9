package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "shopeasy/internal/log"
	"shopeasy/internal/services"
	"shopeasy/internal/validate"
)

type CartHandler struct {
	Catalog *services.CatalogService
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	return render(c, "cart", fiber.Map{"Cart": storefront(c).Cart.View()})
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	id, ok := validate.ProductID(c.FormValue("productId"))
	if !ok {
		return c.Status(400).SendString("missing productId")
	}
	p, ok := h.Catalog.Get(id)
	if !ok {
		return notFound(c, "This item is no longer available")
	}
	storefront(c).Cart.AddToCart(p)
	applog.Info(c, "cart.add", map[string]any{"product": id})
	return c.Redirect("/cart")
}

// POST /cart/update; a quantity of 0 removes the line.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ProductID(c.FormValue("productId"))
	if !ok {
		return c.Status(400).SendString("missing productId")
	}
	storefront(c).Cart.UpdateQuantity(id, validate.Qty(c.FormValue("qty")))
	return c.Redirect("/cart")
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	id, ok := validate.ProductID(c.FormValue("productId"))
	if !ok {
		return c.Status(400).SendString("missing productId")
	}
	storefront(c).Cart.RemoveFromCart(id)
	return c.Redirect("/cart")
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	storefront(c).Cart.ClearCart()
	return c.Redirect("/cart")
}
