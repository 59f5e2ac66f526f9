package handlers

import (
	applog "shopeasy/internal/log"
	"shopeasy/internal/services"
	"shopeasy/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type WishlistHandler struct {
	Catalog *services.CatalogService
}

func (h *WishlistHandler) List(c *fiber.Ctx) error {
	return render(c, "wishlist", fiber.Map{"Items": storefront(c).Wishlist.Items()})
}

func (h *WishlistHandler) Save(c *fiber.Ctx) error {
	pid, ok := validate.ProductID(c.FormValue("productId"))
	if !ok {
		return c.Status(400).SendString("missing productId")
	}
	p, ok := h.Catalog.Get(pid)
	if !ok {
		return notFound(c, "This item is no longer available")
	}
	storefront(c).Wishlist.Add(p)
	// redirect back to product or wishlist
	back := c.Get("Referer")
	if back == "" {
		back = "/wishlist"
	}
	applog.Audit(c, "wishlist.save", map[string]any{"product": pid})
	return c.Redirect(back)
}

func (h *WishlistHandler) Unsave(c *fiber.Ctx) error {
	pid, ok := validate.ProductID(c.FormValue("productId"))
	if !ok {
		return c.Status(400).SendString("missing productId")
	}
	storefront(c).Wishlist.Remove(pid)
	applog.Audit(c, "wishlist.unsave", map[string]any{"product": pid})
	return c.Redirect("/wishlist")
}
