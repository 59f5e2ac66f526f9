package handlers

import "github.com/gofiber/fiber/v2"

type ProfileHandler struct{}

// GET /profile
func (h *ProfileHandler) Show(c *fiber.Ctx) error {
	sf := storefront(c)
	u := currentUser(c)
	return render(c, "profile", fiber.Map{
		"Profile":       u,
		"OrdersCount":   len(u.Orders),
		"CartTotal":     sf.Cart.Total(),
		"WishlistItems": sf.Wishlist.Items(),
	})
}
