package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"shopeasy/internal/domain"
	"shopeasy/internal/log"
	"shopeasy/internal/services"
	"shopeasy/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// productFilter reads q, category and price from the query string.
// It returns a user-facing message when any of them is malformed.
func productFilter(c *fiber.Ctx) (q, category string, bracket domain.PriceBracket, errMsg string) {
	rawQ := c.Query("q")
	if strings.TrimSpace(rawQ) != "" {
		var ok bool
		if q, ok = validate.Q(rawQ); !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "q", "value": rawQ})
			return "", "", "", "Enter a valid keyword (letters/numbers only)"
		}
	}
	category, ok := validate.Category(c.Query("category"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "category"})
		return q, "", "", "Invalid category"
	}
	bracket, ok = validate.Bracket(c.Query("price"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "price"})
		return q, category, "", "Invalid price range"
	}
	return q, category, bracket, ""
}

func (h *ProductHandler) Home(c *fiber.Ctx) error {
	return render(c, "home", fiber.Map{
		"Categories": h.Catalog.Categories(),
		"Products":   h.Catalog.All(),
	})
}

// GET /products?q=&category=&price=
func (h *ProductHandler) List(c *fiber.Ctx) error {
	q, category, bracket, errMsg := productFilter(c)
	data := fiber.Map{
		"Q": q, "Category": category, "Price": string(bracket),
		"Categories": h.Catalog.Categories(),
		"Brackets":   []domain.PriceBracket{domain.BracketUpTo50, domain.Bracket50To100, domain.Bracket100To200, domain.BracketOver200},
	}
	if errMsg != "" {
		data["Err"] = errMsg
		data["Products"] = []domain.Product{}
		c.Status(fiber.StatusBadRequest)
		return render(c, "products", data)
	}
	products := h.Catalog.Search(q, category, bracket)
	data["Products"] = products
	data["Count"] = len(products)
	return render(c, "products", data)
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ProductID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	p, ok := h.Catalog.Get(id)
	if !ok {
		return notFound(c, "This item is no longer available")
	}
	data := fiber.Map{"P": p}
	if sf := storefront(c); sf != nil {
		data["Saved"] = sf.Wishlist.IsInWishlist(p.ID)
	}
	return render(c, "product", data)
}
