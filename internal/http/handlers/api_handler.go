package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"shopeasy/internal/domain"
	applog "shopeasy/internal/log"
	"shopeasy/internal/remote"
	"shopeasy/internal/services"
	"shopeasy/internal/validate"
)

// APIHandler serves the JSON surface under /api/v1. It shares the client's
// state bundle with the HTML pages through the sid cookie.
type APIHandler struct {
	Catalog *services.CatalogService
	Admin   *services.AdminService
}

type productRef struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
}

type quantityBody struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type loginBody struct {
	Email    string `json:"email" validate:"required,email,max=50"`
	Password string `json:"password" validate:"required"`
}

type registerBody struct {
	Name     string `json:"name" validate:"required,max=40"`
	Email    string `json:"email" validate:"required,email,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type checkoutBody struct {
	OrderID string `json:"order_id" validate:"omitempty,max=64"`
}

type statusBody struct {
	Status string `json:"status" validate:"required,orderstatus"`
}

// bind decodes and validates a JSON body, writing the 400 response itself on failure.
func bind(c *fiber.Ctx, v any) bool {
	if err := c.BodyParser(v); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"reason": "bad_body"})
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		return false
	}
	if err := validate.Struct(v); err != nil {
		fields := validate.FieldErrors(err)
		applog.Security(c, "validation.fail", map[string]any{"fields": fields})
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request", "fields": fields})
		return false
	}
	return true
}

func pathProductID(c *fiber.Ctx) (int, bool) {
	id, ok := validate.ProductID(c.Params("id"))
	if !ok {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	return id, ok
}

// GET /api/v1/products?q=&category=&price=
func (h *APIHandler) Products(c *fiber.Ctx) error {
	q, category, bracket, errMsg := productFilter(c)
	if errMsg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errMsg})
	}
	products := h.Catalog.Search(q, category, bracket)
	return c.JSON(fiber.Map{"products": products, "count": len(products)})
}

func (h *APIHandler) Product(c *fiber.Ctx) error {
	id, ok := pathProductID(c)
	if !ok {
		return nil
	}
	p, ok := h.Catalog.Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
	}
	return c.JSON(p)
}

func (h *APIHandler) Cart(c *fiber.Ctx) error {
	return c.JSON(storefront(c).Cart.View())
}

func (h *APIHandler) AddCartItem(c *fiber.Ctx) error {
	var body productRef
	if !bind(c, &body) {
		return nil
	}
	p, ok := h.Catalog.Get(body.ProductID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
	}
	cart := storefront(c).Cart
	cart.AddToCart(p)
	return c.Status(fiber.StatusCreated).JSON(cart.View())
}

// PATCH /api/v1/cart/items/:id; quantity <= 0 removes the line.
func (h *APIHandler) UpdateCartItem(c *fiber.Ctx) error {
	id, ok := pathProductID(c)
	if !ok {
		return nil
	}
	var body quantityBody
	if !bind(c, &body) {
		return nil
	}
	cart := storefront(c).Cart
	cart.UpdateQuantity(id, *body.Quantity)
	return c.JSON(cart.View())
}

func (h *APIHandler) RemoveCartItem(c *fiber.Ctx) error {
	id, ok := pathProductID(c)
	if !ok {
		return nil
	}
	cart := storefront(c).Cart
	cart.RemoveFromCart(id)
	return c.JSON(cart.View())
}

func (h *APIHandler) ClearCart(c *fiber.Ctx) error {
	cart := storefront(c).Cart
	cart.ClearCart()
	return c.JSON(cart.View())
}

func (h *APIHandler) Wishlist(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": storefront(c).Wishlist.Items()})
}

func (h *APIHandler) AddWishlistItem(c *fiber.Ctx) error {
	var body productRef
	if !bind(c, &body) {
		return nil
	}
	p, ok := h.Catalog.Get(body.ProductID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
	}
	w := storefront(c).Wishlist
	w.Add(p)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"items": w.Items()})
}

func (h *APIHandler) RemoveWishlistItem(c *fiber.Ctx) error {
	id, ok := pathProductID(c)
	if !ok {
		return nil
	}
	w := storefront(c).Wishlist
	w.Remove(id)
	return c.JSON(fiber.Map{"items": w.Items()})
}

func (h *APIHandler) ClearWishlist(c *fiber.Ctx) error {
	w := storefront(c).Wishlist
	w.Clear()
	return c.JSON(fiber.Map{"items": w.Items()})
}

// GET /api/v1/session
func (h *APIHandler) Session(c *fiber.Ctx) error {
	sf := storefront(c)
	return c.JSON(fiber.Map{"ready": sf.Session.Ready(), "session": sf.Session.Current()})
}

// POST /api/v1/auth/login. Success means accepted; poll /session for the identity.
func (h *APIHandler) Login(c *fiber.Ctx) error {
	var body loginBody
	if !bind(c, &body) {
		return nil
	}
	res := storefront(c).Session.Login(c.UserContext(), body.Email, body.Password)
	if !res.OK {
		applog.Security(c, "auth.login.fail", map[string]any{"email": body.Email, "reason": "rejected"})
		return c.Status(fiber.StatusUnauthorized).JSON(res)
	}
	applog.Audit(c, "auth.login.success", map[string]any{"email": body.Email})
	return c.Status(fiber.StatusAccepted).JSON(res)
}

func (h *APIHandler) Register(c *fiber.Ctx) error {
	var body registerBody
	if !bind(c, &body) {
		return nil
	}
	res := storefront(c).Session.Register(c.UserContext(), body.Name, body.Email, body.Password)
	if !res.OK {
		applog.Security(c, "auth.register.fail", map[string]any{"email": body.Email, "reason": "rejected"})
		return c.Status(fiber.StatusBadRequest).JSON(res)
	}
	applog.Audit(c, "auth.register", map[string]any{"email": body.Email})
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *APIHandler) Logout(c *fiber.Ctx) error {
	storefront(c).Session.Logout(c.UserContext())
	applog.Audit(c, "auth.logout", nil)
	return c.JSON(services.AuthResult{OK: true})
}

func (h *APIHandler) Orders(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign in required"})
	}
	return c.JSON(fiber.Map{"orders": u.Orders})
}

func (h *APIHandler) RefreshOrders(c *fiber.Ctx) error {
	sess, err := storefront(c).Session.Reload(c.UserContext())
	if err != nil {
		if errors.Is(err, services.ErrNoSession) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign in required"})
		}
		applog.Error(c, "orders.refresh.fail", err, nil)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "could not load orders"})
	}
	return c.JSON(fiber.Map{"orders": sess.Orders})
}

// POST /api/v1/checkout
func (h *APIHandler) Checkout(c *fiber.Ctx) error {
	var body checkoutBody
	if len(c.Body()) > 0 && !bind(c, &body) {
		return nil
	}
	if body.OrderID != "" {
		if _, ok := validate.ID(body.OrderID); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
		}
	}
	o, err := storefront(c).Checkout.PlaceOrder(c.UserContext(), body.OrderID)
	switch {
	case err == nil:
		applog.Audit(c, "order.place", map[string]any{"order_id": o.ID, "total": o.Total.StringFixed(2), "lines": len(o.Items)})
		return c.Status(fiber.StatusCreated).JSON(o)
	case errors.Is(err, services.ErrNoSession):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign in required"})
	case errors.Is(err, services.ErrEmptyCart):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cart is empty"})
	case errors.Is(err, services.ErrOrderPending):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "order already being placed"})
	default:
		applog.Error(c, "order.place.fail", err, map[string]any{"order_id": body.OrderID})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "could not place order"})
	}
}

func (h *APIHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.Admin.Dashboard(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.dashboard.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load dashboard"})
	}
	return c.JSON(d)
}

// GET /api/v1/admin/users/:id/orders
func (h *APIHandler) UserOrders(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	uo, err := h.Admin.UserOrders(c.UserContext(), id)
	if errors.Is(err, remote.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	if err != nil {
		applog.Error(c, "admin.user.orders.fail", err, map[string]any{"user": id})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load orders"})
	}
	return c.JSON(uo)
}

// PATCH /api/v1/admin/orders/:id
func (h *APIHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}
	var body statusBody
	if !bind(c, &body) {
		return nil
	}
	if err := h.Admin.SetOrderStatus(c.UserContext(), id, domain.OrderStatus(body.Status)); err != nil {
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "could not update status"})
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": body.Status})
	return c.JSON(fiber.Map{"id": id, "status": body.Status})
}
