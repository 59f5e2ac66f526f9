package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"shopeasy/internal/domain"
)

var ErrEmptyCart = errors.New("cart is empty")

// Checkout turns a client's cart into an order on its session.
type Checkout struct {
	Cart    *Cart
	Session *SessionContainer
	Now     func() time.Time
}

func NewCheckout(cart *Cart, sess *SessionContainer) *Checkout {
	return &Checkout{Cart: cart, Session: sess, Now: time.Now}
}

// PlaceOrder submits the cart as a processing order. orderID doubles as the
// submission token: resubmitting the same id while it is in flight fails with
// ErrOrderPending. An empty id gets a fresh uuid. The order is built from one
// snapshot of the cart, and on success only the snapshot's quantities leave the cart.
func (c *Checkout) PlaceOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if c.Session.Current() == nil {
		return domain.Order{}, ErrNoSession
	}
	lines := c.Cart.Items()
	if len(lines) == 0 {
		return domain.Order{}, ErrEmptyCart
	}
	if orderID == "" {
		orderID = uuid.NewString()
	}
	o := domain.Order{
		ID:     orderID,
		Date:   c.Now().UTC(),
		Items:  domain.LinesFromCart(lines),
		Total:  LinesTotal(lines),
		Status: domain.OrderProcessing,
	}
	if err := c.Session.AddOrder(ctx, o); err != nil {
		return domain.Order{}, err
	}
	c.Cart.RemoveOrdered(lines)
	return o, nil
}
