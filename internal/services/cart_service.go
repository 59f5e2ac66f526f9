package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"shopeasy/internal/domain"
	applog "shopeasy/internal/log"
)

// CartKey is the local storage slot for the cart snapshot.
const CartKey = "cart"

// Cart holds one client's cart lines in insertion order, at most one line per product.
type Cart struct {
	mu    sync.Mutex
	lines []domain.CartLine
	store LocalStorage
}

// NewCart rehydrates the cart from store. A missing or corrupt snapshot yields an empty cart.
func NewCart(store LocalStorage) *Cart {
	c := &Cart{store: store}
	c.load()
	return c
}

func (c *Cart) load() {
	raw, err := c.store.GetItem(CartKey)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			applog.Warn(nil, "cart.load.fail", err, nil)
		}
		return
	}
	var lines []domain.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		applog.Warn(nil, "cart.load.parse.fail", err, nil)
		return
	}
	seen := make(map[int]bool, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		c.lines = append(c.lines, l)
	}
}

// persist writes the full snapshot. Failures are logged; memory is never rolled back.
func (c *Cart) persist() {
	lines := c.lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	b, err := json.Marshal(lines)
	if err == nil {
		err = c.store.SetItem(CartKey, string(b))
	}
	if err != nil {
		applog.Warn(nil, "cart.persist.fail", err, map[string]any{"lines": len(lines)})
	}
}

func (c *Cart) index(id int) int {
	for i, l := range c.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// AddToCart increments the product's line or appends a new line with quantity 1.
func (c *Cart) AddToCart(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(p.ID); i >= 0 {
		c.lines[i].Quantity++
	} else {
		c.lines = append(c.lines, domain.CartLine{Product: p, Quantity: 1})
	}
	c.persist()
}

// UpdateQuantity sets a line's quantity; n <= 0 removes the line. Unknown ids are ignored.
func (c *Cart) UpdateQuantity(id, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return
	}
	if n <= 0 {
		c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
	} else {
		c.lines[i].Quantity = n
	}
	c.persist()
}

func (c *Cart) RemoveFromCart(id int) {
	c.UpdateQuantity(id, 0)
}

func (c *Cart) ClearCart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.persist()
}

// RemoveOrdered takes the ordered quantities off their lines, dropping lines
// that reach zero. Anything added after the snapshot was taken stays.
func (c *Cart) RemoveOrdered(ordered []domain.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range ordered {
		i := c.index(o.ID)
		if i < 0 {
			continue
		}
		c.lines[i].Quantity -= o.Quantity
		if c.lines[i].Quantity <= 0 {
			c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
		}
	}
	c.persist()
}

// LinesTotal sums price times quantity over lines.
func LinesTotal(lines []domain.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total is recomputed from the lines on every call.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return LinesTotal(c.lines)
}

// ItemCount is the sum of quantities.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

type CartView struct {
	Items     []domain.CartLine `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"item_count"`
}

func (c *Cart) View() CartView {
	return CartView{Items: c.Items(), Total: c.Total(), ItemCount: c.ItemCount()}
}
