package services_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopeasy/internal/domain"
	"shopeasy/internal/services"
)

func product(id int, price string) domain.Product {
	return domain.Product{ID: id, Name: "P", Price: decimal.RequireFromString(price), Category: "accessories"}
}

func TestCartTotals(t *testing.T) {
	c := services.NewCart(newMemStorage())
	c.AddToCart(product(1, "10.00"))
	c.AddToCart(product(2, "5.00"))
	c.AddToCart(product(1, "10.00"))

	assert.True(t, c.Total().Equal(decimal.RequireFromString("25.00")), c.Total().String())
	assert.Equal(t, 3, c.ItemCount())

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 2, items[1].ID)
}

func TestCartUpdateQuantityZeroRemoves(t *testing.T) {
	a := services.NewCart(newMemStorage())
	b := services.NewCart(newMemStorage())
	for _, c := range []*services.Cart{a, b} {
		c.AddToCart(product(1, "3.50"))
		c.AddToCart(product(2, "1.00"))
	}
	a.UpdateQuantity(1, 0)
	b.RemoveFromCart(1)
	assert.Equal(t, a.Items(), b.Items())

	a.UpdateQuantity(2, -4)
	assert.Empty(t, a.Items())

	b.UpdateQuantity(2, 7)
	b.UpdateQuantity(99, 3)
	assert.Equal(t, 7, b.ItemCount())
}

func TestCartPersistsAndRehydrates(t *testing.T) {
	store := newMemStorage()
	c := services.NewCart(store)
	c.AddToCart(product(5, "24.99"))
	c.AddToCart(product(6, "14.99"))
	c.UpdateQuantity(6, 3)

	again := services.NewCart(store)
	assert.Equal(t, c.Items(), again.Items())
	assert.True(t, again.Total().Equal(decimal.RequireFromString("69.96")))

	again.ClearCart()
	assert.Equal(t, "[]", store.items[services.CartKey])
}

func TestCartBadSnapshot(t *testing.T) {
	store := newMemStorage()
	store.items[services.CartKey] = "{not json"
	assert.Empty(t, services.NewCart(store).Items())

	store.items[services.CartKey] = `[{"id":1,"price":"2","quantity":0},{"id":2,"price":"3","quantity":1},{"id":2,"price":"3","quantity":4}]`
	items := services.NewCart(store).Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].ID)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestCartWriteFailureKeepsMemory(t *testing.T) {
	store := newMemStorage()
	store.failSet = true
	c := services.NewCart(store)
	c.AddToCart(product(1, "1.00"))
	assert.Equal(t, 1, c.ItemCount())
	assert.Equal(t, 1, store.writes)
}
