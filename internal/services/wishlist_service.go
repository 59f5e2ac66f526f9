package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync"

	"shopeasy/internal/domain"
	applog "shopeasy/internal/log"
)

// WishlistKey is the local storage slot for the wishlist snapshot.
const WishlistKey = "wishlist"

type WishlistState struct {
	Items []domain.Product `json:"items"`
}

// WishlistAction is one of AddWishlistItem, RemoveWishlistItem or ClearWishlist.
type WishlistAction interface{ isWishlistAction() }

type AddWishlistItem struct{ Product domain.Product }
type RemoveWishlistItem struct{ ID int }
type ClearWishlist struct{}

func (AddWishlistItem) isWishlistAction()    {}
func (RemoveWishlistItem) isWishlistAction() {}
func (ClearWishlist) isWishlistAction()      {}

// ReduceWishlist returns the state after applying a. The input state is never modified.
func ReduceWishlist(s WishlistState, a WishlistAction) WishlistState {
	switch a := a.(type) {
	case AddWishlistItem:
		if containsProduct(s.Items, a.Product.ID) {
			return s
		}
		items := make([]domain.Product, 0, len(s.Items)+1)
		items = append(items, s.Items...)
		return WishlistState{Items: append(items, a.Product)}
	case RemoveWishlistItem:
		if !containsProduct(s.Items, a.ID) {
			return s
		}
		items := make([]domain.Product, 0, len(s.Items)-1)
		for _, p := range s.Items {
			if p.ID != a.ID {
				items = append(items, p)
			}
		}
		return WishlistState{Items: items}
	case ClearWishlist:
		return WishlistState{Items: []domain.Product{}}
	default:
		return s
	}
}

func containsProduct(items []domain.Product, id int) bool {
	for _, p := range items {
		if p.ID == id {
			return true
		}
	}
	return false
}

func sameProducts(a, b []domain.Product) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// Wishlist dispatches actions through ReduceWishlist and notifies observers of every change.
type Wishlist struct {
	mu        sync.Mutex
	state     WishlistState
	observers []func(WishlistState)
}

// NewWishlist replays the saved snapshot as Add actions, then persists every later change to store.
func NewWishlist(store LocalStorage) *Wishlist {
	w := &Wishlist{state: WishlistState{Items: []domain.Product{}}}
	for _, p := range loadWishlist(store) {
		w.state = ReduceWishlist(w.state, AddWishlistItem{Product: p})
	}
	w.Observe(wishlistPersister(store))
	return w
}

func loadWishlist(store LocalStorage) []domain.Product {
	raw, err := store.GetItem(WishlistKey)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			applog.Warn(nil, "wishlist.load.fail", err, nil)
		}
		return nil
	}
	var items []domain.Product
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		applog.Warn(nil, "wishlist.load.parse.fail", err, nil)
		return nil
	}
	return items
}

func wishlistPersister(store LocalStorage) func(WishlistState) {
	return func(s WishlistState) {
		b, err := json.Marshal(s.Items)
		if err == nil {
			err = store.SetItem(WishlistKey, string(b))
		}
		if err != nil {
			applog.Warn(nil, "wishlist.persist.fail", err, map[string]any{"items": len(s.Items)})
		}
	}
}

// Observe registers fn to run, under the wishlist lock, after each state change.
func (w *Wishlist) Observe(fn func(WishlistState)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, fn)
}

func (w *Wishlist) Dispatch(a WishlistAction) {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := ReduceWishlist(w.state, a)
	if sameProducts(w.state.Items, next.Items) {
		return
	}
	w.state = next
	for _, fn := range w.observers {
		fn(next)
	}
}

func (w *Wishlist) Add(p domain.Product) { w.Dispatch(AddWishlistItem{Product: p}) }
func (w *Wishlist) Remove(id int)        { w.Dispatch(RemoveWishlistItem{ID: id}) }
func (w *Wishlist) Clear()               { w.Dispatch(ClearWishlist{}) }

func (w *Wishlist) IsInWishlist(id int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return containsProduct(w.state.Items, id)
}

// Items returns a copy of the entries in insertion order.
func (w *Wishlist) Items() []domain.Product {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.Product, len(w.state.Items))
	copy(out, w.state.Items)
	return out
}
