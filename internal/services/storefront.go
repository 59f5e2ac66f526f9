package services

import (
	"context"
	"sync"
	"time"
)

// Storefront is the state bundle of one browser client.
type Storefront struct {
	Cart     *Cart
	Wishlist *Wishlist
	Session  *SessionContainer
	Checkout *Checkout

	lastSeen time.Time
	cancel   context.CancelFunc
	done     chan struct{}
	release  func()
}

// Opener builds a client's local storage and remote connection. release is
// called once the client is evicted.
type Opener func(sid string) (local LocalStorage, rs RemoteStore, release func())

// Clients lazily creates one Storefront per client id.
type Clients struct {
	open Opener

	mu      sync.Mutex
	clients map[string]*Storefront
}

func NewClients(open Opener) *Clients {
	return &Clients{open: open, clients: map[string]*Storefront{}}
}

// Get returns the client's storefront, creating it and starting its session loop on first use.
func (c *Clients) Get(sid string) *Storefront {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sf, ok := c.clients[sid]; ok {
		sf.lastSeen = time.Now()
		return sf
	}

	local, rs, release := c.open(sid)
	sess := NewSessionContainer(rs)
	cart := NewCart(local)
	ctx, cancel := context.WithCancel(context.Background())
	sf := &Storefront{
		Cart:     cart,
		Wishlist: NewWishlist(local),
		Session:  sess,
		Checkout: NewCheckout(cart, sess),
		lastSeen: time.Now(),
		cancel:   cancel,
		done:     make(chan struct{}),
		release:  release,
	}
	go func() {
		defer close(sf.done)
		sess.Run(ctx)
	}()
	c.clients[sid] = sf
	return sf
}

func (c *Clients) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// Evict stops clients not seen for longer than idle. Their durable state stays in local storage.
func (c *Clients) Evict(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	c.mu.Lock()
	var stale []*Storefront
	for sid, sf := range c.clients {
		if sf.lastSeen.Before(cutoff) {
			stale = append(stale, sf)
			delete(c.clients, sid)
		}
	}
	c.mu.Unlock()

	for _, sf := range stale {
		sf.stop()
	}
	return len(stale)
}

func (c *Clients) Close() {
	c.mu.Lock()
	all := c.clients
	c.clients = map[string]*Storefront{}
	c.mu.Unlock()
	for _, sf := range all {
		sf.stop()
	}
}

func (sf *Storefront) stop() {
	sf.cancel()
	<-sf.done
	if sf.release != nil {
		sf.release()
	}
}
