package remote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopeasy/internal/config"
	"shopeasy/internal/domain"
	"shopeasy/internal/remote"
	"shopeasy/internal/repos"
)

func newStore(t *testing.T, mutate ...func(*config.Config)) (*remote.Store, *sqlx.DB) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cfg := config.Defaults()
	cfg.BcryptCost = 4
	for _, m := range mutate {
		m(&cfg)
	}
	return remote.NewStore(db, cfg), db
}

func connect(t *testing.T, s *remote.Store, tokens remote.TokenStore) (*remote.Client, <-chan domain.AuthEvent) {
	t.Helper()
	c := s.Connect(tokens)
	t.Cleanup(c.Close)
	ch := make(chan domain.AuthEvent, 16)
	c.Subscribe(func(ev domain.AuthEvent) { ch <- ev })
	return c, ch
}

func next(t *testing.T, ch <-chan domain.AuthEvent) domain.AuthEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no auth event delivered")
		return domain.AuthEvent{}
	}
}

func TestSignInEmitsEventsAndRestores(t *testing.T) {
	s, db := newStore(t)
	tokens := repos.NewLocalStoreRepo(db).Scope("client-1")
	ctx := context.Background()

	c, events := connect(t, s, tokens)
	ev := next(t, events)
	assert.Equal(t, domain.EventInitialSession, ev.Kind)
	assert.Nil(t, ev.User)

	err := c.SignIn(ctx, "alice@shopeasy.test", "wrong-password")
	assert.ErrorIs(t, err, remote.ErrInvalidCredentials)
	assert.Equal(t, "Invalid login credentials", err.Error())

	require.NoError(t, c.SignIn(ctx, "ALICE@shopeasy.test", "Passw0rd!"))
	ev = next(t, events)
	assert.Equal(t, domain.EventSignedIn, ev.Kind)
	require.NotNil(t, ev.User)
	assert.Equal(t, "u-alice", ev.User.ID)
	assert.Equal(t, "Alice", ev.User.Name)

	// A second connection over the same local storage restores the session.
	_, restored := connect(t, s, tokens)
	ev = next(t, restored)
	assert.Equal(t, domain.EventInitialSession, ev.Kind)
	require.NotNil(t, ev.User)
	assert.Equal(t, "u-alice", ev.User.ID)

	require.NoError(t, c.SignOut(ctx))
	ev = next(t, events)
	assert.Equal(t, domain.EventSignedOut, ev.Kind)
	assert.Nil(t, c.User())

	_, after := connect(t, s, tokens)
	ev = next(t, after)
	assert.Nil(t, ev.User, "revoked session is not restored")
}

func TestRestoreRejectsForeignToken(t *testing.T) {
	s, db := newStore(t)
	tokens := repos.NewLocalStoreRepo(db).Scope("client-2")
	require.NoError(t, tokens.SetItem(remote.TokenKey, "not-a-jwt"))

	_, events := connect(t, s, tokens)
	assert.Nil(t, next(t, events).User)

	_, err := tokens.GetItem(remote.TokenKey)
	assert.Error(t, err, "bad token is discarded")
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("no auto confirm", func(t *testing.T) {
		s, db := newStore(t)
		c, events := connect(t, s, repos.NewLocalStoreRepo(db).Scope("c"))
		next(t, events)

		assert.ErrorIs(t, c.SignUp(ctx, "alice@shopeasy.test", "whatever1", "Al"), remote.ErrUserExists)
		assert.ErrorIs(t, c.SignUp(ctx, "new@shopeasy.test", "123", "New"), remote.ErrWeakPassword)
		require.NoError(t, c.SignUp(ctx, "new@shopeasy.test", "secret123", "New"))
		assert.Nil(t, c.User(), "registration does not sign in")

		require.NoError(t, c.SignIn(ctx, "new@shopeasy.test", "secret123"))
		ev := next(t, events)
		assert.Equal(t, domain.EventSignedIn, ev.Kind)
		assert.Equal(t, "New", ev.User.Name)
	})

	t.Run("auto confirm", func(t *testing.T) {
		s, db := newStore(t, func(c *config.Config) { c.AuthAutoConfirm = true })
		c, events := connect(t, s, repos.NewLocalStoreRepo(db).Scope("c"))
		next(t, events)

		require.NoError(t, c.SignUp(ctx, "auto@shopeasy.test", "secret123", "Auto"))
		ev := next(t, events)
		assert.Equal(t, domain.EventSignedIn, ev.Kind)
		assert.Equal(t, "auto@shopeasy.test", ev.User.Email)
	})
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s, db := newStore(t)
	c := s.Connect(repos.NewLocalStoreRepo(db).Scope("c"))
	t.Cleanup(c.Close)

	ch := make(chan domain.AuthEvent, 4)
	unsubscribe := c.Subscribe(func(ev domain.AuthEvent) { ch <- ev })
	next(t, ch)
	unsubscribe()

	require.NoError(t, c.SignIn(context.Background(), "alice@shopeasy.test", "Passw0rd!"))
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event after unsubscribe: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRecords(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "u-x")
	assert.True(t, errors.Is(err, remote.ErrNotFound))

	p, err := s.CreateProfile(ctx, "u-x", "x@shopeasy.test", "X")
	require.NoError(t, err)
	got, err := s.GetProfile(ctx, "u-x")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	o := domain.Order{ID: "o-1", Date: time.Now(), Total: decimal.NewFromInt(5), Status: domain.OrderProcessing,
		Items: domain.OrderLines{{ProductID: 6, Name: "USB Cable", Price: decimal.NewFromInt(5), Quantity: 1}}}
	require.NoError(t, s.InsertOrder(ctx, "u-x", o))

	var rerr *remote.Error
	err = s.InsertOrder(ctx, "u-x", domain.Order{ID: "o-2", Status: "lost"})
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, remote.CodeValidation, rerr.Code)

	list, err := s.ListOrders(ctx, "u-x")
	require.NoError(t, err)
	require.Len(t, list, 1)

	n, err := s.CountOrders(ctx, "u-x")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.CountProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.ListOrders(cancelled, "u-x")
	assert.ErrorIs(t, err, context.Canceled)
}
