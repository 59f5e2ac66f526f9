package services_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"shopeasy/internal/domain"
	"shopeasy/internal/remote"
)

type memStorage struct {
	mu      sync.Mutex
	items   map[string]string
	failSet bool
	writes  int
}

func newMemStorage() *memStorage { return &memStorage{items: map[string]string{}} }

func (m *memStorage) GetItem(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return "", sql.ErrNoRows
	}
	return v, nil
}

func (m *memStorage) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failSet {
		return errors.New("disk full")
	}
	m.items[key] = value
	return nil
}

// fakeRemote records calls and lets tests inject failures and auth events.
type fakeRemote struct {
	mu       sync.Mutex
	handler  func(domain.AuthEvent)
	initial  *domain.AuthUser
	profiles map[string]domain.Profile
	orders   map[string][]domain.Order

	signInErr  error
	signUpErr  error
	signOutErr error
	getErr     error
	insertErr  error
	insertGate chan struct{}
	listGate   chan struct{}

	inserts        int
	lists          int
	createdProfile []string
	signOuts       int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{profiles: map[string]domain.Profile{}, orders: map[string][]domain.Order{}}
}

func (f *fakeRemote) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Profile{}, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return domain.Profile{}, remote.ErrNotFound
	}
	return p, nil
}

func (f *fakeRemote) CreateProfile(ctx context.Context, id, email, name string) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := domain.Profile{ID: id, Email: email, FullName: name}
	f.profiles[id] = p
	f.createdProfile = append(f.createdProfile, name)
	return p, nil
}

func (f *fakeRemote) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	f.mu.Lock()
	f.lists++
	gate := f.listGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Order(nil), f.orders[userID]...), nil
}

func (f *fakeRemote) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeRemote) InsertOrder(ctx context.Context, userID string, o domain.Order) error {
	f.mu.Lock()
	f.inserts++
	gate, err := f.insertGate, f.insertErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[userID] = append([]domain.Order{o}, f.orders[userID]...)
	return nil
}

func (f *fakeRemote) CountOrders(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders[userID]), nil
}

func (f *fakeRemote) CountProfiles(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.profiles), nil
}

func (f *fakeRemote) SignIn(ctx context.Context, email, password string) error { return f.signInErr }

func (f *fakeRemote) SignUp(ctx context.Context, email, password, name string) error {
	return f.signUpErr
}

func (f *fakeRemote) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOuts++
	f.mu.Unlock()
	f.emit(domain.AuthEvent{Kind: domain.EventSignedOut})
	return f.signOutErr
}

func (f *fakeRemote) Subscribe(handler func(domain.AuthEvent)) func() {
	f.mu.Lock()
	f.handler = handler
	initial := f.initial
	f.mu.Unlock()
	handler(domain.AuthEvent{Kind: domain.EventInitialSession, User: initial})
	return func() {
		f.mu.Lock()
		f.handler = nil
		f.mu.Unlock()
	}
}

func (f *fakeRemote) emit(ev domain.AuthEvent) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (f *fakeRemote) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}
