package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"shopeasy/internal/domain"
	applog "shopeasy/internal/log"
	"shopeasy/internal/remote"
)

var (
	ErrNoSession    = errors.New("no active session")
	ErrOrderPending = errors.New("order already being submitted")
)

// DefaultProfileName is used when a new identity carries no display name.
const DefaultProfileName = "User"

const eventTimeout = 10 * time.Second

// AuthResult is what Login and Register hand back to the caller.
type AuthResult struct {
	OK    bool   `json:"success"`
	Error string `json:"error,omitempty"`
}

// SessionContainer holds the signed-in identity and its order history.
// Auth events are queued on an inbox and applied by Run; callers never wait on them.
type SessionContainer struct {
	remote RemoteStore
	inbox  chan domain.AuthEvent

	mu      sync.RWMutex
	session *domain.Session
	changed chan struct{}
	pending map[string]bool

	readyOnce sync.Once
	ready     chan struct{}
}

func NewSessionContainer(rs RemoteStore) *SessionContainer {
	return &SessionContainer{
		remote:  rs,
		inbox:   make(chan domain.AuthEvent, 16),
		changed: make(chan struct{}),
		pending: map[string]bool{},
		ready:   make(chan struct{}),
	}
}

// Run subscribes to auth events and applies them until ctx is done.
func (s *SessionContainer) Run(ctx context.Context) {
	unsubscribe := s.remote.Subscribe(func(ev domain.AuthEvent) {
		select {
		case s.inbox <- ev:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.inbox:
			ectx, cancel := context.WithTimeout(ctx, eventTimeout)
			s.handle(ectx, ev)
			cancel()
			if ev.Kind == domain.EventInitialSession {
				s.readyOnce.Do(func() { close(s.ready) })
			}
		}
	}
}

func (s *SessionContainer) handle(ctx context.Context, ev domain.AuthEvent) {
	if ev.Kind == domain.EventSignedOut || ev.User == nil {
		s.publish(nil)
		return
	}
	sess, err := s.resolve(ctx, ev.User)
	if err != nil {
		applog.Error(nil, "session.resolve.fail", err, nil)
		return
	}
	s.publish(sess)
}

// resolve loads (or provisions) the profile and order history for u.
func (s *SessionContainer) resolve(ctx context.Context, u *domain.AuthUser) (*domain.Session, error) {
	p, err := s.remote.GetProfile(ctx, u.ID)
	if errors.Is(err, remote.ErrNotFound) {
		name := u.Name
		if name == "" {
			name = DefaultProfileName
		}
		p, err = s.remote.CreateProfile(ctx, u.ID, u.Email, name)
		if err != nil {
			applog.Error(nil, "session.profile.create.fail", err, nil)
			return nil, err
		}
		applog.Audit(nil, "session.profile.create", map[string]any{"user": u.ID})
	} else if err != nil {
		return nil, err
	}

	orders, err := s.remote.ListOrders(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &domain.Session{ID: p.ID, Email: p.Email, Name: p.FullName, Role: u.Role, Orders: orders}, nil
}

func (s *SessionContainer) publish(sess *domain.Session) {
	s.mu.Lock()
	s.setLocked(sess)
	s.mu.Unlock()
}

// setLocked replaces the session and wakes Await callers. s.mu must be held.
func (s *SessionContainer) setLocked(sess *domain.Session) {
	s.session = sess
	close(s.changed)
	s.changed = make(chan struct{})
}

// Login requests a sign-in. Success means the request was accepted; the session follows via Run.
func (s *SessionContainer) Login(ctx context.Context, email, password string) AuthResult {
	return authResult(s.remote.SignIn(ctx, email, password), "session.login.fail")
}

// Register creates an account. It does not sign in unless the remote auto-confirms.
func (s *SessionContainer) Register(ctx context.Context, name, email, password string) AuthResult {
	return authResult(s.remote.SignUp(ctx, email, password, name), "session.register.fail")
}

func authResult(err error, action string) AuthResult {
	if err == nil {
		return AuthResult{OK: true}
	}
	var rerr *remote.Error
	if errors.As(err, &rerr) {
		return AuthResult{Error: rerr.Message}
	}
	applog.Error(nil, action, err, nil)
	return AuthResult{Error: "An unexpected error occurred"}
}

// Logout asks the remote to sign out and clears the local session whatever the outcome.
func (s *SessionContainer) Logout(ctx context.Context) {
	if err := s.remote.SignOut(ctx); err != nil {
		applog.Warn(nil, "session.logout.fail", err, nil)
	}
	s.publish(nil)
}

// AddOrder writes o remotely and, once that succeeds, prepends it to the local history.
func (s *SessionContainer) AddOrder(ctx context.Context, o domain.Order) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoSession
	}
	if s.pending[o.ID] {
		s.mu.Unlock()
		return ErrOrderPending
	}
	s.pending[o.ID] = true
	userID := s.session.ID
	s.mu.Unlock()

	err := s.remote.InsertOrder(ctx, userID, o)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, o.ID)
	if err != nil {
		applog.Error(nil, "session.order.insert.fail", err, nil)
		return err
	}
	// The user may have signed out or switched while the insert was in flight.
	if s.session != nil && s.session.ID == userID {
		next := *s.session
		next.Orders = append([]domain.Order{o}, s.session.Orders...)
		s.setLocked(&next)
	}
	applog.Audit(nil, "session.order.add", map[string]any{"user": userID, "order": o.ID, "total": o.Total.StringFixed(2)})
	return nil
}

// Reload re-fetches the order history of the current identity and returns the
// refreshed session. ErrNoSession means nobody is signed in, or the identity
// changed while the history was loading.
func (s *SessionContainer) Reload(ctx context.Context) (*domain.Session, error) {
	cur := s.Current()
	if cur == nil {
		return nil, ErrNoSession
	}
	orders, err := s.remote.ListOrders(ctx, cur.ID)
	if err != nil {
		applog.Error(nil, "session.reload.fail", err, nil)
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.ID != cur.ID {
		return nil, ErrNoSession
	}
	next := *s.session
	next.Orders = orders
	s.setLocked(&next)
	out := next
	out.Orders = append([]domain.Order(nil), orders...)
	return &out, nil
}

// Current returns a copy of the session, or nil when signed out.
func (s *SessionContainer) Current() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	cp.Orders = append([]domain.Order(nil), s.session.Orders...)
	return &cp
}

// Await blocks until cond holds for the current session (possibly nil) or ctx is done.
func (s *SessionContainer) Await(ctx context.Context, cond func(*domain.Session) bool) (*domain.Session, error) {
	for {
		s.mu.RLock()
		cur, changed := s.session, s.changed
		s.mu.RUnlock()
		if cond(cur) {
			return s.Current(), nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Ready reports whether the initial session event has been applied.
func (s *SessionContainer) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

func (s *SessionContainer) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
