package remote

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"shopeasy/internal/domain"
	applog "shopeasy/internal/log"
)

// TokenKey is the local storage slot holding the client's auth token.
const TokenKey = "auth"

// TokenStore is the client's durable local storage.
type TokenStore interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Client is one browser's connection to the Store: it carries that browser's
// auth state and delivers auth events to its subscribers in emission order,
// on a goroutine of its own.
type Client struct {
	*Store

	tokens TokenStore

	mu        sync.Mutex
	user      *domain.AuthUser
	sessionID string
	subs      map[int]func(domain.AuthEvent)
	nextSub   int

	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// Connect creates a client and restores any session persisted in tokens.
func (s *Store) Connect(tokens TokenStore) *Client {
	c := &Client{
		Store:  s,
		tokens: tokens,
		subs:   map[int]func(domain.AuthEvent){},
		queue:  make(chan func(), 64),
		done:   make(chan struct{}),
	}
	c.restore()
	go c.dispatch()
	return c
}

func (c *Client) dispatch() {
	for {
		select {
		case fn := <-c.queue:
			fn()
		case <-c.done:
			return
		}
	}
}

// Close stops event delivery. Pending events are dropped.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) enqueue(fn func()) {
	select {
	case c.queue <- fn:
	case <-c.done:
	}
}

// emit must be called with c.mu held so events keep the order of the state changes.
func (c *Client) emit(ev domain.AuthEvent) {
	for _, h := range c.subs {
		c.enqueue(func() { h(ev) })
	}
}

// Subscribe registers handler for auth events. The handler first receives an
// initial-session event carrying the restored identity, or nil.
func (c *Client) Subscribe(handler func(domain.AuthEvent)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = handler
	ev := domain.AuthEvent{Kind: domain.EventInitialSession, User: copyUser(c.user)}
	c.enqueue(func() { handler(ev) })
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// User returns the signed-in identity, or nil.
func (c *Client) User() *domain.AuthUser {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyUser(c.user)
}

func (c *Client) restore() {
	raw, err := c.tokens.GetItem(TokenKey)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			applog.Warn(nil, "auth.restore.read.fail", err, nil)
		}
		return
	}
	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err == nil {
		var a *domain.Account
		if a, err = c.accounts.SessionAccount(claims.ID); err == nil && a.ID == claims.Subject {
			c.user = &domain.AuthUser{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
			c.sessionID = claims.ID
			return
		}
	}
	applog.Info(nil, "auth.restore.discard", map[string]any{"reason": errString(err)})
	_ = c.tokens.RemoveItem(TokenKey)
}

// SignIn verifies credentials and starts a session. The signed-in event follows asynchronously.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a, err := c.accounts.ByEmail(strings.TrimSpace(email))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return errors.Wrap(err, "lookup account")
	}
	if bcrypt.CompareHashAndPassword([]byte(a.Hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return c.startSession(a)
}

// SignUp creates an account. It signs in only when the store auto-confirms accounts.
func (c *Client) SignUp(ctx context.Context, email, password, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return &Error{Code: CodeValidation, Message: "Email is required"}
	}
	if len(password) < 6 {
		return ErrWeakPassword
	}
	taken, err := c.accounts.EmailTaken(email)
	if err != nil {
		return errors.Wrap(err, "check email")
	}
	if taken {
		return ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	a := domain.Account{ID: uuid.NewString(), Email: email, Name: strings.TrimSpace(name), Hash: string(hash), Role: domain.RoleUser}
	if err := c.accounts.Create(a); err != nil {
		return errors.Wrap(err, "create account")
	}
	if c.autoConfirm {
		return c.startSession(&a)
	}
	return nil
}

func (c *Client) startSession(a *domain.Account) error {
	jti := uuid.NewString()
	now := time.Now()
	exp := now.Add(c.ttl)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        jti,
		Subject:   a.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString(c.secret)
	if err != nil {
		return errors.Wrap(err, "sign token")
	}
	if err := c.accounts.BindSession(jti, a.ID, exp); err != nil {
		return errors.Wrap(err, "bind session")
	}
	if err := c.tokens.SetItem(TokenKey, tok); err != nil {
		// The session still works for this process; it just won't survive a restart.
		applog.Warn(nil, "auth.token.persist.fail", err, map[string]any{"account": a.ID})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID != "" && c.sessionID != jti {
		_ = c.accounts.UnbindSession(c.sessionID)
	}
	c.sessionID = jti
	c.user = &domain.AuthUser{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
	c.emit(domain.AuthEvent{Kind: domain.EventSignedIn, User: copyUser(c.user)})
	return nil
}

// SignOut ends the session locally even when revoking it remotely fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.sessionID != "" {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else if uerr := c.accounts.UnbindSession(c.sessionID); uerr != nil {
			err = errors.Wrap(uerr, "revoke session")
		}
	}
	if rerr := c.tokens.RemoveItem(TokenKey); rerr != nil && err == nil {
		err = errors.Wrap(rerr, "remove token")
	}
	c.sessionID = ""
	c.user = nil
	c.emit(domain.AuthEvent{Kind: domain.EventSignedOut})
	return err
}

func copyUser(u *domain.AuthUser) *domain.AuthUser {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func errString(err error) string {
	if err == nil {
		return "session mismatch"
	}
	return err.Error()
}
