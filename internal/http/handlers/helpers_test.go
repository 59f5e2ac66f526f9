package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"shopeasy/internal/config"
	"shopeasy/internal/domain"
	"shopeasy/internal/http/handlers"
	"shopeasy/internal/repos"
)

const templatesDir = "../../../web/templates"

// newApp builds an app with the production middleware chain (minus global
// rate limits) and hands it to register for routes.
func newApp(t *testing.T, register func(app *fiber.App, d *handlers.Deps)) (*fiber.App, *handlers.Deps, *sqlx.DB) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	cfg := config.Defaults()
	cfg.DBDSN = ":memory:"
	cfg.BcryptCost = 4
	deps := handlers.NewDeps(db, cfg)
	t.Cleanup(func() {
		deps.Clients.Close()
		_ = db.Close()
	})

	engine := html.New(templatesDir, ".html")
	app := fiber.New(fiber.Config{Views: engine})
	app.Server().MaxRequestBodySize = 1 << 20
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		ContextKey:     "csrf",
		Next:           func(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") },
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
	app.Use(handlers.Storefront(deps.Clients, false))
	register(app, deps)
	return app, deps, db
}

// browser keeps cookies between requests like a real client would.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func newBrowser(t *testing.T, app *fiber.App) *browser {
	return &browser{t: t, app: app, cookies: map[string]string{}}
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	for name, v := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: v})
	}
	resp, err := b.app.Test(req, -1)
	require.NoError(b.t, err)
	for _, c := range resp.Cookies() {
		b.cookies[c.Name] = c.Value
	}
	return resp
}

func (b *browser) get(path string) *http.Response {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// csrf makes sure the browser holds a token, fetching /login if needed.
func (b *browser) csrf() string {
	b.t.Helper()
	if tok := b.cookies["csrf_"]; tok != "" {
		return tok
	}
	b.get("/login")
	tok := b.cookies["csrf_"]
	require.NotEmpty(b.t, tok, "csrf token missing")
	return tok
}

func (b *browser) post(path string, fields url.Values) *http.Response {
	b.t.Helper()
	if fields == nil {
		fields = url.Values{}
	}
	fields.Set("csrf", b.csrf())
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(fields.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) json(method, path string, body any) *http.Response {
	b.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return b.do(req)
}

func (b *browser) login(email, password string) *http.Response {
	return b.post("/login", url.Values{"email": {email}, "password": {password}})
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	mu sync.Mutex
	w  bytes.Buffer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func (lw *lockedWriter) String() string {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.String()
}

// captureLogs swaps the standard logger output for the duration of fn.
// Background goroutines may still be logging, so a short grace period follows fn.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedWriter{}
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(buf)
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()
	time.Sleep(20 * time.Millisecond)

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findAction(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}

// shopRoutes mounts the storefront pages and the JSON API without rate limits.
func shopRoutes(app *fiber.App, d *handlers.Deps) {
	app.Get("/", d.ProductHandler.Home)
	app.Get("/products", d.ProductHandler.List)
	app.Get("/product/:id", d.ProductHandler.Detail)
	app.Get("/cart", d.CartHandler.View)
	app.Post("/cart", d.CartHandler.Add)
	app.Post("/cart/update", d.CartHandler.Update)
	app.Post("/cart/remove", d.CartHandler.Remove)
	app.Post("/cart/clear", d.CartHandler.Clear)
	app.Get("/wishlist", d.WishlistHandler.List)
	app.Post("/wishlist", d.WishlistHandler.Save)
	app.Post("/wishlist/delete", d.WishlistHandler.Unsave)
	app.Get("/login", d.AuthHandler.LoginForm)
	app.Post("/login", d.AuthHandler.Login)
	app.Post("/register", d.AuthHandler.Register)
	app.Post("/logout", d.AuthHandler.Logout)
	app.Get("/checkout", handlers.RequireUser(), d.OrderHandler.Checkout)
	app.Post("/checkout", handlers.RequireUser(), d.OrderHandler.Place)
	app.Get("/orders", handlers.RequireUser(), d.OrderHandler.History)
	app.Post("/orders/refresh", handlers.RequireUser(), d.OrderHandler.Refresh)
	app.Get("/profile", handlers.RequireUser(), d.ProfileHandler.Show)
	admin := app.Group("/admin", handlers.RequireAdmin())
	admin.Get("/", d.AdminHandler.Dashboard)
	admin.Get("/users/:id", d.AdminHandler.UserOrders)
	admin.Post("/orders/:id/status", d.AdminHandler.UpdateOrderStatus)

	api := app.Group("/api/v1")
	h := d.APIHandler
	api.Get("/products", h.Products)
	api.Get("/products/:id", h.Product)
	api.Get("/cart", h.Cart)
	api.Post("/cart/items", h.AddCartItem)
	api.Patch("/cart/items/:id", h.UpdateCartItem)
	api.Delete("/cart/items/:id", h.RemoveCartItem)
	api.Get("/wishlist", h.Wishlist)
	api.Post("/wishlist/items", h.AddWishlistItem)
	api.Get("/session", h.Session)
	api.Post("/auth/login", h.Login)
	api.Post("/auth/register", h.Register)
	api.Post("/auth/logout", h.Logout)
	api.Get("/orders", handlers.RequireUserAPI(), h.Orders)
	api.Post("/orders/refresh", handlers.RequireUserAPI(), h.RefreshOrders)
	api.Post("/checkout", handlers.RequireUserAPI(), h.Checkout)
	api.Get("/admin/dashboard", handlers.RequireAdminAPI(), h.Dashboard)
	api.Get("/admin/users/:id/orders", handlers.RequireAdminAPI(), h.UserOrders)
	api.Patch("/admin/orders/:id", handlers.RequireAdminAPI(), h.UpdateOrderStatus)
}

// formRequest builds a form POST without the csrf field.
func formRequest(path string, fields url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(fields.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

type sessionBody struct {
	Ready   bool            `json:"ready"`
	Session *domain.Session `json:"session"`
}

// waitSignedIn polls the session endpoint until the accepted sign-in lands.
func waitSignedIn(t *testing.T, b *browser) *domain.Session {
	t.Helper()
	var got sessionBody
	require.Eventually(t, func() bool {
		resp := b.get("/api/v1/session")
		if resp.StatusCode != http.StatusOK {
			return false
		}
		got = sessionBody{}
		decode(t, resp, &got)
		return got.Session != nil
	}, 3*time.Second, 20*time.Millisecond)
	return got.Session
}
