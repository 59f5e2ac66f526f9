package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"shopeasy/internal/config"
	"shopeasy/internal/http/handlers"
	applog "shopeasy/internal/log"
	"shopeasy/internal/repos"
)

const (
	clientIdle    = 30 * time.Minute
	sweepInterval = 5 * time.Minute
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	deps := handlers.NewDeps(db, cfg)

	// Templates & app
	engine := html.New(cfg.TemplatesDir, ".html")
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			if strings.HasPrefix(c.Path(), "/api/") {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
			}
			// Avoid leaking internals; best-effort render
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/static/")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		ContextKey:     "csrf",
		// The JSON API authenticates by cookie too but is not form-driven.
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"form": c.FormValue("csrf")})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
	app.Use(handlers.Storefront(deps.Clients, cfg.CookieSecure))

	// ---------- Static assets ----------
	app.Static("/static", cfg.StaticDir)

	// ---------- App handlers ----------
	app.Get("/", deps.ProductHandler.Home)
	app.Get("/products", limiter.New(limiter.Config{Max: 30, Expiration: time.Minute}), deps.ProductHandler.List)
	app.Get("/product/:id", deps.ProductHandler.Detail)

	app.Get("/cart", deps.CartHandler.View)
	app.Post("/cart", deps.CartHandler.Add)
	app.Post("/cart/update", deps.CartHandler.Update)
	app.Post("/cart/remove", deps.CartHandler.Remove)
	app.Post("/cart/clear", deps.CartHandler.Clear)

	app.Get("/wishlist", deps.WishlistHandler.List)
	app.Post("/wishlist", deps.WishlistHandler.Save)
	app.Post("/wishlist/delete", deps.WishlistHandler.Unsave)

	loginLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	})
	app.Get("/login", deps.AuthHandler.LoginForm)
	app.Post("/login", loginLimiter, deps.AuthHandler.Login)
	app.Post("/register", loginLimiter, deps.AuthHandler.Register)
	app.Post("/logout", deps.AuthHandler.Logout)

	app.Get("/checkout", handlers.RequireUser(), deps.OrderHandler.Checkout)
	app.Post("/checkout", handlers.RequireUser(), deps.OrderHandler.Place)
	app.Get("/orders", handlers.RequireUser(), deps.OrderHandler.History)
	app.Post("/orders/refresh", handlers.RequireUser(), deps.OrderHandler.Refresh)
	app.Get("/profile", handlers.RequireUser(), deps.ProfileHandler.Show)

	admin := app.Group("/admin", handlers.RequireAdmin())
	admin.Get("/", deps.AdminHandler.Dashboard)
	admin.Get("/users/:id", deps.AdminHandler.UserOrders)
	admin.Post("/orders/:id/status", deps.AdminHandler.UpdateOrderStatus)

	// API
	api := app.Group("/api/v1")
	apiH := deps.APIHandler
	api.Get("/products", apiH.Products)
	api.Get("/products/:id", apiH.Product)
	api.Get("/cart", apiH.Cart)
	api.Post("/cart/items", apiH.AddCartItem)
	api.Patch("/cart/items/:id", apiH.UpdateCartItem)
	api.Delete("/cart/items/:id", apiH.RemoveCartItem)
	api.Delete("/cart", apiH.ClearCart)
	api.Get("/wishlist", apiH.Wishlist)
	api.Post("/wishlist/items", apiH.AddWishlistItem)
	api.Delete("/wishlist/items/:id", apiH.RemoveWishlistItem)
	api.Delete("/wishlist", apiH.ClearWishlist)
	api.Get("/session", apiH.Session)
	authLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|api-auth"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
	api.Post("/auth/login", authLimiter, apiH.Login)
	api.Post("/auth/register", authLimiter, apiH.Register)
	api.Post("/auth/logout", apiH.Logout)
	api.Get("/orders", handlers.RequireUserAPI(), apiH.Orders)
	api.Post("/orders/refresh", handlers.RequireUserAPI(), apiH.RefreshOrders)
	api.Post("/checkout", handlers.RequireUserAPI(), apiH.Checkout)
	api.Get("/admin/dashboard", handlers.RequireAdminAPI(), apiH.Dashboard)
	api.Get("/admin/users/:id/orders", handlers.RequireAdminAPI(), apiH.UserOrders)
	api.Patch("/admin/orders/:id", handlers.RequireAdminAPI(), apiH.UpdateOrderStatus)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	// Idle clients are dropped from memory; their state lives on in local storage.
	stopSweep := make(chan struct{})
	go func() {
		t := time.NewTicker(sweepInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				n := deps.Clients.Evict(clientIdle)
				purged, err := deps.Store.PurgeExpiredSessions()
				if err != nil {
					applog.Warn(nil, "sweep.sessions.fail", err, nil)
				}
				applog.Info(nil, "sweep", map[string]any{"evicted": n, "sessions_purged": purged, "clients": deps.Clients.Len()})
			case <-stopSweep:
				return
			}
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		close(stopSweep)
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			applog.Warn(nil, "server.shutdown.fail", err, nil)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("[error] listen: %v", err)
	}
	deps.Clients.Close()
	applog.Info(nil, "server.stopped", nil)
}
