package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"shopeasy/internal/domain"
	applog "shopeasy/internal/log"
	"shopeasy/internal/services"
	"shopeasy/internal/validate"
)

const (
	sfKey   = "storefront"
	userKey = "user"

	// readyWait bounds how long a request waits for a new client's session restore.
	readyWait = 2 * time.Second
)

func ensureSID(c *fiber.Ctx, secure bool) string {
	sid, ok := validate.ID(c.Cookies("sid"))
	if !ok {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   secure,
		})
	}
	return sid
}

// Storefront attaches the client's state bundle and, when signed in, its session.
func Storefront(clients *services.Clients, secureCookie bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/static/") || c.Path() == "/healthz" {
			return c.Next()
		}
		sf := clients.Get(ensureSID(c, secureCookie))
		ctx, cancel := context.WithTimeout(c.UserContext(), readyWait)
		err := sf.Session.WaitReady(ctx)
		cancel()
		if err != nil {
			applog.Warn(c, "session.ready.timeout", err, nil)
		}
		c.Locals(sfKey, sf)
		setUser(c, sf.Session.Current())
		return c.Next()
	}
}

func setUser(c *fiber.Ctx, u *domain.Session) {
	if u == nil {
		c.Locals(userKey, nil)
		c.Locals(applog.UserKey, nil)
		return
	}
	c.Locals(userKey, u)
	c.Locals(applog.UserKey, u.ID)
}

func storefront(c *fiber.Ctx) *services.Storefront {
	sf, _ := c.Locals(sfKey).(*services.Storefront)
	return sf
}

func currentUser(c *fiber.Ctx) *domain.Session {
	u, _ := c.Locals(userKey).(*domain.Session)
	return u
}

func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil {
			return c.Redirect("/login")
		}
		if !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"user": u.ID})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
		}
		return c.Next()
	}
}

// RequireUser enforces that a user is logged in; otherwise redirect to login.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			return c.Redirect("/login")
		}
		return c.Next()
	}
}

// RequireUserAPI is RequireUser for JSON routes.
func RequireUserAPI() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign in required"})
		}
		return c.Next()
	}
}

func RequireAdminAPI() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign in required"})
		}
		if !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"user": u.ID})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}
		return c.Next()
	}
}
