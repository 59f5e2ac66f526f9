package handlers

import (
	"context"
	"time"

	"shopeasy/internal/domain"
	"shopeasy/internal/log"
	"shopeasy/internal/validate"

	"github.com/gofiber/fiber/v2"
)

// sessionWait bounds how long a sign-in request waits for the session to materialize.
const sessionWait = 3 * time.Second

type AuthHandler struct {
	AutoConfirm bool
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": "", "Msg": c.Query("msg")})
}

func (h *AuthHandler) loginFail(c *fiber.Ctx, status int, email, reason, msg string) error {
	log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": reason})
	c.Status(status)
	return render(c, "login", fiber.Map{"Err": msg, "Email": email})
}

// awaitSignedIn waits until the session event for a successful sign-in has been applied.
func awaitSignedIn(c *fiber.Ctx) *domain.Session {
	ctx, cancel := context.WithTimeout(c.UserContext(), sessionWait)
	defer cancel()
	sess, err := storefront(c).Session.Await(ctx, func(s *domain.Session) bool { return s != nil })
	if err != nil {
		log.Warn(c, "auth.session.wait.fail", err, nil)
		return nil
	}
	setUser(c, sess)
	return sess
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	email := c.FormValue("email")
	pass := c.FormValue("password")
	if _, ok := validate.Email(email); !ok {
		return h.loginFail(c, fiber.StatusUnauthorized, email, "bad_format", "Invalid email or password")
	}
	if pass == "" {
		return h.loginFail(c, fiber.StatusUnauthorized, email, "empty_password", "Invalid email or password")
	}

	res := storefront(c).Session.Login(c.UserContext(), email, pass)
	if !res.OK {
		return h.loginFail(c, fiber.StatusUnauthorized, email, "rejected", res.Error)
	}
	awaitSignedIn(c)
	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.Redirect("/")
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	name, okName := validate.Name(c.FormValue("name"))
	email, okEmail := validate.Email(c.FormValue("email"))
	pass := c.FormValue("password")
	if !okName || !okEmail || !validate.Password(pass) {
		log.Security(c, "auth.register.fail", map[string]any{"email": email, "reason": "bad_format"})
		c.Status(fiber.StatusBadRequest)
		return render(c, "login", fiber.Map{
			"RegErr": "Enter a name, a valid email and a password of at least 6 characters",
			"Name":   name, "RegEmail": email,
		})
	}

	res := storefront(c).Session.Register(c.UserContext(), name, email, pass)
	if !res.OK {
		log.Security(c, "auth.register.fail", map[string]any{"email": email, "reason": "rejected"})
		c.Status(fiber.StatusBadRequest)
		return render(c, "login", fiber.Map{"RegErr": res.Error, "Name": name, "RegEmail": email})
	}
	log.Audit(c, "auth.register", map[string]any{"email": email})
	if h.AutoConfirm {
		awaitSignedIn(c)
		return c.Redirect("/")
	}
	return c.Redirect("/login?msg=Account+created.+Please+sign+in.")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	u := currentUser(c)
	storefront(c).Session.Logout(c.UserContext())
	fields := map[string]any{}
	if u != nil {
		fields["user"] = u.ID
	}
	log.Audit(c, "auth.logout", fields)
	setUser(c, nil)
	return c.Redirect("/")
}
