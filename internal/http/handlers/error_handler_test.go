package handlers_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	applog "shopeasy/internal/log"
)

func errorApp() *fiber.App {
	engine := html.New(templatesDir, ".html")
	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			if strings.HasPrefix(c.Path(), "/api/") {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
			}
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	boom := func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	}
	app.Get("/err", boom)
	app.Get("/api/v1/err", boom)
	app.Get("/api/v1/panic", func(c *fiber.Ctx) error {
		var sess *struct{ Orders []string }
		return c.JSON(sess.Orders)
	})
	return app
}

// Friendly error surface, no internal leakage.
func TestErrorHandlerFriendlyMessage(t *testing.T) {
	app := errorApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/err", nil))
	if err != nil {
		t.Fatalf("test request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	s := string(body)
	if !strings.Contains(s, "Something went wrong") {
		t.Fatalf("friendly message missing; body=%s", s)
	}
	if strings.Contains(s, "db timeout") || strings.Contains(s, "secret") {
		t.Fatalf("internal details leaked to user; body=%s", s)
	}
}

func TestErrorHandlerJSONForAPI(t *testing.T) {
	app := errorApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/err", nil))
	if err != nil {
		t.Fatalf("test request failed: %v", err)
	}
	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["error"] != "internal error" {
		t.Fatalf("unexpected body %v", got)
	}
}

// A panicking handler becomes a 500 instead of taking the server down.
func TestPanicIsRecovered(t *testing.T) {
	app := errorApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/panic", nil))
	if err != nil {
		t.Fatalf("test request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	resp, err = app.Test(httptest.NewRequest("GET", "/err", nil))
	if err != nil || resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("server unusable after panic: %v", err)
	}
}
