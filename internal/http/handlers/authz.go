package handlers

import (
	"strings"

	"campusswap/internal/domain"
	applog "campusswap/internal/log"
	"campusswap/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AttachUser puts the cookie session's user into Locals for pages. API
// requests are skipped; they authenticate with a bearer token instead.
func AttachUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Next()
		}
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := auth.CurrentUser(c.UserContext(), sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	}
}

func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Redirect("/login")
		}
		u, err := auth.CurrentUser(c.UserContext(), sid)
		if err != nil || u == nil || !u.IsAdmin() {
			applog.Security(c, "access.denied.admin", map[string]any{"sid": sid})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// RequireUser enforces that a user is logged in; otherwise redirect to login.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Redirect("/login")
		}
		u, err := auth.CurrentUser(c.UserContext(), sid)
		if err != nil || u == nil {
			return c.Redirect("/login")
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// APIAuth resolves "Authorization: Bearer <session token>" into Locals.
// Anonymous requests pass through; handlers that need a caller reject them.
func APIAuth(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		if h == "" {
			return c.Next()
		}
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(tok) == "" {
			applog.Security(c, "api.auth.malformed", nil)
			return apiError(c, "api.auth", errUnauthorized)
		}
		u, err := auth.CurrentUser(c.UserContext(), strings.TrimSpace(tok))
		if err != nil || u == nil {
			applog.Security(c, "api.auth.unknown_token", nil)
			return apiError(c, "api.auth", errUnauthorized)
		}
		c.Locals("user", u)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

// principal returns the caller, or errUnauthorized for anonymous requests.
func principal(c *fiber.Ctx) (domain.Principal, error) {
	u := currentUser(c)
	if u == nil {
		return domain.Principal{}, errUnauthorized
	}
	return u.Principal(), nil
}

func isAPI(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") }
