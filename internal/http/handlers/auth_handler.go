package handlers

import (
	"errors"
	"time"

	"campusswap/internal/log"
	"campusswap/internal/services"
	"campusswap/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false,
		})
	}
	return sid
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	email := c.FormValue("email")
	pass := c.FormValue("password")
	fail := func(reason string) error {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": reason})
		c.Status(fiber.StatusUnauthorized)
		return render(c, "login", fiber.Map{"Err": "Invalid email or password"})
	}
	if _, ok := validate.Email(email); !ok {
		return fail("bad_format")
	}
	if !validate.Password(pass) {
		return fail("bad_password_format")
	}
	if _, err := h.Auth.Login(c.UserContext(), sid, email, pass); err != nil {
		return fail("bad_credentials")
	}

	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.Redirect("/")
}

func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return render(c, "register", fiber.Map{"Err": ""})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	sid := ensureSID(c)
	email, okEmail := validate.Email(c.FormValue("email"))
	name, okName := validate.Name(c.FormValue("name"))
	pass := c.FormValue("password")
	if !okEmail || !okName || !validate.Password(pass) {
		log.Security(c, "validation.fail", map[string]any{"form": "register"})
		c.Status(fiber.StatusUnprocessableEntity)
		return render(c, "register", fiber.Map{
			"Err": "Enter a valid email, a name, and a password of 8+ characters mixing cases, digits and symbols",
		})
	}
	if _, err := h.Auth.Register(c.UserContext(), sid, email, name, pass); err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.Status(fiber.StatusConflict)
			return render(c, "register", fiber.Map{"Err": "That email is already registered"})
		}
		log.Error(c, "auth.register.fail", err, nil)
		return err
	}
	log.Audit(c, "auth.register.success", map[string]any{"email": email})
	return c.Redirect("/")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	_ = h.Auth.Logout(c.UserContext(), sid)
	// Expire cookie
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.Redirect("/")
}

type apiLogin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// APILogin issues a bearer session token. POST /api/v1/sessions
func (h *AuthHandler) APILogin(c *fiber.Ctx) error {
	var in apiLogin
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, "api.login", errBadBody)
	}
	email, ok := validate.Email(in.Email)
	if !ok || !validate.Password(in.Password) {
		log.Security(c, "auth.login.fail", map[string]any{"email": in.Email, "reason": "bad_format", "api": true})
		return apiError(c, "api.login", errUnauthorized)
	}
	sid := uuid.NewString()
	u, err := h.Auth.Login(c.UserContext(), sid, email, in.Password)
	if err != nil {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "api": true})
		return apiError(c, "api.login", errUnauthorized)
	}
	log.Audit(c, "auth.login.success", map[string]any{"email": email, "api": true})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": sid, "user_id": u.ID, "role": u.Role})
}
