package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"campusswap/internal/domain"
	applog "campusswap/internal/log"
)

var (
	errUnauthorized = errors.New("login required")
	errBadBody      = domain.Invalid("body")
)

type errorKind struct {
	target error
	status int
	code   string
}

// Ordered: the first matching target wins.
var errorKinds = []errorKind{
	{errUnauthorized, fiber.StatusUnauthorized, "unauthorized"},
	{domain.ErrNotFound, fiber.StatusNotFound, "not_found"},
	{domain.ErrForbidden, fiber.StatusForbidden, "forbidden"},
	{domain.ErrNotParticipant, fiber.StatusForbidden, "not_participant"},
	{domain.ErrItemUnavailable, fiber.StatusConflict, "item_unavailable"},
	{domain.ErrInvalidState, fiber.StatusConflict, "invalid_state"},
	{domain.ErrTransactionNotCompleted, fiber.StatusConflict, "transaction_not_completed"},
	{domain.ErrDuplicateRating, fiber.StatusConflict, "duplicate_rating"},
	{domain.ErrTooManyPending, fiber.StatusConflict, "too_many_pending"},
	{domain.ErrIncompatibleType, fiber.StatusUnprocessableEntity, "incompatible_type"},
	{domain.ErrOwnItem, fiber.StatusUnprocessableEntity, "own_item"},
	{domain.ErrInvalidScore, fiber.StatusUnprocessableEntity, "invalid_score"},
	{domain.ErrMissingField, fiber.StatusUnprocessableEntity, "missing_field"},
	{domain.ErrInvalidField, fiber.StatusUnprocessableEntity, "invalid_field"},
}

// classify maps a service error to an HTTP status, a stable code and a
// message safe to show. Unknown errors become a 500 with a generic message.
func classify(err error) (int, string, string) {
	if domain.IsConflict(err) {
		return fiber.StatusConflict, "conflict", "the request conflicted with another update, please retry"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.status, k.code, err.Error()
		}
	}
	return fiber.StatusInternalServerError, "internal", "something went wrong"
}

func apiError(c *fiber.Ctx, action string, err error) error {
	status, code, msg := classify(err)
	logFailure(c, action, status, err)
	return c.Status(status).JSON(fiber.Map{"error": code, "message": msg})
}

// pageError renders the error page for a failed form action.
func pageError(c *fiber.Ctx, action string, err error) error {
	status, _, msg := classify(err)
	logFailure(c, action, status, err)
	if status == fiber.StatusUnauthorized {
		return c.Redirect("/login")
	}
	return c.Status(status).Render("notfound", fiber.Map{"Message": msg})
}

func logFailure(c *fiber.Ctx, action string, status int, err error) {
	switch {
	case status >= 500:
		applog.Error(c, action+".fail", err, nil)
	case status == fiber.StatusForbidden || status == fiber.StatusUnauthorized:
		applog.Security(c, action+".denied", map[string]any{"reason": err.Error()})
	default:
		applog.Info(c, action+".rejected", map[string]any{"reason": err.Error()})
	}
}

// ErrorHandler is the app-level fallback for errors no handler rendered.
// Internals are logged, never shown.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < 500 {
		status, msg = fe.Code, fe.Message
		applog.Info(c, "server.client_error", map[string]any{"status": status, "reason": fe.Message})
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		code := "internal"
		if status < 500 {
			code = "bad_request"
		}
		return c.Status(status).JSON(fiber.Map{"error": code, "message": msg})
	}
	// best-effort render
	if rerr := c.Status(status).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(status).SendString(msg)
	}
	return nil
}
