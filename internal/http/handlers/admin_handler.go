package handlers

import (
	applog "campusswap/internal/log"
	"campusswap/internal/services"
	"campusswap/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	Admin     *services.AdminService
	Txns      *services.TransactionService
	Penalties *services.PenaltyService
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	st, err := h.Admin.Stats(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.stats.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load dashboard"})
	}
	return render(c, "admin_dashboard", fiber.Map{"Stats": st})
}

// GET /admin/transactions?status=late
func (h *AdminHandler) TransactionsPage(c *fiber.Ctx) error {
	status := c.Query("status")
	txns, err := h.Txns.ListLatest(c.UserContext(), status, 100)
	if err != nil {
		applog.Error(c, "admin.transactions.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load transactions"})
	}
	return render(c, "admin_transactions", fiber.Map{"Transactions": txns, "Status": status})
}

// GET /admin/penalties
func (h *AdminHandler) PenaltiesPage(c *fiber.Ctx) error {
	pens, err := h.Penalties.ListPending(c.UserContext(), 100)
	if err != nil {
		applog.Error(c, "admin.penalties.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load penalties"})
	}
	return render(c, "admin_penalties", fiber.Map{"Penalties": pens})
}

// POST /admin/penalties/:id/waive
func (h *AdminHandler) WaivePenalty(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(400).SendString("missing id")
	}
	pen, err := h.Penalties.Waive(c.UserContext(), currentUser(c).Principal(), id)
	if err != nil {
		return pageError(c, "admin.penalties.waive", err)
	}
	applog.Audit(c, "admin.penalties.waive", map[string]any{"penalty_id": id, "transaction_id": pen.TransactionID})
	return c.Redirect("/admin/penalties")
}

// UsersPage lists users (excluding admin).
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	users, err := h.Admin.ListUsers(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.users.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load users"})
	}
	return render(c, "admin_users", fiber.Map{"Users": users})
}

// DeleteUser deletes a user and related data, freeing items they held.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(400).SendString("missing id")
	}
	if err := h.Admin.DeleteUser(c.UserContext(), id); err != nil {
		applog.Error(c, "admin.users.delete.fail", err, map[string]any{"user_id": id})
		return c.Status(400).SendString("could not delete user")
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"user_id": id})
	return c.Redirect("/admin/users")
}
