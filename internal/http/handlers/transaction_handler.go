package handlers

import (
	"context"
	"errors"

	"campusswap/internal/domain"
	"campusswap/internal/log"
	"campusswap/internal/services"
	"campusswap/internal/validate"

	"github.com/gofiber/fiber/v2"
)

// TransactionHandler serves the form-driven lifecycle pages. Every action
// redirects back to the transaction page on success.
type TransactionHandler struct {
	Catalog   *services.CatalogService
	Txns      *services.TransactionService
	Penalties *services.PenaltyService
	Ratings   *services.RatingService
}

// GET /items/:id/request
func (h *TransactionHandler) RequestForm(c *fiber.Ctx) error {
	it, err := h.Catalog.GetItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This item is no longer listed"})
	}
	avail, _ := h.Catalog.Availability(c.UserContext(), it.ID)
	return render(c, "request", fiber.Map{"Item": it, "Availability": avail})
}

// POST /items/:id/request
func (h *TransactionHandler) Request(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return pageError(c, "transactions.create", err)
	}
	itemID, ok := validate.ID(c.Params("id"))
	if !ok {
		return pageError(c, "transactions.create", domain.ErrNotFound)
	}
	req, bad := requestForm(c)
	if bad != "" {
		log.Security(c, "validation.fail", map[string]any{"field": bad})
		return pageError(c, "transactions.create", domain.Invalid(bad))
	}
	req.ItemID = itemID
	t, err := h.Txns.Create(c.UserContext(), p, req)
	if err != nil {
		return pageError(c, "transactions.create", err)
	}
	log.Audit(c, "transactions.create", map[string]any{"transaction_id": t.ID, "item_id": itemID, "type": t.Type})
	return c.Redirect("/transactions/" + t.ID)
}

func requestForm(c *fiber.Ctx) (services.CreateRequest, string) {
	typ, ok := validate.TxnType(c.FormValue("type"))
	if !ok {
		return services.CreateRequest{}, "type"
	}
	deposit, ok := validate.Money(c.FormValue("deposit_amount"))
	if !ok {
		return services.CreateRequest{}, "deposit_amount"
	}
	price, ok := validate.Money(c.FormValue("final_price"))
	if !ok {
		return services.CreateRequest{}, "final_price"
	}
	start, ok := validate.Date(c.FormValue("start_date"))
	if !ok {
		return services.CreateRequest{}, "start_date"
	}
	due, ok := validate.Date(c.FormValue("due_date"))
	if !ok {
		return services.CreateRequest{}, "due_date"
	}
	return services.CreateRequest{Type: typ, Deposit: deposit, FinalPrice: price, StartDate: start, DueDate: due}, ""
}

// GET /transactions
func (h *TransactionHandler) Mine(c *fiber.Ctx) error {
	u := currentUser(c)
	txns, err := h.Txns.ListForUser(c.UserContext(), u.ID)
	if err != nil {
		log.Error(c, "transactions.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load your transactions"})
	}
	return render(c, "transactions", fiber.Map{"Transactions": txns})
}

// GET /transactions/:id
func (h *TransactionHandler) Detail(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return pageError(c, "transactions.view", err)
	}
	ctx := c.UserContext()
	t, err := h.Txns.Get(ctx, p, c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Security(c, "transactions.view.denied", map[string]any{"transaction_id": c.Params("id")})
		}
		return pageError(c, "transactions.view", err)
	}
	data := fiber.Map{
		"T":          t,
		"IsOwner":    t.OwnerID == p.ID,
		"IsBorrower": t.BorrowerID == p.ID,
		"CanManage":  t.OwnerID == p.ID || p.Admin,
	}
	if pen, err := h.Penalties.ForTransaction(ctx, t.ID); err == nil {
		data["Penalty"] = pen
	}
	ratings, _ := h.Ratings.ForTransaction(ctx, t.ID)
	data["Ratings"] = ratings
	rated := false
	for _, r := range ratings {
		if r.RaterID == p.ID {
			rated = true
		}
	}
	data["CanRate"] = t.Status == domain.TxnCompleted && t.IsParticipant(p.ID) && !rated
	return render(c, "transaction", data)
}

type lifecycleStep func(c *fiber.Ctx, p domain.Principal, id string) error

// step runs a lifecycle action for the caller and redirects back.
func (h *TransactionHandler) step(action string, fn lifecycleStep) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return pageError(c, action, err)
		}
		id, ok := validate.ID(c.Params("id"))
		if !ok {
			return pageError(c, action, domain.ErrNotFound)
		}
		if err := fn(c, p, id); err != nil {
			return pageError(c, action, err)
		}
		log.Audit(c, action, map[string]any{"transaction_id": id})
		return c.Redirect("/transactions/" + id)
	}
}

// POST /transactions/:id/confirm
func (h *TransactionHandler) Confirm() fiber.Handler {
	return h.step("transactions.confirm", func(c *fiber.Ctx, p domain.Principal, id string) error {
		_, err := h.Txns.Confirm(c.UserContext(), p, id)
		return err
	})
}

// POST /transactions/:id/cancel
func (h *TransactionHandler) Cancel() fiber.Handler {
	return h.step("transactions.cancel", func(c *fiber.Ctx, p domain.Principal, id string) error {
		_, err := h.Txns.Cancel(c.UserContext(), p, id)
		return err
	})
}

// POST /transactions/:id/complete
func (h *TransactionHandler) Complete() fiber.Handler {
	return h.step("transactions.complete", func(c *fiber.Ctx, p domain.Principal, id string) error {
		rd, ok := validate.Date(c.FormValue("return_date"))
		if !ok {
			return domain.Invalid("return_date")
		}
		_, _, err := h.Txns.Complete(c.UserContext(), p, id, rd)
		return err
	})
}

// POST /transactions/:id/resolve
func (h *TransactionHandler) Resolve() fiber.Handler {
	return h.step("transactions.resolve", func(c *fiber.Ctx, p domain.Principal, id string) error {
		_, err := h.Txns.ResolveLate(c.UserContext(), p, id)
		return err
	})
}

// POST /transactions/:id/penalty/pay
func (h *TransactionHandler) PayPenalty() fiber.Handler {
	return h.step("penalties.pay", func(c *fiber.Ctx, p domain.Principal, id string) error {
		return h.resolvePenalty(c, p, id, h.Penalties.MarkPaid)
	})
}

// POST /transactions/:id/penalty/waive
func (h *TransactionHandler) WaivePenalty() fiber.Handler {
	return h.step("penalties.waive", func(c *fiber.Ctx, p domain.Principal, id string) error {
		return h.resolvePenalty(c, p, id, h.Penalties.Waive)
	})
}

func (h *TransactionHandler) resolvePenalty(c *fiber.Ctx, p domain.Principal, txnID string,
	fn func(ctx context.Context, p domain.Principal, id string) (domain.Penalty, error)) error {
	ctx := c.UserContext()
	// Get enforces visibility before the penalty id is looked up.
	if _, err := h.Txns.Get(ctx, p, txnID); err != nil {
		return err
	}
	pen, err := h.Penalties.ForTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	_, err = fn(ctx, p, pen.ID)
	return err
}

// POST /transactions/:id/ratings
func (h *TransactionHandler) Rate() fiber.Handler {
	return h.step("ratings.submit", func(c *fiber.Ctx, p domain.Principal, id string) error {
		// an unparseable score reaches the service as 0 so its checks keep their order
		score, _ := validate.Score(c.FormValue("rating"))
		_, err := h.Ratings.Submit(c.UserContext(), p, id, score, c.FormValue("comment"))
		return err
	})
}
