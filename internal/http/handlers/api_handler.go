package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"campusswap/internal/domain"
	"campusswap/internal/log"
	"campusswap/internal/services"
	"campusswap/internal/validate"
)

// APIHandler is the JSON surface under /api/v1. Callers authenticate with a
// bearer session token; errors are {"error": code, "message": text}.
type APIHandler struct {
	Catalog   *services.CatalogService
	Txns      *services.TransactionService
	Penalties *services.PenaltyService
	Ratings   *services.RatingService
}

type itemBody struct {
	CategoryID     string              `json:"category_id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Mode           domain.Mode         `json:"availability_mode"`
	Price          decimal.NullDecimal `json:"price"`
	LendingDays    int                 `json:"lending_duration_days"`
	PickupLocation string              `json:"pickup_location"`
}

type txnBody struct {
	ItemID     string              `json:"item_id"`
	Type       domain.TxnType      `json:"type"`
	Deposit    decimal.NullDecimal `json:"deposit_amount"`
	FinalPrice decimal.NullDecimal `json:"final_price"`
	StartDate  *domain.Date        `json:"start_date"`
	DueDate    *domain.Date        `json:"due_date"`
}

type completeBody struct {
	ReturnDate *domain.Date `json:"return_date"`
}

type ratingBody struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// GET /api/v1/items?q=&category=&mode=&page=
func (h *APIHandler) ListItems(c *fiber.Ctx) error {
	page := validate.Page(c.Query("page"))
	q := c.Query("q")
	if q != "" {
		var ok bool
		if q, ok = validate.Q(q); !ok {
			return apiError(c, "api.items.list", domain.Invalid("q"))
		}
	}
	mode := c.Query("mode")
	if mode != "" {
		if _, ok := validate.Mode(mode); !ok {
			return apiError(c, "api.items.list", domain.Invalid("mode"))
		}
	}
	items, err := h.Catalog.Search(c.UserContext(), q, c.Query("category"), mode, page, 20)
	if err != nil {
		return apiError(c, "api.items.list", err)
	}
	return c.JSON(fiber.Map{"items": items, "page": page})
}

// GET /api/v1/items/:id
func (h *APIHandler) GetItem(c *fiber.Ctx) error {
	it, err := h.Catalog.GetItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return apiError(c, "api.items.get", err)
	}
	return c.JSON(it)
}

// GET /api/v1/items/:id/availability
func (h *APIHandler) Availability(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return apiError(c, "api.items.availability", domain.Invalid("id"))
	}
	a, err := h.Catalog.Availability(c.UserContext(), id)
	if err != nil {
		return apiError(c, "api.items.availability", err)
	}
	return c.JSON(a)
}

// POST /api/v1/items
func (h *APIHandler) CreateItem(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return apiError(c, "api.items.create", err)
	}
	var in itemBody
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, "api.items.create", errBadBody)
	}
	it, err := h.Catalog.CreateItem(c.UserContext(), p, services.ItemInput{
		CategoryID:     in.CategoryID,
		Title:          in.Title,
		Description:    in.Description,
		Mode:           in.Mode,
		Price:          in.Price,
		LendingDays:    in.LendingDays,
		PickupLocation: in.PickupLocation,
	})
	if err != nil {
		return apiError(c, "api.items.create", err)
	}
	log.Audit(c, "items.create", map[string]any{"item_id": it.ID, "api": true})
	return c.Status(fiber.StatusCreated).JSON(it)
}

// POST /api/v1/transactions
func (h *APIHandler) CreateTransaction(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return apiError(c, "api.transactions.create", err)
	}
	var in txnBody
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, "api.transactions.create", errBadBody)
	}
	if in.ItemID == "" {
		return apiError(c, "api.transactions.create", domain.Missing("item_id"))
	}
	t, err := h.Txns.Create(c.UserContext(), p, services.CreateRequest{
		ItemID:     in.ItemID,
		Type:       in.Type,
		Deposit:    in.Deposit,
		FinalPrice: in.FinalPrice,
		StartDate:  in.StartDate,
		DueDate:    in.DueDate,
	})
	if err != nil {
		return apiError(c, "api.transactions.create", err)
	}
	log.Audit(c, "transactions.create", map[string]any{"transaction_id": t.ID, "item_id": t.ItemID, "api": true})
	return c.Status(fiber.StatusCreated).JSON(t)
}

// GET /api/v1/transactions/:id
func (h *APIHandler) GetTransaction(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return apiError(c, "api.transactions.get", err)
	}
	t, err := h.Txns.Get(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return apiError(c, "api.transactions.get", err)
	}
	out := fiber.Map{"transaction": t}
	if pen, err := h.Penalties.ForTransaction(c.UserContext(), t.ID); err == nil {
		out["penalty"] = pen
	}
	return c.JSON(out)
}

type apiStep func(c *fiber.Ctx, p domain.Principal, id string) (any, error)

func (h *APIHandler) step(action string, fn apiStep) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := principal(c)
		if err != nil {
			return apiError(c, action, err)
		}
		id := c.Params("id")
		out, err := fn(c, p, id)
		if err != nil {
			return apiError(c, action, err)
		}
		log.Audit(c, action, map[string]any{"id": id, "api": true})
		return c.JSON(out)
	}
}

// POST /api/v1/transactions/:id/confirm
func (h *APIHandler) Confirm() fiber.Handler {
	return h.step("transactions.confirm", func(c *fiber.Ctx, p domain.Principal, id string) (any, error) {
		return h.Txns.Confirm(c.UserContext(), p, id)
	})
}

// POST /api/v1/transactions/:id/cancel
func (h *APIHandler) Cancel() fiber.Handler {
	return h.step("transactions.cancel", func(c *fiber.Ctx, p domain.Principal, id string) (any, error) {
		return h.Txns.Cancel(c.UserContext(), p, id)
	})
}

// POST /api/v1/transactions/:id/complete
func (h *APIHandler) Complete() fiber.Handler {
	return h.step("transactions.complete", func(c *fiber.Ctx, p domain.Principal, id string) (any, error) {
		var in completeBody
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&in); err != nil {
				return nil, errBadBody
			}
		}
		t, pen, err := h.Txns.Complete(c.UserContext(), p, id, in.ReturnDate)
		if err != nil {
			return nil, err
		}
		out := fiber.Map{"transaction": t}
		if pen != nil {
			out["penalty"] = pen
		}
		return out, nil
	})
}

// POST /api/v1/transactions/:id/resolve
func (h *APIHandler) Resolve() fiber.Handler {
	return h.step("transactions.resolve", func(c *fiber.Ctx, p domain.Principal, id string) (any, error) {
		return h.Txns.ResolveLate(c.UserContext(), p, id)
	})
}

// POST /api/v1/penalties/:id/pay
func (h *APIHandler) PayPenalty() fiber.Handler {
	return h.step("penalties.pay", func(c *fiber.Ctx, p domain.Principal, id string) (any, error) {
		return h.Penalties.MarkPaid(c.UserContext(), p, id)
	})
}

// POST /api/v1/penalties/:id/waive
func (h *APIHandler) WaivePenalty() fiber.Handler {
	return h.step("penalties.waive", func(c *fiber.Ctx, p domain.Principal, id string) (any, error) {
		return h.Penalties.Waive(c.UserContext(), p, id)
	})
}

// POST /api/v1/transactions/:id/ratings
func (h *APIHandler) SubmitRating(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return apiError(c, "api.ratings.submit", err)
	}
	var in ratingBody
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, "api.ratings.submit", errBadBody)
	}
	r, err := h.Ratings.Submit(c.UserContext(), p, c.Params("id"), in.Rating, in.Comment)
	if err != nil {
		return apiError(c, "api.ratings.submit", err)
	}
	log.Audit(c, "ratings.submit", map[string]any{"transaction_id": r.TransactionID, "api": true})
	return c.Status(fiber.StatusCreated).JSON(r)
}

// GET /api/v1/users/:id/ratings
func (h *APIHandler) UserRatings(c *fiber.Ctx) error {
	id := c.Params("id")
	sum, err := h.Ratings.Summary(c.UserContext(), id)
	if err != nil {
		return apiError(c, "api.ratings.list", err)
	}
	rs, err := h.Ratings.ForUser(c.UserContext(), id)
	if err != nil {
		return apiError(c, "api.ratings.list", err)
	}
	return c.JSON(fiber.Map{"summary": sum, "ratings": rs})
}
