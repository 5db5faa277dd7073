package handlers

import (
	"campusswap/internal/log"
	"campusswap/internal/services"
	"campusswap/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ItemHandler struct {
	Catalog *services.CatalogService
	Txns    *services.TransactionService
	Saved   *services.SavedService
}

// GET /
func (h *ItemHandler) Home(c *fiber.Ctx) error {
	page := validate.Page(c.Query("page"))
	items, err := h.Catalog.ListItems(c.UserContext(), page, 12)
	if err != nil {
		log.Error(c, "items.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load listings. Please retry."})
	}
	cats, _ := h.Catalog.ListCategories(c.UserContext())
	return render(c, "home", fiber.Map{"Items": items, "Categories": cats, "Page": page, "Next": page + 1})
}

// GET /items/:id
func (h *ItemHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "item"})
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This item is no longer listed"})
	}
	it, err := h.Catalog.GetItem(c.UserContext(), id)
	if err != nil {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "This item is no longer listed"})
	}
	avail, _ := h.Catalog.Availability(c.UserContext(), id)
	data := fiber.Map{"Item": it, "Availability": avail, "IsOwner": false}
	if u := currentUser(c); u != nil && (u.ID == it.OwnerID || u.IsAdmin()) {
		if txns, err := h.Txns.ListByItem(c.UserContext(), id); err == nil {
			data["Transactions"] = txns
		}
		data["IsOwner"] = u.ID == it.OwnerID
	}
	return render(c, "item", data)
}

// GET /items/new
func (h *ItemHandler) NewForm(c *fiber.Ctx) error {
	cats, _ := h.Catalog.ListCategories(c.UserContext())
	return render(c, "item_new", fiber.Map{"Categories": cats, "DefaultDays": h.Catalog.Rules.DefaultLendingDays})
}

// POST /items
func (h *ItemHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return pageError(c, "items.create", err)
	}
	in, bad := itemForm(c)
	if bad != "" {
		log.Security(c, "validation.fail", map[string]any{"field": bad})
		cats, _ := h.Catalog.ListCategories(c.UserContext())
		c.Status(fiber.StatusUnprocessableEntity)
		return render(c, "item_new", fiber.Map{"Categories": cats, "Err": "Check the " + bad + " field", "DefaultDays": h.Catalog.Rules.DefaultLendingDays})
	}
	it, err := h.Catalog.CreateItem(c.UserContext(), p, in)
	if err != nil {
		return pageError(c, "items.create", err)
	}
	log.Audit(c, "items.create", map[string]any{"item_id": it.ID, "mode": it.Mode})
	return c.Redirect("/items/" + it.ID)
}

// POST /items/:id/delete
func (h *ItemHandler) Delete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return pageError(c, "items.delete", err)
	}
	id := c.Params("id")
	if err := h.Catalog.DeleteItem(c.UserContext(), p, id); err != nil {
		return pageError(c, "items.delete", err)
	}
	log.Audit(c, "items.delete", map[string]any{"item_id": id})
	return c.Redirect("/")
}

// itemForm reads the listing form. It returns the name of the first
// malformed field, leaving semantic checks to the catalog service.
func itemForm(c *fiber.Ctx) (services.ItemInput, string) {
	mode, ok := validate.Mode(c.FormValue("availability_mode"))
	if !ok {
		return services.ItemInput{}, "availability_mode"
	}
	price, ok := validate.Money(c.FormValue("price"))
	if !ok {
		return services.ItemInput{}, "price"
	}
	days, ok := validate.Days(c.FormValue("lending_duration_days"))
	if !ok {
		return services.ItemInput{}, "lending_duration_days"
	}
	cat := c.FormValue("category_id")
	if cat != "" {
		if _, ok := validate.ID(cat); !ok {
			return services.ItemInput{}, "category_id"
		}
	}
	return services.ItemInput{
		CategoryID:     cat,
		Title:          c.FormValue("title"),
		Description:    c.FormValue("description"),
		Mode:           mode,
		Price:          price,
		LendingDays:    days,
		PickupLocation: c.FormValue("pickup_location"),
	}, ""
}

// GET /saved
func (h *ItemHandler) SavedList(c *fiber.Ctx) error {
	u := currentUser(c)
	rows, err := h.Saved.List(c.UserContext(), u.ID)
	if err != nil {
		log.Error(c, "saved.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load saved items"})
	}
	return render(c, "saved", fiber.Map{"Items": rows})
}

// POST /saved
func (h *ItemHandler) Save(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.FormValue("item_id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "item_id"})
		return c.Status(400).Render("notfound", fiber.Map{"Message": "Invalid item"})
	}
	if err := h.Saved.Save(c.UserContext(), u.ID, id); err != nil {
		return pageError(c, "saved.add", err)
	}
	log.Audit(c, "saved.add", map[string]any{"item_id": id})
	return c.Redirect("/saved")
}

// POST /saved/delete
func (h *ItemHandler) Unsave(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.FormValue("item_id"))
	if !ok {
		return c.Status(400).Render("notfound", fiber.Map{"Message": "Invalid item"})
	}
	if err := h.Saved.Unsave(c.UserContext(), u.ID, id); err != nil {
		return pageError(c, "saved.remove", err)
	}
	log.Audit(c, "saved.remove", map[string]any{"item_id": id})
	return c.Redirect("/saved")
}
