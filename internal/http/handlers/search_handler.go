package handlers

import (
	"strings"

	"campusswap/internal/log"
	"campusswap/internal/services"
	"campusswap/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type SearchHandler struct {
	Catalog *services.CatalogService
}

func (h *SearchHandler) Search(c *fiber.Ctx) error {
	cats, _ := h.Catalog.ListCategories(c.UserContext())
	rawQ := c.Query("q")
	if strings.TrimSpace(rawQ) == "" {
		// Initial page load: show empty search without errors
		return render(c, "search", fiber.Map{"Q": "", "Items": []any{}, "Count": 0, "Categories": cats})
	}
	fail := func(field, msg string) error {
		log.Security(c, "validation.fail", map[string]any{"field": field})
		c.Status(fiber.StatusBadRequest)
		return render(c, "search", fiber.Map{"Q": "", "Items": []any{}, "Count": 0, "Categories": cats, "Err": msg})
	}
	q, ok := validate.Q(rawQ)
	if !ok {
		return fail("q", "Enter a valid keyword (letters/numbers only)")
	}
	q = strings.ToLower(q)
	category := strings.TrimSpace(c.Query("category"))
	if category != "" {
		if _, ok := validate.ID(category); !ok {
			return fail("category", "Invalid category")
		}
	}
	mode := strings.TrimSpace(c.Query("mode")) // lend | sell | both
	if mode != "" {
		if _, ok := validate.Mode(mode); !ok {
			return fail("mode", "Invalid filter")
		}
	}

	items, err := h.Catalog.Search(c.UserContext(), q, category, mode, validate.Page(c.Query("page")), 20)
	if err != nil {
		log.Error(c, "search.error", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load results. Please retry."})
	}

	return render(c, "search", fiber.Map{
		"Q": q, "CategoryID": category, "Mode": mode, "Categories": cats,
		"Items": items, "Count": len(items),
	})
}
