package handlers

import (
	"campusswap/internal/repos"
	"campusswap/internal/services"
	"campusswap/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	Users   *repos.UserRepo
	Catalog *services.CatalogService
	Ratings *services.RatingService
}

// GET /users/:id
func (h *ProfileHandler) Show(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "User not found"})
	}
	ctx := c.UserContext()
	u, err := h.Users.ByID(ctx, id)
	if err != nil {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "User not found"})
	}
	sum, err := h.Ratings.Summary(ctx, id)
	if err != nil {
		return err
	}
	ratings, err := h.Ratings.ForUser(ctx, id)
	if err != nil {
		return err
	}
	items, err := h.Catalog.ListByOwner(ctx, id)
	if err != nil {
		return err
	}
	return render(c, "profile", fiber.Map{
		"Profile": fiber.Map{"ID": u.ID, "Name": u.Name},
		"Summary": sum, "Ratings": ratings, "Items": items,
	})
}
