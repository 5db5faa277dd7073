package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	applog "campusswap/internal/log"
)

// Mount registers every page and API route on app. Global middleware
// (request id, helmet, csrf, user attach) is installed by the caller.
func Mount(app *fiber.App, d *Deps) {
	auth := d.Auth
	needUser := RequireUser(auth)

	// Public pages
	app.Get("/", d.ItemHandler.Home)
	app.Get("/search", limiter.New(limiter.Config{Max: 20, Expiration: time.Minute}), d.SearchHandler.Search)
	app.Get("/users/:id", d.ProfileHandler.Show)

	// Items; /items/new must precede /items/:id
	app.Get("/items/new", needUser, d.ItemHandler.NewForm)
	app.Post("/items", needUser, d.ItemHandler.Create)
	app.Get("/items/:id", d.ItemHandler.Detail)
	app.Post("/items/:id/delete", needUser, d.ItemHandler.Delete)
	app.Get("/items/:id/request", needUser, d.TransactionHandler.RequestForm)
	app.Post("/items/:id/request", needUser, d.TransactionHandler.Request)

	// Saved items
	app.Get("/saved", needUser, d.ItemHandler.SavedList)
	app.Post("/saved", needUser, d.ItemHandler.Save)
	app.Post("/saved/delete", needUser, d.ItemHandler.Unsave)

	// Transactions
	th := d.TransactionHandler
	app.Get("/transactions", needUser, th.Mine)
	app.Get("/transactions/:id", needUser, th.Detail)
	app.Post("/transactions/:id/confirm", needUser, th.Confirm())
	app.Post("/transactions/:id/cancel", needUser, th.Cancel())
	app.Post("/transactions/:id/complete", needUser, th.Complete())
	app.Post("/transactions/:id/resolve", needUser, th.Resolve())
	app.Post("/transactions/:id/penalty/pay", needUser, th.PayPenalty())
	app.Post("/transactions/:id/penalty/waive", needUser, th.WaivePenalty())
	app.Post("/transactions/:id/ratings", needUser, th.Rate())

	// Auth routes (login throttled)
	authH := d.AuthHandler
	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Login)
	app.Get("/register", authH.RegisterForm)
	app.Post("/register", limiter.New(limiter.Config{Max: 5, Expiration: 10 * time.Minute}), authH.Register)
	app.Post("/logout", authH.Logout)

	// Admin
	adminH := d.AdminHandler
	admin := app.Group("/admin", RequireAdmin(auth))
	admin.Get("/", adminH.Dashboard)
	admin.Get("/transactions", adminH.TransactionsPage)
	admin.Get("/penalties", adminH.PenaltiesPage)
	admin.Post("/penalties/:id/waive", adminH.WaivePenalty)
	admin.Get("/users", adminH.UsersPage)
	admin.Post("/users/:id/delete", adminH.DeleteUser)

	// API
	api := app.Group("/api/v1", APIAuth(auth))
	apiLimiter := limiter.New(limiter.Config{
		Max:        60,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|api"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.api.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "rate limit exceeded, retry soon"})
		},
	})
	api.Use(apiLimiter)
	ah := d.APIHandler
	api.Post("/sessions", limiter.New(limiter.Config{Max: 5, Expiration: 10 * time.Minute}), authH.APILogin)
	api.Get("/items", ah.ListItems)
	api.Post("/items", ah.CreateItem)
	api.Get("/items/:id", ah.GetItem)
	api.Get("/items/:id/availability", ah.Availability)
	api.Post("/transactions", ah.CreateTransaction)
	api.Get("/transactions/:id", ah.GetTransaction)
	api.Post("/transactions/:id/confirm", ah.Confirm())
	api.Post("/transactions/:id/cancel", ah.Cancel())
	api.Post("/transactions/:id/complete", ah.Complete())
	api.Post("/transactions/:id/resolve", ah.Resolve())
	api.Post("/transactions/:id/ratings", ah.SubmitRating)
	api.Post("/penalties/:id/pay", ah.PayPenalty())
	api.Post("/penalties/:id/waive", ah.WaivePenalty())
	api.Get("/users/:id/ratings", ah.UserRatings)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Status(404).JSON(fiber.Map{"error": "not_found", "message": "no such endpoint"})
		}
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Page not found"})
	})
}
