package routes

import (
	"time"

	"github.com/b4nter/banter-backend/internal/chat"
	"github.com/b4nter/banter-backend/internal/config"
	"github.com/b4nter/banter-backend/internal/handlers"
	"github.com/b4nter/banter-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Health       *handlers.HealthHandler
	Confession   *handlers.ConfessionHandler
	Notification *handlers.NotificationHandler
	Friend       *handlers.FriendHandler
	DM           *handlers.DMHandler
	Moderation   *handlers.ModerationHandler
	Profile      *handlers.ProfileHandler
	Prompt       *handlers.PromptHandler
	Chat         *chat.Service
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Uploaded avatars.
	app.Static("/uploads", cfg.UploadDir)

	// Public auth endpoints get a stricter limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	api.Post("/auth/logout", middleware.JWTProtected(cfg), h.Auth.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), h.Auth.DeleteAccount)

	// Public reads.
	api.Get("/confessions", h.Confession.Feed)
	api.Get("/confessions/:id", h.Confession.Get)
	api.Get("/confessions/:id/comments", h.Confession.Comments)
	api.Get("/users/:id/confessions", h.Confession.ByAuthor)
	api.Get("/users/:id/profile", h.Profile.Get)
	api.Get("/leaderboard", h.Profile.Leaderboard)
	api.Get("/levels", h.Profile.Levels)
	api.Get("/prompt", h.Prompt.Today)

	// Protected routes.
	protected := api.Group("", middleware.JWTProtected(cfg))

	protected.Post("/confessions", h.Confession.Create)
	protected.Post("/confessions/:id/reactions", h.Confession.React)
	protected.Post("/confessions/:id/comments", h.Confession.AddComment)

	protected.Get("/notifications", h.Notification.List)
	protected.Put("/notifications/read-all", h.Notification.MarkAllRead)
	protected.Put("/notifications/:id/read", h.Notification.MarkRead)

	protected.Get("/friends", h.Friend.List)
	protected.Post("/friends/requests", h.Friend.SendRequest)
	protected.Get("/friends/requests", h.Friend.Pending)
	protected.Get("/friends/requests/sent", h.Friend.Sent)
	protected.Put("/friends/requests/:id/accept", h.Friend.Accept)
	protected.Put("/friends/requests/:id/decline", h.Friend.Decline)
	protected.Delete("/friends/:id", h.Friend.Unfriend)

	protected.Get("/dm/rooms", h.DM.Rooms)
	protected.Post("/dm/messages", h.DM.Send)
	protected.Get("/dm/rooms/:room/messages", h.DM.Messages)
	protected.Put("/dm/rooms/:room/read", h.DM.MarkRead)

	protected.Get("/me", h.Profile.Me)
	protected.Get("/me/points", h.Profile.PointHistory)
	protected.Get("/me/cosmetics", h.Profile.Cosmetics)
	protected.Put("/me/cosmetics", h.Profile.Equip)
	protected.Post("/me/avatar", h.Profile.UploadAvatar)

	protected.Post("/reports", h.Moderation.CreateReport)
	protected.Post("/blocks", h.Moderation.BlockUser)
	protected.Delete("/blocks/:id", h.Moderation.UnblockUser)

	// Global chat websocket. JWT runs before the upgrade; claims are
	// copied to plain locals for the socket handler.
	app.Use("/ws/chat", chat.UpgradeRequired, middleware.JWTProtected(cfg), middleware.ExposeClaims())
	app.Get("/ws/chat", chat.Handler(h.Chat))

	// Admin panel.
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/moderation/reports", h.Moderation.ListReports)
	admin.Put("/moderation/reports/:id", h.Moderation.ActionReport)
	admin.Post("/users/:id/ban", h.Moderation.Ban)
	admin.Delete("/users/:id/ban", h.Moderation.Unban)
	admin.Post("/users/:id/temp-ban", h.Moderation.TempBan)
	admin.Delete("/users/:id/temp-ban", h.Moderation.LiftTempBan)
	admin.Delete("/confessions/:id", h.Confession.AdminDelete)
}
