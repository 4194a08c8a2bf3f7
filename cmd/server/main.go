package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/b4nter/banter-backend/internal/chat"
	"github.com/b4nter/banter-backend/internal/config"
	"github.com/b4nter/banter-backend/internal/database"
	"github.com/b4nter/banter-backend/internal/handlers"
	"github.com/b4nter/banter-backend/internal/logging"
	"github.com/b4nter/banter-backend/internal/middleware"
	"github.com/b4nter/banter-backend/internal/outbox"
	"github.com/b4nter/banter-backend/internal/routes"
	"github.com/b4nter/banter-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Retention sweeps (logs, read notifications, done outbox rows, chat)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Services
	pointsService := services.NewPointsService(database.DB)
	notificationService := services.NewNotificationService(database.DB)
	badgeService := services.NewBadgeService(database.DB, pointsService, notificationService)
	streakService := services.NewStreakService(database.DB, pointsService, badgeService)
	moderationService := services.NewModerationService(database.DB)
	confessionService := services.NewConfessionService(database.DB, pointsService, badgeService, moderationService)
	friendService := services.NewFriendService(database.DB, moderationService)
	dmService := services.NewDMService(database.DB, friendService, moderationService)
	authService := services.NewAuthService(database.DB, cfg)
	promptService := services.NewPromptService(database.DB, cfg)
	profileService := services.NewProfileService(database.DB, badgeService)
	avatarService := services.NewAvatarService(cfg, profileService)

	hub := chat.NewHub()
	chatService := chat.NewService(database.DB, hub, moderationService, streakService)

	// Outbox dispatcher: applies queued side effects exactly once.
	dispatcher := outbox.NewDispatcher(database.DB, pointsService, badgeService, notificationService, 2*time.Second)
	dispatcher.Start()

	// Handlers
	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Health:       handlers.NewHealthHandler(hub),
		Confession:   handlers.NewConfessionHandler(confessionService),
		Notification: handlers.NewNotificationHandler(notificationService),
		Friend:       handlers.NewFriendHandler(friendService),
		DM:           handlers.NewDMHandler(dmService),
		Moderation:   handlers.NewModerationHandler(moderationService),
		Profile:      handlers.NewProfileHandler(profileService, avatarService, pointsService),
		Prompt:       handlers.NewPromptHandler(promptService),
		Chat:         chatService,
	}

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.UploadMaxBytes) + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	dispatcher.Stop()
	promptService.Close()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
