package handlers

import (
	"time"

	"github.com/b4nter/banter-backend/internal/chat"
	"github.com/b4nter/banter-backend/internal/database"
	"github.com/b4nter/banter-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	hub *chat.Hub
}

func NewHealthHandler(hub *chat.Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		ChatUsers: h.hub.Online(),
	})
}
