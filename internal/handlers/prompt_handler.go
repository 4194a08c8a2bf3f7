package handlers

import (
	"github.com/b4nter/banter-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type PromptHandler struct {
	prompts *services.PromptService
}

func NewPromptHandler(prompts *services.PromptService) *PromptHandler {
	return &PromptHandler{prompts: prompts}
}

func (h *PromptHandler) Today(c *fiber.Ctx) error {
	prompt, err := h.prompts.Today(c.Context())
	if err != nil {
		return internalError(c)
	}
	return c.JSON(prompt)
}
