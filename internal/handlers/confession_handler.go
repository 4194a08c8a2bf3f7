package handlers

import (
	"errors"
	"strconv"

	"github.com/b4nter/banter-backend/internal/dto"
	"github.com/b4nter/banter-backend/internal/middleware"
	"github.com/b4nter/banter-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ConfessionHandler struct {
	confessions *services.ConfessionService
}

func NewConfessionHandler(confessions *services.ConfessionService) *ConfessionHandler {
	return &ConfessionHandler{confessions: confessions}
}

func pagination(c *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func (h *ConfessionHandler) Create(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateConfessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	confession, err := h.confessions.Create(userID, req.Title, req.Content, req.ImageURL, req.Tags)
	if err != nil {
		if errors.Is(err, services.ErrPermanentBanned) || errors.Is(err, services.ErrUserBanned) {
			return forbidden(c, err.Error())
		}
		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(confession)
}

func (h *ConfessionHandler) Feed(c *fiber.Ctx) error {
	page, limit := pagination(c)

	var err error
	var items interface{}
	var total int64

	if c.Query("sort") == "trending" {
		items, total, err = h.confessions.TrendingFeed(page, limit)
	} else {
		items, total, err = h.confessions.Feed(page, limit)
	}
	if err != nil {
		return internalError(c)
	}

	return c.JSON(dto.PaginatedResponse{Items: items, Total: total, Page: page, Limit: limit})
}

func (h *ConfessionHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid confession id")
	}

	confession, err := h.confessions.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrConfessionNotFound) {
			return notFound(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(confession)
}

func (h *ConfessionHandler) React(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid confession id")
	}

	var req dto.ReactRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.confessions.React(userID, id, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConfessionNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, services.ErrInvalidReaction):
			return badRequest(c, err.Error())
		case errors.Is(err, services.ErrPermanentBanned), errors.Is(err, services.ErrUserBanned):
			return forbidden(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(result)
}

func (h *ConfessionHandler) AddComment(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid confession id")
	}

	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	comment, err := h.confessions.AddComment(userID, id, req.ParentID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConfessionNotFound), errors.Is(err, services.ErrCommentNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, services.ErrPermanentBanned), errors.Is(err, services.ErrUserBanned):
			return forbidden(c, err.Error())
		}
		return badRequest(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (h *ConfessionHandler) Comments(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid confession id")
	}
	page, limit := pagination(c)

	comments, err := h.confessions.Comments(id, page, limit)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(comments)
}

func (h *ConfessionHandler) ByAuthor(c *fiber.Ctx) error {
	authorID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	page, limit := pagination(c)

	items, total, err := h.confessions.ByAuthor(authorID, page, limit)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.PaginatedResponse{Items: items, Total: total, Page: page, Limit: limit})
}

func (h *ConfessionHandler) AdminDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid confession id")
	}

	if err := h.confessions.AdminDelete(id); err != nil {
		if errors.Is(err, services.ErrConfessionNotFound) {
			return notFound(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "Confession deleted"})
}

// Shared error helpers keeping handler responses uniform.

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}
