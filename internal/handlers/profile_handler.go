package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/b4nter/banter-backend/internal/dto"
	"github.com/b4nter/banter-backend/internal/middleware"
	"github.com/b4nter/banter-backend/internal/models"
	"github.com/b4nter/banter-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	avatars  *services.AvatarService
	points   *services.PointsService
}

func NewProfileHandler(profiles *services.ProfileService, avatars *services.AvatarService, points *services.PointsService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, avatars: avatars, points: points}
}

func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	return h.profile(c, userID)
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	return h.profile(c, userID)
}

func (h *ProfileHandler) profile(c *fiber.Ctx, userID uuid.UUID) error {
	view, err := h.profiles.Get(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return notFound(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(view)
}

func (h *ProfileHandler) Leaderboard(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	entries, err := h.profiles.Leaderboard(limit)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(entries)
}

func (h *ProfileHandler) Levels(c *fiber.Ctx) error {
	return c.JSON(models.Levels)
}

func (h *ProfileHandler) PointHistory(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	history, err := h.points.History(userID, limit)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(history)
}

func (h *ProfileHandler) Cosmetics(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	state, err := h.profiles.Cosmetics(userID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(state)
}

func (h *ProfileHandler) Equip(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.EquipCosmeticsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.profiles.Equip(userID, req.Frame, req.Flair); err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownCosmetic):
			return badRequest(c, err.Error())
		case errors.Is(err, services.ErrCosmeticLocked):
			return forbidden(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "Equipped"})
}

func (h *ProfileHandler) UploadAvatar(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return badRequest(c, "avatar file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return badRequest(c, "could not read upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest(c, "could not read upload")
	}

	url, err := h.avatars.Store(userID, data)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrImageTooLarge), errors.Is(err, services.ErrNotAnImage):
			return badRequest(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"avatar_url": url})
}
