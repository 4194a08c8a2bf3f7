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

type ModerationHandler struct {
	moderation *services.ModerationService
}

func NewModerationHandler(moderation *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderation: moderation}
}

func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.moderation.CreateReport(userID, req.ContentType, req.ContentID, req.Reason)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	status := c.Query("status", "pending")
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	reports, total, err := h.moderation.ListReports(status, limit, offset)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(fiber.Map{"reports": reports, "total": total})
}

func (h *ModerationHandler) ActionReport(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid report id")
	}

	var req dto.ActionReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.moderation.ActionReport(id, req.Status, req.AdminNote); err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			return notFound(c, err.Error())
		}
		return badRequest(c, err.Error())
	}
	return c.JSON(fiber.Map{"message": "Report updated"})
}

func (h *ModerationHandler) BlockUser(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.BlockUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.moderation.BlockUser(userID, req.BlockedID); err != nil {
		switch {
		case errors.Is(err, services.ErrSelfBlock):
			return badRequest(c, err.Error())
		case errors.Is(err, services.ErrAlreadyBlocked):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return internalError(c)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "User blocked"})
}

func (h *ModerationHandler) UnblockUser(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	blockedID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	if err := h.moderation.UnblockUser(userID, blockedID); err != nil {
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "User unblocked"})
}

// Admin ban endpoints. The acting admin's id comes from the token so the
// self-moderation guard can hold even for admins.

func (h *ModerationHandler) Ban(c *fiber.Ctx) error {
	adminID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	var req dto.BanRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.moderation.Ban(adminID, targetID, req.Reason); err != nil {
		return h.banError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User banned"})
}

func (h *ModerationHandler) Unban(c *fiber.Ctx) error {
	adminID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	if err := h.moderation.Unban(adminID, targetID); err != nil {
		return h.banError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User unbanned"})
}

func (h *ModerationHandler) TempBan(c *fiber.Ctx) error {
	adminID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	var req dto.TempBanRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.moderation.TempBan(adminID, targetID, req.Until, req.Reason); err != nil {
		return h.banError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User temporarily banned"})
}

func (h *ModerationHandler) LiftTempBan(c *fiber.Ctx) error {
	adminID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	if err := h.moderation.LiftTempBan(adminID, targetID); err != nil {
		return h.banError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Temporary ban lifted"})
}

func (h *ModerationHandler) banError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, services.ErrSelfModeration), errors.Is(err, services.ErrPermanentBanned):
		return badRequest(c, err.Error())
	}
	return internalError(c)
}
