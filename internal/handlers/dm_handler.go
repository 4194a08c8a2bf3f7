package handlers

import (
	"errors"

	"github.com/b4nter/banter-backend/internal/dto"
	"github.com/b4nter/banter-backend/internal/middleware"
	"github.com/b4nter/banter-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type DMHandler struct {
	dms *services.DMService
}

func NewDMHandler(dms *services.DMService) *DMHandler {
	return &DMHandler{dms: dms}
}

func (h *DMHandler) Send(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.SendDMRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	message, err := h.dms.SendMessage(userID, req.PeerID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDMNotFriends), errors.Is(err, services.ErrDMBlocked):
			return forbidden(c, err.Error())
		case errors.Is(err, services.ErrPermanentBanned), errors.Is(err, services.ErrUserBanned):
			return forbidden(c, err.Error())
		case errors.Is(err, services.ErrEmptyDMMessage):
			return badRequest(c, err.Error())
		}
		return badRequest(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

func (h *DMHandler) Rooms(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	rooms, err := h.dms.ListRooms(userID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(rooms)
}

func (h *DMHandler) Messages(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	roomID := c.Params("room")
	page, limit := pagination(c)

	messages, err := h.dms.ListMessages(userID, roomID, page, limit)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, services.ErrNotParticipant):
			return forbidden(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(messages)
}

func (h *DMHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	roomID := c.Params("room")

	if err := h.dms.MarkRoomRead(userID, roomID); err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, services.ErrNotParticipant):
			return forbidden(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "Marked read"})
}
