package handlers

import (
	"errors"

	"github.com/b4nter/banter-backend/internal/dto"
	"github.com/b4nter/banter-backend/internal/middleware"
	"github.com/b4nter/banter-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FriendHandler struct {
	friends *services.FriendService
}

func NewFriendHandler(friends *services.FriendService) *FriendHandler {
	return &FriendHandler{friends: friends}
}

func (h *FriendHandler) SendRequest(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.FriendRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	request, err := h.friends.SendRequest(userID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, services.ErrSelfFriend),
			errors.Is(err, services.ErrAlreadyFriends),
			errors.Is(err, services.ErrRequestExists):
			return badRequest(c, err.Error())
		case errors.Is(err, services.ErrPermanentBanned), errors.Is(err, services.ErrUserBanned):
			return forbidden(c, err.Error())
		}
		return internalError(c)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

func (h *FriendHandler) Accept(c *fiber.Ctx) error {
	return h.resolve(c, h.friends.Accept)
}

func (h *FriendHandler) Decline(c *fiber.Ctx) error {
	return h.resolve(c, h.friends.Decline)
}

func (h *FriendHandler) resolve(c *fiber.Ctx, fn func(userID, requestID uuid.UUID) error) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid request id")
	}

	if err := fn(userID, requestID); err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, services.ErrNotRequestTarget):
			return forbidden(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "ok"})
}

func (h *FriendHandler) Unfriend(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	otherID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	if err := h.friends.Unfriend(userID, otherID); err != nil {
		if errors.Is(err, services.ErrNotFriends) {
			return notFound(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "Unfriended"})
}

func (h *FriendHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	entries, err := h.friends.Friends(userID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(entries)
}

func (h *FriendHandler) Pending(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	entries, err := h.friends.PendingRequests(userID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(entries)
}

func (h *FriendHandler) Sent(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	entries, err := h.friends.SentRequests(userID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(entries)
}
