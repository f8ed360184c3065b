package handler

import (
	"github.com/labstack/echo/v4"

	"petadopt/internal/usecase"
	"petadopt/pkg/errors"
	"petadopt/pkg/response"
	"petadopt/pkg/utils"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type startConversationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required,excludes=_"`
	ListingID   string `json:"listing_id"`
	Text        string `json:"text" validate:"required"`
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

type unreadResponse struct {
	Count int             `json:"count"`
	Rooms map[string]bool `json:"rooms"`
}

type markReadResponse struct {
	Updated bool `json:"updated"`
}

// StartConversation messages another user, creating the room on first contact.
func (h *ChatHandler) StartConversation(c echo.Context) error {
	var req startConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	result, err := h.chatUseCase.StartConversation(c.Request().Context(), userID, usecase.StartConversationInput{
		RecipientID: req.RecipientID,
		ListingID:   req.ListingID,
		Text:        req.Text,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, result)
}

func (h *ChatHandler) ListRooms(c echo.Context) error {
	userID := c.Get("uid").(string)

	rooms, err := h.chatUseCase.ListRooms(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, rooms)
}

func (h *ChatHandler) GetUnread(c echo.Context) error {
	userID := c.Get("uid").(string)

	state, err := h.chatUseCase.UnreadState(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, unreadResponse{Count: state.Count, Rooms: state.Rooms})
}

func (h *ChatHandler) GetRoom(c echo.Context) error {
	userID := c.Get("uid").(string)

	room, err := h.chatUseCase.GetRoom(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, room)
}

func (h *ChatHandler) ListMessages(c echo.Context) error {
	userID := c.Get("uid").(string)

	limit := utils.GetLimit(c, defaultMessageLimit, maxMessageLimit)

	messages, err := h.chatUseCase.ListMessages(c.Request().Context(), c.Param("id"), userID, limit)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	userID := c.Get("uid").(string)

	// Blank text is rejected by the use case with the same error as other clients get.
	message, err := h.chatUseCase.SendMessage(c.Request().Context(), c.Param("id"), userID, req.Text)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	userID := c.Get("uid").(string)

	updated, err := h.chatUseCase.MarkRead(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, markReadResponse{Updated: updated})
}
