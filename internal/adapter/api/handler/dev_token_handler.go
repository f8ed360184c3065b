package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"petadopt/internal/adapter/repository"
	"petadopt/internal/domain/entity"
	domainrepo "petadopt/internal/domain/repository"
	"petadopt/internal/infrastructure/firebase"
	"petadopt/pkg/errors"
	"petadopt/pkg/response"
)

// DevTokenHandler seeds the in-memory directory and hands out dev tokens.
// It is only mounted when the service runs without Firebase.
type DevTokenHandler struct {
	users    domainrepo.UserRepository
	listings *repository.MemoryListingRepository
}

func NewDevTokenHandler(users domainrepo.UserRepository, listings *repository.MemoryListingRepository) *DevTokenHandler {
	return &DevTokenHandler{
		users:    users,
		listings: listings,
	}
}

type devTokenRequest struct {
	UserID      string `json:"user_id" validate:"required,excludes=_"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email" validate:"omitempty,email"`
	AvatarURL   string `json:"avatar_url" validate:"omitempty,url"`
}

type devListingRequest struct {
	ID      string `json:"id" validate:"required"`
	OwnerID string `json:"owner_id" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Species string `json:"species"`
}

// GenerateToken registers the user profile and returns a token signing in as it.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}
	if req.DisplayName == "" {
		req.DisplayName = req.UserID
	}

	profile := &entity.Profile{
		ID:          req.UserID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	}
	if err := h.users.Upsert(c.Request().Context(), profile); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"token": firebase.GenerateDevToken(req.UserID),
		"user":  profile,
	})
}

func (h *DevTokenHandler) CreateListing(c echo.Context) error {
	var req devListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	listing := entity.Listing{
		ID:        req.ID,
		OwnerID:   req.OwnerID,
		Title:     req.Title,
		Species:   req.Species,
		Status:    "available",
		CreatedAt: time.Now(),
	}
	h.listings.Put(listing)

	return response.Created(c, listing)
}
