package repository

import (
	"context"

	"petadopt/internal/domain/entity"
)

// ListingRepository is the read side of the listing catalog used for chat context.
type ListingRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
}
