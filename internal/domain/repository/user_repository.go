package repository

import (
	"context"

	"petadopt/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
	Upsert(ctx context.Context, profile *entity.Profile) error
}
