package repository

import (
	"context"
	"sync"

	"petadopt/internal/domain/entity"
	"petadopt/internal/domain/repository"
	"petadopt/pkg/errors"
)

// MemoryUserRepository is the in-process users collection.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]entity.Profile
}

var _ repository.UserRepository = (*MemoryUserRepository)(nil)

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]entity.Profile)}
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return &profile, nil
}

func (r *MemoryUserRepository) Upsert(ctx context.Context, profile *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := r.users[profile.ID]
	merged.ID = profile.ID
	merged.DisplayName = profile.DisplayName
	if profile.Email != "" {
		merged.Email = profile.Email
	}
	if profile.AvatarURL != "" {
		merged.AvatarURL = profile.AvatarURL
	}
	merged.UpdatedAt = profile.UpdatedAt
	r.users[profile.ID] = merged
	return nil
}

// MemoryListingRepository is the in-process listings collection.
type MemoryListingRepository struct {
	mu       sync.RWMutex
	listings map[string]entity.Listing
}

var _ repository.ListingRepository = (*MemoryListingRepository)(nil)

func NewMemoryListingRepository() *MemoryListingRepository {
	return &MemoryListingRepository{listings: make(map[string]entity.Listing)}
}

func (r *MemoryListingRepository) Put(listing entity.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[listing.ID] = listing
}

func (r *MemoryListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listing, ok := r.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	return &listing, nil
}
