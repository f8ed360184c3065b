package usecase

import (
	"context"

	"petadopt/internal/domain/entity"
	"petadopt/internal/domain/repository"
	"petadopt/internal/infrastructure/cache"
	"petadopt/pkg/errors"
	"petadopt/pkg/logger"
)

// IdentityResolver maps a user id to display metadata: cache first, then the
// users collection, then the identity provider.
type IdentityResolver struct {
	users    repository.UserRepository
	provider IdentityProvider
	cache    cache.ProfileCache
}

func NewIdentityResolver(users repository.UserRepository, provider IdentityProvider, profileCache cache.ProfileCache) *IdentityResolver {
	return &IdentityResolver{
		users:    users,
		provider: provider,
		cache:    profileCache,
	}
}

func (r *IdentityResolver) Resolve(ctx context.Context, uid string) (*entity.Profile, error) {
	if uid == "" {
		return nil, errors.Validation("user id is required")
	}

	if r.cache != nil {
		profile, ok, err := r.cache.Get(ctx, uid)
		if err != nil {
			logger.Warn("Identity cache read failed for %s: %v", uid, err)
		} else if ok {
			return profile, nil
		}
	}

	profile, err := r.users.GetByID(ctx, uid)
	if err == nil {
		r.remember(ctx, profile)
		return profile, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		logger.Warn("User lookup failed for %s, asking identity provider: %v", uid, err)
	}
	if r.provider == nil {
		return nil, err
	}

	profile, err = r.provider.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := r.users.Upsert(ctx, profile); err != nil {
		logger.Warn("Failed to persist profile for %s: %v", uid, err)
	}
	r.remember(ctx, profile)
	return profile, nil
}

// Details returns the denormalized participant info for uid. Lookup failures
// degrade to a placeholder name; the entry is refreshed on the next send.
func (r *IdentityResolver) Details(ctx context.Context, uid string) entity.ParticipantInfo {
	profile, err := r.Resolve(ctx, uid)
	if err != nil {
		logger.Warn("Using placeholder details for %s: %v", uid, err)
		return entity.ParticipantInfo{DisplayName: "Unknown user"}
	}
	return profile.ParticipantInfo()
}

func (r *IdentityResolver) remember(ctx context.Context, profile *entity.Profile) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, profile); err != nil {
		logger.Warn("Identity cache write failed for %s: %v", profile.ID, err)
	}
}
