package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"petadopt/internal/domain/entity"
	"petadopt/internal/domain/repository"
	"petadopt/pkg/errors"
	"petadopt/pkg/logger"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	doc, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, storeError("Failed to get user", err)
	}

	var profile entity.Profile
	if err := doc.DataTo(&profile); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	if profile.ID == "" {
		profile.ID = doc.Ref.ID
	}

	return &profile, nil
}

// Upsert merges display fields so fields owned by other writers survive.
func (r *firestoreUserRepository) Upsert(ctx context.Context, profile *entity.Profile) error {
	updateData := map[string]interface{}{
		"id":          profile.ID,
		"displayName": profile.DisplayName,
		"updatedAt":   firestore.ServerTimestamp,
	}
	if profile.Email != "" {
		updateData["email"] = profile.Email
	}
	if profile.AvatarURL != "" {
		updateData["avatarUrl"] = profile.AvatarURL
	}

	_, err := r.client.Collection("users").Doc(profile.ID).Set(ctx, updateData, firestore.MergeAll)
	if err != nil {
		logger.Error("Firestore update error for user %s: %v", profile.ID, err)
		return storeError("Failed to update user", err)
	}
	return nil
}
