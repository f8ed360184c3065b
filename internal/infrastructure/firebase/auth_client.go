package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"petadopt/internal/domain/entity"
	"petadopt/pkg/errors"
)

// FirebaseAuthClient is the identity provider: it verifies session tokens and
// exposes the provider-side profile of a user.
type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", errors.Unauthorized("Invalid or expired token", err)
	}

	return result.UID, nil
}

func (f *FirebaseAuthClient) GetUser(ctx context.Context, uid string) (*entity.Profile, error) {
	record, err := f.client.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.TransientIO("Failed to fetch user from identity provider", err)
	}

	return &entity.Profile{
		ID:          record.UID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		AvatarURL:   record.PhotoURL,
	}, nil
}
