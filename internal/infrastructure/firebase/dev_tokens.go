package firebase

import (
	"context"
	"strings"

	"petadopt/internal/domain/entity"
	"petadopt/pkg/errors"
)

const devTokenPrefix = "dev:"

// DevTokenVerifier stands in for Firebase Auth when the service runs against
// the in-memory store. A token of the form "dev:<uid>" signs in as uid.
type DevTokenVerifier struct{}

func NewDevTokenVerifier() *DevTokenVerifier {
	return &DevTokenVerifier{}
}

// GenerateDevToken returns the token that signs in as uid.
func GenerateDevToken(uid string) string {
	return devTokenPrefix + uid
}

func (d *DevTokenVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	uid, ok := strings.CutPrefix(token, devTokenPrefix)
	uid = strings.TrimSpace(uid)
	if !ok || uid == "" {
		return "", errors.Unauthorized("Invalid or expired token", nil)
	}
	return uid, nil
}

// GetUser knows every user; the display name falls back to the uid.
func (d *DevTokenVerifier) GetUser(ctx context.Context, uid string) (*entity.Profile, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, errors.NotFound("User", nil)
	}
	return &entity.Profile{
		ID:          uid,
		DisplayName: uid,
	}, nil
}
