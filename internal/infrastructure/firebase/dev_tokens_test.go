package firebase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petadopt/pkg/errors"
)

func TestDevTokenVerifier(t *testing.T) {
	v := NewDevTokenVerifier()
	ctx := context.Background()

	uid, err := v.VerifyToken(ctx, GenerateDevToken("adopter"))
	require.NoError(t, err)
	assert.Equal(t, "adopter", uid)

	for _, token := range []string{"", "adopter", "dev:", "dev:  ", "Bearer dev:adopter"} {
		_, err := v.VerifyToken(ctx, token)
		assert.True(t, errors.Is(err, errors.CodeUnauthorized), token)
	}

	profile, err := v.GetUser(ctx, "adopter")
	require.NoError(t, err)
	assert.Equal(t, "adopter", profile.DisplayName)

	_, err = v.GetUser(ctx, "")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}
