package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("send: %w", Validation("message text is empty"))

	assert.True(t, Is(err, CodeValidation))
	assert.False(t, Is(err, CodeNotFound))
	assert.Equal(t, CodeValidation, Code(err))
	assert.Equal(t, CodeInternal, Code(stderrors.New("boom")))
}

func TestStatuses(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, NotAParticipant("a_b", "c").Status)
	assert.Equal(t, http.StatusServiceUnavailable, TransientIO("store unavailable", nil).Status)
	assert.Equal(t, http.StatusBadRequest, Validation("x").Status)
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("deadline exceeded")
	err := TransientIO("send failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "deadline exceeded")
}
