package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeExtraction(t *testing.T) {
	err := NotFound("appointment", nil)
	assert.Equal(t, ErrNotFound, Code(err))

	wrapped := fmt.Errorf("loading: %w", err)
	assert.Equal(t, ErrNotFound, Code(wrapped))
	assert.True(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(wrapped, ErrConflict))

	assert.Equal(t, ErrInternal, Code(stderrors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := Conflict("token already taken", stderrors.New("duplicate key"))
	assert.Equal(t, "token already taken: duplicate key", err.Error())
	assert.Equal(t, "duplicate key", err.Unwrap().Error())

	assert.Equal(t, "hospital not found", NotFound("hospital", nil).Error())
}
