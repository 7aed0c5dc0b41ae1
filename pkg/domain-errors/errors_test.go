package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landlock/pkg/platform/sentinel"
)

func TestCodeOf(t *testing.T) {
	t.Run("extracts code from coded error", func(t *testing.T) {
		err := New(CodeConflict, "registrar already exists")
		assert.Equal(t, CodeConflict, CodeOf(err))
	})

	t.Run("extracts code through wrapping", func(t *testing.T) {
		err := Wrap(sentinel.ErrAlreadyExists, CodeConflict, "id number already claimed")
		wrapped := fmt.Errorf("create user: %w", err)
		assert.Equal(t, CodeConflict, CodeOf(wrapped))
	})

	t.Run("defaults to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	err := Wrap(sentinel.ErrInsufficientFunds, CodeFailedPrecondition, "deposit failed")
	require.ErrorIs(t, err, sentinel.ErrInsufficientFunds)
	assert.True(t, HasCode(err, CodeFailedPrecondition))
	assert.False(t, HasCode(err, CodeConflict))
	assert.Equal(t, "deposit failed", MessageOf(err))
}
