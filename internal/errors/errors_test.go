package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		err := Wrap(ErrInvalidInput, "query string")
		require.Error(t, err)
		assert.Equal(t, "query string: invalid input", err.Error())
		assert.True(t, Is(err, ErrInvalidInput))
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "context"))
	})

	t.Run("preserves chain through multiple wraps", func(t *testing.T) {
		err := Wrap(Wrap(ErrNotFound, "inner"), "outer")
		assert.True(t, Is(err, ErrNotFound))
		assert.Equal(t, "outer: inner: not found", err.Error())
	})
}

func TestIs(t *testing.T) {
	assert.True(t, Is(ErrForbidden, ErrForbidden))
	assert.False(t, Is(ErrForbidden, ErrUnauthorized))
	assert.False(t, Is(New("other"), ErrInvalidInput))
}
