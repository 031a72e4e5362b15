package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidation(t *testing.T) {
	t.Run("Collects every message", func(t *testing.T) {
		err := Validation("E-Mail is invalid.", "Password too short!")

		assert.Equal(t, KindValidation, err.Kind)
		assert.Equal(t, http.StatusUnprocessableEntity, err.Code)
		assert.Equal(t, "Invalid input.", err.Error())
		require.Len(t, err.Data, 2)
		assert.Equal(t, "E-Mail is invalid.", err.Data[0].Message)
		assert.Equal(t, "Password too short!", err.Data[1].Message)
	})
}

func TestKindAndCodeOf(t *testing.T) {
	t.Run("Wrapped app error keeps its kind", func(t *testing.T) {
		err := fmt.Errorf("resolver: %w", NotFound("No post founded!"))

		assert.Equal(t, KindNotFound, KindOf(err))
		assert.Equal(t, http.StatusNotFound, CodeOf(err))
		assert.True(t, errors.Is(err, &Error{Kind: KindNotFound}))
		assert.False(t, errors.Is(err, &Error{Kind: KindConflict}))
	})

	t.Run("Foreign error is internal", func(t *testing.T) {
		err := errors.New("connection reset")

		assert.Equal(t, KindInternal, KindOf(err))
		assert.Equal(t, http.StatusInternalServerError, CodeOf(err))
	})

	t.Run("Password mismatch has no code", func(t *testing.T) {
		assert.Equal(t, 0, CodeOf(PasswordMismatch()))
	})
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal("could not save user", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}
