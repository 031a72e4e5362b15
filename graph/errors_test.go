package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/VitaminP8/blogexpress/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorPresenter(t *testing.T) {
	ctx := context.Background()

	t.Run("Validation error keeps code and data", func(t *testing.T) {
		present := ErrorPresenter(zap.NewNop())

		got := present(ctx, apperr.Validation("E-Mail is invalid."))
		assert.Equal(t, "Invalid input.", got.Message)
		assert.Equal(t, 422, got.Extensions["code"])
		assert.Equal(t, []apperr.Message{{Message: "E-Mail is invalid."}}, got.Extensions["data"])
	})

	t.Run("Mismatch has no code", func(t *testing.T) {
		present := ErrorPresenter(zap.NewNop())

		got := present(ctx, apperr.PasswordMismatch())
		assert.Equal(t, "Password does NOT match!", got.Message)
		_, ok := got.Extensions["code"]
		assert.False(t, ok)
	})

	t.Run("Internal details are hidden and logged", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		present := ErrorPresenter(zap.New(core))

		got := present(ctx, apperr.Internal("could not get post", errors.New("connection refused")))
		assert.Equal(t, internalMessage, got.Message)
		assert.Equal(t, 500, got.Extensions["code"])
		assert.Equal(t, 1, logs.Len())

		got = present(ctx, errors.New("boom"))
		assert.Equal(t, internalMessage, got.Message)
		assert.Equal(t, 2, logs.Len())
	})

	t.Run("gqlgen errors pass through", func(t *testing.T) {
		present := ErrorPresenter(zap.NewNop())

		in := gqlerror.Errorf("must be defined")
		assert.Same(t, in, present(ctx, in))
	})
}
