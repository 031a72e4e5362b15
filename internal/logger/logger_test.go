package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("Development logger respects level", func(t *testing.T) {
		log, err := New("warn", "dev")
		require.NoError(t, err)

		assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("Production logger", func(t *testing.T) {
		log, err := New("debug", "prod")
		require.NoError(t, err)

		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("Unknown level", func(t *testing.T) {
		_, err := New("loud", "dev")
		assert.Error(t, err)
	})
}
