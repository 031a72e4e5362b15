package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults without file and env", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "memory", cfg.Storage)
		assert.Equal(t, 12, cfg.Auth.BcryptCost)
		assert.Equal(t, "smtp-mail.outlook.com", cfg.Mail.Host)
		assert.Equal(t, 587, cfg.Mail.Port)
	})

	t.Run("File values overridden by env", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		content := []byte(`
port: "9090"
storage: postgres
auth:
  login_secret: from-file
  bcrypt_cost: 10
rate_limit:
  enabled: true
  capacity: 5
  refill_interval: 2s
`)
		require.NoError(t, os.WriteFile(path, content, 0o600))

		t.Setenv("CONFIG_FILE", path)
		t.Setenv("LOGIN_TOKEN", "from-env")
		t.Setenv("SMTP_PORT", "2525")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, "postgres", cfg.Storage)
		assert.Equal(t, "from-env", cfg.Auth.LoginSecret)
		assert.Equal(t, 10, cfg.Auth.BcryptCost)
		assert.Equal(t, 2525, cfg.Mail.Port)
		assert.True(t, cfg.RateLimit.Enabled)
		assert.Equal(t, 5, cfg.RateLimit.Capacity)
		assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	})

	t.Run("Missing config file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("Invalid int keeps default", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "")
		t.Setenv("BCRYPT_COST", "twelve")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 12, cfg.Auth.BcryptCost)
	})
}

func TestValidate(t *testing.T) {
	t.Run("Secrets are required", func(t *testing.T) {
		err := Default().Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LOGIN_TOKEN")
		assert.Contains(t, err.Error(), "FORGOT_EMAIL_SECRET")
	})

	t.Run("Unknown mail transport", func(t *testing.T) {
		cfg := Default()
		cfg.Auth.LoginSecret = "a"
		cfg.Auth.ResetSecret = "b"
		cfg.Mail.Transport = "pigeon"

		assert.ErrorContains(t, cfg.Validate(), "pigeon")
	})

	t.Run("Valid config", func(t *testing.T) {
		cfg := Default()
		cfg.Auth.LoginSecret = "a"
		cfg.Auth.ResetSecret = "b"

		assert.NoError(t, cfg.Validate())
	})
}
