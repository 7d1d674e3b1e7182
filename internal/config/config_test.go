package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("", true)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.Allegro.ListTimeout)
	assert.Equal(t, 15*time.Second, cfg.Allegro.DetailTimeout)
	assert.Equal(t, 1000, cfg.Allegro.EventPageLimit)
	assert.Equal(t, 100, cfg.Allegro.BulkPageLimit)
	assert.Equal(t, 3, cfg.Sync.DetailRetryAttempts)
	assert.Equal(t, time.Second, cfg.Sync.DetailRetryBase)
	assert.Equal(t, 0.20, cfg.Monitoring.CriticalMissing)
	assert.Equal(t, 5, cfg.FailedOrders.MaxRetries)
	assert.Equal(t, 10*time.Minute, cfg.Credentials.CacheTTL)
	assert.Equal(t, "0 */5 * * * *", cfg.Cron.IncrementalSync)
	assert.Equal(t, 500*time.Millisecond, cfg.DB.SlowQuery)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db:
  driver: sqlite
  dsn: ":memory:"
auth:
  jwt_secret: file-secret
sync:
  workers: 2
tokens:
  shop-1: bearer-1
`), 0o600))
	t.Setenv("ORDERBACKUP_AUTH_JWT_SECRET", "env-secret")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2, cfg.Sync.Workers)
	assert.Equal(t, map[string]string{"shop-1": "bearer-1"}, cfg.Tokens)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("", true)
	require.NoError(t, err)

	// No DSN and no JWT secret.
	require.Error(t, cfg.Validate())

	cfg.DB.DSN = "host=localhost"
	cfg.Auth.JWTSecret = "s"
	require.NoError(t, cfg.Validate())

	cfg.Allegro.EventPageLimit = 5000
	require.Error(t, cfg.Validate())

	cfg.Allegro.EventPageLimit = 1000
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = ""
	require.Error(t, cfg.Validate())
}
