package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
jwt:
  secret: test-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 24, cfg.JWT.ExpireHours)
	assert.Equal(t, 50, cfg.Pagination.DefaultPageSize)
	assert.Equal(t, 200, cfg.Pagination.MaxPageSize)
	assert.Equal(t, "notifications:events", cfg.Notifications.Channel)
	assert.True(t, decimal.RequireFromString("100").Equal(cfg.Notifications.Threshold()))
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  host: db
  port: 5432
jwt:
  secret: from-file
`)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("DB_HOST", "override-db")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("LOW_BALANCE_THRESHOLD", "25.50")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "override-db", cfg.Database.Host)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "25.5", cfg.Notifications.Threshold().String())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	assert.Error(t, err, "missing jwt secret")

	_, err = Load(writeConfig(t, `
jwt:
  secret: s
notifications:
  low_balance_threshold: lots
`))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", c.DSN())
}
