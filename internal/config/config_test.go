// Package config tests configuration loading.
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	// Ensure no config file exists
	os.Unsetenv("GRC_SERVICE")
	os.Unsetenv("GRC_LOG_LEVEL")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Check defaults
	assert.Equal(t, "grc-server", cfg.Service)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.False(t, cfg.Server.TLSEnabled)

	// Database defaults
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "grc", cfg.Database.Database)
	assert.Equal(t, "grc", cfg.Database.Username)
	assert.Equal(t, "prefer", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)

	// Auth defaults
	assert.Equal(t, "grc-server", cfg.Auth.Issuer)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadFromEnv(t *testing.T) {
	// Only fields with defaults set are read from env (viper limitation)
	os.Setenv("GRC_LOG_LEVEL", "debug")
	os.Setenv("GRC_SERVER_PORT", "9090")
	os.Setenv("GRC_DATABASE_HOST", "postgres.example.com")
	defer func() {
		os.Unsetenv("GRC_LOG_LEVEL")
		os.Unsetenv("GRC_SERVER_PORT")
		os.Unsetenv("GRC_DATABASE_HOST")
	}()

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres.example.com", cfg.Database.Host)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "grc.yaml")
	configContent := `
service: test-service
log_level: warn

server:
  host: 127.0.0.1
  port: 3000

database:
  host: db.example.com
  port: 5433
  database: grc_test
  username: grc_user
  password: secret123

auth:
  secret: test-secret
  issuer: test-issuer
  token_ttl: 1h
  sso_token_url: https://idp.example.com/oauth/token
  sso_client_id: grc-client

integrations:
  - name: cmdb
    description: Corporate CMDB
    url: https://cmdb.example.com/api/assets
    token: cmdb-token
  - name: cloud
    url: https://cloud.example.com/inventory
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "test-service", cfg.Service)
	assert.Equal(t, "warn", cfg.LogLevel)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)

	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "grc_test", cfg.Database.Database)
	assert.Equal(t, "grc_user", cfg.Database.Username)
	assert.Equal(t, "secret123", cfg.Database.Password)

	assert.Equal(t, "test-secret", cfg.Auth.Secret)
	assert.Equal(t, "test-issuer", cfg.Auth.Issuer)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "https://idp.example.com/oauth/token", cfg.Auth.SSOTokenURL)
	assert.Equal(t, "grc-client", cfg.Auth.SSOClientID)

	require.Len(t, cfg.Integrations, 2)
	assert.Equal(t, "cmdb", cfg.Integrations[0].Name)
	assert.Equal(t, "Corporate CMDB", cfg.Integrations[0].Description)
	assert.Equal(t, "https://cmdb.example.com/api/assets", cfg.Integrations[0].URL)
	assert.Equal(t, "cloud", cfg.Integrations[1].Name)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "grc.yaml")
	err := os.WriteFile(configPath, []byte("invalid: yaml: content::: broken"), 0644)
	require.NoError(t, err)

	_, err = config.Load(configPath)
	require.Error(t, err)
}

func TestServerConfigAddr(t *testing.T) {
	cfg := config.ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	}
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())

	cfg.Host = "localhost"
	cfg.Port = 443
	assert.Equal(t, "localhost:443", cfg.Addr())
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Username: "grc",
		Password: "secret",
		Database: "grc_db",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "user=grc")
	assert.Contains(t, dsn, "password=secret")
	assert.Contains(t, dsn, "dbname=grc_db")
	assert.Contains(t, dsn, "sslmode=require")
}
