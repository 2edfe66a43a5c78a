package cmd_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/cmd"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadConfig_TomlThenEnv(t *testing.T) {
	// Arrange
	path := writeFile(t, "tracker.toml", `
http_port = "9090"
storage_backend = "memory"
jwt_secret = "from-file"
idle_timeout = "30s"
strict_validation = true

[[accounts]]
id = "courier-1"
name = "Alice"
role = "courier"

[[accounts]]
id = "customer-1"
name = "Carol"
role = "customer"
`)
	t.Setenv(cmd.ConfigFileEnv, path)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("IDLE_TIMEOUT", "45s")

	// Act
	config, err := cmd.LoadConfig(noEnvFile(t))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "9090", config.HTTPPort)
	assert.Equal(t, cmd.StorageMemory, config.StorageBackend)
	assert.Equal(t, "from-env", config.JWTSecret)
	assert.Equal(t, 45*time.Second, config.IdleTimeout)
	assert.True(t, config.StrictValidation)
	assert.Equal(t, cmd.RelayNone, config.RelayBackend)
	require.Len(t, config.Accounts, 2)
	assert.Equal(t, cmd.AccountSeed{ID: "courier-1", Name: "Alice", Role: "courier"}, config.Accounts[0])
}

func TestLoadConfig_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	envFile := writeFile(t, ".env", "STORAGE_BACKEND=memory\nJWT_SECRET=from-dotenv\nHTTP_PORT=7070\n")
	t.Setenv(cmd.ConfigFileEnv, "")
	t.Setenv("JWT_SECRET", "from-env")
	// Registered for cleanup so the values loaded from the file do not leak.
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("HTTP_PORT", "")
	require.NoError(t, os.Unsetenv("STORAGE_BACKEND"))
	require.NoError(t, os.Unsetenv("HTTP_PORT"))

	config, err := cmd.LoadConfig(envFile)

	require.NoError(t, err)
	assert.Equal(t, "from-env", config.JWTSecret)
	assert.Equal(t, cmd.StorageMemory, config.StorageBackend)
	assert.Equal(t, "7070", config.HTTPPort)
}

func TestLoadConfig_UnknownTomlKey(t *testing.T) {
	t.Setenv(cmd.ConfigFileEnv, writeFile(t, "tracker.toml", "htp_port = \"1\"\n"))

	_, err := cmd.LoadConfig(noEnvFile(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "htp_port")
}

func TestLoadConfig_MalformedEnv(t *testing.T) {
	t.Setenv(cmd.ConfigFileEnv, "")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("AUTH_DISABLED", "maybe")
	t.Setenv("IDLE_TIMEOUT", "soon")

	_, err := cmd.LoadConfig(noEnvFile(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_DISABLED")
	assert.Contains(t, err.Error(), "IDLE_TIMEOUT")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() cmd.Config {
		config := cmd.DefaultConfig()
		config.StorageBackend = cmd.StorageMemory
		config.JWTSecret = "secret"
		return config
	}

	tests := []struct {
		name    string
		mutate  func(*cmd.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*cmd.Config) {}},
		{name: "auth disabled needs no secret", mutate: func(c *cmd.Config) { c.JWTSecret = ""; c.AuthDisabled = true }},
		{name: "missing secret", mutate: func(c *cmd.Config) { c.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "unknown storage", mutate: func(c *cmd.Config) { c.StorageBackend = "redis" }, wantErr: "STORAGE_BACKEND"},
		{name: "postgres needs a database", mutate: func(c *cmd.Config) { c.StorageBackend = cmd.StoragePostgres }, wantErr: "DB_NAME"},
		{name: "unknown relay", mutate: func(c *cmd.Config) { c.RelayBackend = "kafka" }, wantErr: "RELAY_BACKEND"},
		{name: "postgres relay on memory storage", mutate: func(c *cmd.Config) { c.RelayBackend = cmd.RelayPostgres }, wantErr: "RELAY_BACKEND=postgres"},
		{name: "rabbitmq relay needs a url", mutate: func(c *cmd.Config) { c.RelayBackend = cmd.RelayRabbitMQ }, wantErr: "AMQP_URL"},
		{name: "bad port", mutate: func(c *cmd.Config) { c.HTTPPort = "http" }, wantErr: "HTTP_PORT"},
		{name: "zero idle timeout", mutate: func(c *cmd.Config) { c.IdleTimeout = 0 }, wantErr: "IDLE_TIMEOUT"},
		{name: "bad log level", mutate: func(c *cmd.Config) { c.LogLevel = "loud" }, wantErr: "LOG_LEVEL"},
		{
			name:    "seed with unknown role",
			mutate:  func(c *cmd.Config) { c.Accounts = []cmd.AccountSeed{{ID: "x", Role: "pilot"}} },
			wantErr: "accounts[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)

			err := config.Validate()

			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	config := cmd.DefaultConfig()
	config.DBUser, config.DBPassword, config.DBName = "u", "p", "tracker"

	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=tracker sslmode=disable", config.DSN())
}
