package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Store:  StoreConfig{DataPath: "/some/path"},
		Server: ServerConfig{Port: "8080", RateLimitRPS: 20, RateLimitBurst: 40},
		Auth:   AuthConfig{AccessTokenDuration: time.Hour},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "test" }, "invalid environment"},
		{"environment is case sensitive", func(c *Config) { c.App.Environment = "DEVELOPMENT" }, "invalid environment"},
		{"unsupported level", func(c *Config) { c.Logger.Level = "trace" }, "invalid log level"},
		{"empty data path", func(c *Config) { c.Store.DataPath = "" }, "data path cannot be empty"},
		{"non-numeric port", func(c *Config) { c.Server.Port = "http" }, "invalid port"},
		{"negative rate", func(c *Config) { c.Server.RateLimitRPS = -1 }, "cannot be negative"},
		{"zero token lifetime", func(c *Config) { c.Auth.AccessTokenDuration = 0 }, "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "DEBUG"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("CORS_ORIGINS", "")
	dataDir := t.TempDir()

	cfg, err := Load([]string{"-env-file", filepath.Join(dataDir, "missing.env"), "-data-path", dataDir})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, filepath.Join(dataDir, "db"), cfg.Store.DBPath())
	assert.Equal(t, filepath.Join(dataDir, "auth.key"), cfg.Store.KeyPath())
}

func TestLoad_FlagBeatsEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "SERVER_PORT=7000\nLOG_LEVEL=warn\nRATE_LIMIT_RPS=2.5\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load([]string{"-env-file", envFile, "-data-path", dir, "-port", "9100"})
	require.NoError(t, err)

	// Verify the flag wins over the environment.
	assert.Equal(t, "9100", cfg.Server.Port)
	// Verify the .env file fills unset variables.
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.InDelta(t, 2.5, cfg.Server.RateLimitRPS, 0.0001)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	_, err := Load([]string{"-env-file", filepath.Join(dir, "none"), "-data-path", dir, "-read-timeout", "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server_read_timeout")
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/shelf", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "shelf"), got)

	got, err = expandPath("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", got)

	got, err = expandPath("relative/path", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Contains(t, got, "relative/path")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("TEST_ENV_KEY", "env-value")

	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_ENV_KEY", "default-value"))
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))
	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := `# Test env file
SHELF_TEST_ENV=staging

SHELF_TEST_QUOTED="some value"
  SHELF_TEST_SPACED  =  padded value
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	for _, key := range []string{"SHELF_TEST_ENV", "SHELF_TEST_QUOTED", "SHELF_TEST_SPACED"} {
		t.Setenv(key, "")
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "staging", os.Getenv("SHELF_TEST_ENV"))
	assert.Equal(t, "some value", os.Getenv("SHELF_TEST_QUOTED"))
	assert.Equal(t, "padded value", os.Getenv("SHELF_TEST_SPACED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("VALID=1\nINVALID LINE\n"), 0o644))

	err := loadEnvFile(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format at line 2")
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("SHELF_TEST_VAR", "original-value")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SHELF_TEST_VAR=new-value"), 0o644))

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "original-value", os.Getenv("SHELF_TEST_VAR"))
}
