package di

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/internal/config"
	"github.com/shelfkeeper/shelfkeeper/internal/di/providers"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:    config.AppConfig{Environment: "development"},
		Logger: config.LoggerConfig{Level: "error"},
		Store:  config.StoreConfig{DataPath: t.TempDir()},
		Server: config.ServerConfig{
			Port:           "0",
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			IdleTimeout:    time.Second,
			CORSOrigins:    []string{"*"},
			RateLimitRPS:   10,
			RateLimitBurst: 10,
		},
		Auth: config.AuthConfig{AccessTokenDuration: time.Hour},
	}
}

func TestBootstrap_WiresServer(t *testing.T) {
	cfg := testConfig(t)
	injector := do.New()
	do.ProvideValue(injector, cfg)
	Register(injector)

	require.NoError(t, Bootstrap(injector))
	t.Cleanup(func() { injector.Shutdown() })

	storeHandle := do.MustInvoke[*providers.StoreHandle](injector)
	assert.NoError(t, storeHandle.Ping(context.Background()))

	limiter := do.MustInvoke[*providers.RateLimiterHandle](injector)
	assert.NotNil(t, limiter.Limiter)

	_, err := os.Stat(cfg.Store.KeyPath())
	assert.NoError(t, err, "token key is written under the data path")
	assert.Len(t, cfg.Auth.AccessTokenKey, 64)
}

func TestBootstrap_ConfiguredKeyWins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.AccessTokenKey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	cfg.Server.RateLimitRPS = 0

	injector := do.New()
	do.ProvideValue(injector, cfg)
	Register(injector)

	require.NoError(t, Bootstrap(injector))
	t.Cleanup(func() { injector.Shutdown() })

	key := do.MustInvoke[providers.AuthKey](injector)
	assert.Equal(t, providers.AuthKey(cfg.Auth.AccessTokenKey), key)

	_, err := os.Stat(cfg.Store.KeyPath())
	assert.True(t, os.IsNotExist(err))

	assert.Nil(t, do.MustInvoke[*providers.RateLimiterHandle](injector).Limiter)
}
