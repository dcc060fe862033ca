package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "777")
	t.Setenv("ADMIN_USERNAME", "@boss")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, v, err := Load()
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "test", cfg.AppEnv)
	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, int64(777), cfg.Admin.ID)
	assert.Equal(t, "boss", cfg.Admin.Username)
	assert.Equal(t, BotModePolling, cfg.Bot.Mode)
	assert.Equal(t, 10000, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Inventory.DefaultPageSize)
	assert.Equal(t, DriverMemory, cfg.Inventory.Driver)
	assert.True(t, cfg.Dedup.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Dedup.TTL)
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("SESSION_DRIVER", "redis")
	t.Setenv("INVENTORY_DEFAULT_PAGE_SIZE", "3")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Inventory.DefaultPageSize)
	assert.True(t, cfg.UsesRedis())
	assert.Equal(t, ":8081", cfg.Server.Addr())
}

func TestLoad_MissingToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOT_TOKEN", "")

	_, _, err := Load()
	assert.Error(t, err)
}

func TestLoad_PageSizeAboveCap(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INVENTORY_DEFAULT_PAGE_SIZE", "51")

	_, _, err := Load()
	assert.Error(t, err)
}

func TestDecode_WebhookNeedsURL(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("bot.token", "t")
	v.Set("admin.id", 1)
	v.Set("admin.username", "boss")
	v.Set("bot.mode", "WEBHOOK")

	_, err := decode(v)
	require.Error(t, err)

	v.Set("bot.webhook_url", "https://example.org/telegram/webhook")
	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, BotModeWebhook, cfg.Bot.Mode)
}

func TestWatch_NoConfigFileIsNoop(t *testing.T) {
	called := false
	Watch(viper.New(), nil, func(*Config) { called = true })
	assert.False(t, called)
}
