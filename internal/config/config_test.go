package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Scan.MaxParallel)
	assert.Equal(t, 30*time.Second, cfg.Scan.CheckInterval)
	assert.Equal(t, 6, cfg.OTP.CodeLength)
	assert.Len(t, cfg.Countries, 11)

	// секретов в значениях по умолчанию нет
	assert.Empty(t, cfg.Account.Email)
	assert.Empty(t, cfg.Telegram.BotToken)
	assert.Empty(t, cfg.Captcha.APIKey)
}

func TestLoadConfigOverridesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9100
scan:
  max_parallel: 5
telegram:
  bot_token: test-token
  chat_id: 42
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Scan.MaxParallel)
	assert.Equal(t, "test-token", cfg.Telegram.BotToken)
	assert.EqualValues(t, 42, cfg.Telegram.ChatID)

	// незаполненные поля добираются из значений по умолчанию
	assert.Equal(t, 6, cfg.OTP.CodeLength)
	assert.Len(t, cfg.Countries, 11)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestCountryOrderIsStable(t *testing.T) {
	cfg := Default()
	codes := cfg.CountryCodes()

	want := []string{"fra", "dnk", "hrv", "cze", "nld", "lux", "bel", "swe", "ltu", "fin", "bgr"}
	assert.Equal(t, want, codes)
}

func TestCountryByCode(t *testing.T) {
	cfg := Default()

	fra, ok := cfg.CountryByCode("fra")
	require.True(t, ok)
	assert.Equal(t, "Fransa", fra.Name)
	assert.Contains(t, fra.URL, "/fra/")

	_, ok = cfg.CountryByCode("xxx")
	assert.False(t, ok)
}
