package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("SESSION_COOKIE", "")
	t.Setenv("API_PUBLIC_URL", "")
	t.Setenv("API_BASE_URL", "http://api.local:9000/")
	t.Setenv("API_TIMEOUT_SEC", "5")
	t.Setenv("EXCERPT_WINDOW", "80")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://api.local:9000", cfg.API.BaseURL)
	assert.Equal(t, "http://api.local:9000", cfg.API.PublicURL, "public url falls back to base url")
	assert.Equal(t, 5, cfg.API.TimeoutSec)
	assert.Equal(t, 80, cfg.UI.ExcerptWindow)
	assert.Equal(t, "km_session", cfg.Session.CookieName)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_BASE_URL", "")

	cfg, err := Load()
	assert.ErrorIs(t, err, ErrAPIBaseURLRequired)
	assert.Nil(t, cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kankou.yaml")
	content := `
env: dev
port: "9090"
api:
  base_url: http://from-file:8000
  public_url: https://docs.example.org
ui:
  timezone: Africa/Bamako
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_BASE_URL", "")
	t.Setenv("API_PUBLIC_URL", "")
	t.Setenv("PORT", "7070")
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_TIMEZONE", "")
	t.Setenv("EXCERPT_WINDOW", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "7070", cfg.Port, "env overrides file")
	assert.Equal(t, "http://from-file:8000", cfg.API.BaseURL)
	assert.Equal(t, "https://docs.example.org", cfg.API.PublicURL)
	assert.Equal(t, "Africa/Bamako", cfg.UI.Timezone)
	assert.Equal(t, 150, cfg.UI.ExcerptWindow, "defaults survive partial files")
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	t.Setenv(key, "value")

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	t.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	t.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	t.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	t.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	t.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))
}
