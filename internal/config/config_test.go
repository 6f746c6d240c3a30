package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func noSecret(t *testing.T) {
	t.Helper()
	old := secretPath
	secretPath = filepath.Join(t.TempDir(), "missing")
	t.Cleanup(func() { secretPath = old })
}

func TestLoadDefaults(t *testing.T) {
	noSecret(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	for _, k := range []string{"DB_PATH", "DEFAULT_TZ", "HTTP_ADDR", "APP_ENV", "OCR_ENABLED"} {
		t.Setenv(k, "")
	}

	conf, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Config{
		Env:           "development",
		DBPath:        "/root/data/meds.db",
		TelegramToken: "123:abc",
		DefaultTZ:     "UTC",
		HTTPAddr:      ":8080",
	}, conf)
}

func TestLoadOverrides(t *testing.T) {
	noSecret(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("DEFAULT_TZ", "+03:00")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("APP_ENV", "production")
	t.Setenv("OCR_ENABLED", "true")

	conf, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", conf.DBPath)
	assert.Equal(t, "+03:00", conf.DefaultTZ)
	assert.Equal(t, ":9000", conf.HTTPAddr)
	assert.Equal(t, "production", conf.Env)
	assert.True(t, conf.OCREnabled)
}

func TestLoadPrefersDockerSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte(" secret:token\n"), 0o600))
	old := secretPath
	secretPath = path
	t.Cleanup(func() { secretPath = old })
	t.Setenv("TELEGRAM_BOT_TOKEN", "env:token")

	conf, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secret:token", conf.TelegramToken)
}

func TestLoadErrors(t *testing.T) {
	noSecret(t)

	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_, err := Load()
	assert.ErrorIs(t, err, ErrNoToken)

	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("DEFAULT_TZ", "Mars/Olympus")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("DEFAULT_TZ", "")
	t.Setenv("OCR_ENABLED", "maybe")
	_, err = Load()
	assert.Error(t, err)
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := setLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := setLogger("production")
	assert.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestSetLoggerSetsLocalLogger(t *testing.T) {
	l, err := setLogger("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLoggerReplacesGlobals(t *testing.T) {
	l, err := NewLogger("local")
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })
	assert.Same(t, l, zap.L())
}
