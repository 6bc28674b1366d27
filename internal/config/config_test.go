package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.GracePeriod)
	assert.Equal(t, 2*time.Minute, cfg.RoomTTL)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, 50, cfg.RecentLimit)
	assert.Equal(t, 2000, cfg.MaxMessageLen)
	assert.Equal(t, 8*time.Second, cfg.TranslateTimeout)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
}

func TestLoadFile_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: debug
port: 9000
grace_period: 30s
history_limit: 10
`), 0o600))

	t.Setenv("BABEL_ROOM_TTL", "45s")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.GracePeriod)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 45*time.Second, cfg.RoomTTL)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
}

func TestLoadFile_PortEnv(t *testing.T) {
	t.Setenv("PORT", "3001")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3001, cfg.Port)
}

func TestLoadFile_ReleaseNeedsSecret(t *testing.T) {
	t.Setenv("BABEL_MODE", "release")
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("BABEL_SECRET", "s3cret")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "release", cfg.Mode)
}

func TestLoadFile_DevSecretFallback(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DevSecret, cfg.Secret)

	t.Setenv("BABEL_SECRET", "mine")
	cfg, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "mine", cfg.Secret)
}
