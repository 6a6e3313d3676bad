package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
port: "9090"
jwt_secret: file-secret
monitor_password: hunter2
agent_url: ws://agent:9000/live
stt_enabled: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "companion.yaml"), []byte(yaml), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, "ws://agent:9000/live", cfg.AgentURL)
	assert.True(t, cfg.STTEnabled)

	// Defaults fill whatever the file omits.
	assert.Equal(t, "Aoede", cfg.Voice)
	assert.Equal(t, "AUDIO", cfg.ResponseModality)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.False(t, cfg.MongoEnabled)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
jwt_secret: file-secret
monitor_password: hunter2
port: "9090"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "companion.yaml"), []byte(yaml), 0644))
	t.Setenv("COMPANION_PORT", "7070")
	t.Setenv("COMPANION_JWT_SECRET", "env-secret")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
}

func TestEnvOnly(t *testing.T) {
	t.Setenv("COMPANION_JWT_SECRET", "env-secret")
	t.Setenv("COMPANION_MONITOR_PASSWORD", "hunter2")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, "8080", cfg.Port)
}

func TestMissingSecretsRejected(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")

	t.Setenv("COMPANION_JWT_SECRET", "env-secret")
	_, err = Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor_password")
}
