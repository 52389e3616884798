package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "large-v3", cfg.Model)
	assert.Equal(t, "auto", cfg.Device)
	assert.Equal(t, "float16", cfg.ComputeType)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, EngineFasterWhisper, cfg.Engine)
	assert.Equal(t, "models", cfg.ModelDir)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WHISPER_MODEL", "small.en")
	t.Setenv("DEVICE", "cuda")
	t.Setenv("COMPUTE_TYPE", "int8")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("WHISPER_ENGINE", EngineWhisperCPP)
	t.Setenv("WHISPER_MODEL_DIR", "/var/lib/whisper")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "small.en", cfg.Model)
	assert.Equal(t, "cuda", cfg.Device)
	assert.Equal(t, "int8", cfg.ComputeType)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, EngineWhisperCPP, cfg.Engine)
	assert.Equal(t, "/var/lib/whisper", cfg.ModelDir)
}

func TestAddr(t *testing.T) {
	cfg := &Config{Host: "0.0.0.0", Port: 8000}
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())

	cfg = &Config{Host: "::1", Port: 8080}
	assert.Equal(t, "[::1]:8080", cfg.Addr())
}
