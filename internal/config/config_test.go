package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// isolate points the default files at an empty directory and clears the
// variables Load reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{EnvAPIKey, EnvBaseURL, EnvModel} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load([]string{
		"-config", "",
		"-env", filepath.Join(dir, "missing.env"),
	})
	require.Error(t, err, "an explicitly named env file must exist")
	assert.Nil(t, cfg)

	cfg, err = Load([]string{"-config", "", "-env", ""})
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, "tts-1", cfg.Speech.Model)
	assert.Equal(t, "alloy", cfg.Speech.Voice)
	assert.Equal(t, 0.8, cfg.Speech.Volume)
	assert.Equal(t, 1.0, cfg.Speech.Rate)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.False(t, cfg.Serve)
}

func TestLoadLayering(t *testing.T) {
	dir := isolate(t)

	configFile := writeFile(t, dir, "leanne.toml", `
model = "file-model"
base_url = "http://file.example/v1"
render_interval = "100ms"
addr = "127.0.0.1:9000"

[speech]
voice = "nova"
rate = 1.5
`)
	envFile := writeFile(t, dir, ".env", "OPENAI_API_KEY=sk-from-dotenv\nLEANNE_MODEL=dotenv-model\n")

	cfg, err := Load([]string{"-config", configFile, "-env", envFile})
	require.NoError(t, err)
	assert.Equal(t, "sk-from-dotenv", cfg.APIKey)
	assert.Equal(t, "dotenv-model", cfg.Model)
	assert.Equal(t, "http://file.example/v1", cfg.BaseURL)
	assert.Equal(t, 100*time.Millisecond, cfg.RenderInterval)
	assert.Equal(t, "nova", cfg.Speech.Voice)
	assert.Equal(t, 1.5, cfg.Speech.Rate)
	assert.Equal(t, "tts-1", cfg.Speech.Model)

	t.Setenv(EnvAPIKey, " sk-from-env ")
	t.Setenv(EnvModel, "env-model")
	cfg, err = Load([]string{"-config", configFile, "-env", envFile})
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.APIKey)
	assert.Equal(t, "env-model", cfg.Model)

	cfg, err = Load([]string{"-config", configFile, "-env", envFile, "-model", "flag-model", "-serve", "-addr", ":7000", "-dev"})
	require.NoError(t, err)
	assert.Equal(t, "flag-model", cfg.Model)
	assert.True(t, cfg.Serve)
	assert.True(t, cfg.Dev)
	assert.Equal(t, ":7000", cfg.Addr)
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load([]string{"-config", filepath.Join(dir, "nope.toml"), "-env", ""})
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := isolate(t)

	configFile := writeFile(t, dir, "leanne.toml", "[speech]\nvolume = 3.0\n")
	_, err := Load([]string{"-config", configFile, "-env", ""})
	assert.ErrorContains(t, err, "volume")

	_, err = Load([]string{"-config", "", "-env", "", "-unknown"})
	assert.Error(t, err)
}
