package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_CreatesDefaults(t *testing.T) {
	t.Setenv("JARVIS_API_URL", "")
	t.Setenv("JARVIS_SPEECH_MODE", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, "keybindings.toml"))

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.ChatTimeout)
	assert.Equal(t, 5*time.Second, cfg.HealthTimeout)
	assert.True(t, cfg.MonitorEnabled)
	assert.Equal(t, 30*time.Second, cfg.ProbeInterval)
	assert.Equal(t, 3, cfg.MaxChatProbeRetries)
	assert.Equal(t, 2*time.Second, cfg.ProbeRetryDelay)
	assert.Equal(t, SpeechModeRecord, cfg.SpeechMode)
	assert.Equal(t, 1024, cfg.MinAudioBytes)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.SilenceThreshold)
	assert.Equal(t, 100*time.Millisecond, cfg.SilenceTick)
	assert.NotEmpty(t, cfg.CaptureCommand)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadFrom_ParsesSettings(t *testing.T) {
	t.Setenv("JARVIS_API_URL", "")
	t.Setenv("JARVIS_SPEECH_MODE", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	content := `api_url = "http://localhost:8080"

[timeouts]
chat_timeout_ms = 1500

[monitor]
enabled = false

[speech]
mode = "live"
capture_command = ["arecord", "-"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.ChatTimeout)
	assert.Equal(t, 5*time.Second, cfg.HealthTimeout, "unset keys keep defaults")
	assert.False(t, cfg.MonitorEnabled)
	assert.Equal(t, SpeechModeLive, cfg.SpeechMode)
	assert.Equal(t, []string{"arecord", "-"}, cfg.CaptureCommand)
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`api_url = "http://from-file"`), 0600))

	t.Setenv("JARVIS_API_URL", "http://from-env")
	t.Setenv("JARVIS_SPEECH_MODE", "live")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", cfg.APIURL)
	assert.Equal(t, SpeechModeLive, cfg.SpeechMode)
}

func TestLoadFrom_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_url = [broken"), 0600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestFromUserConfig_UnknownSpeechModeFallsBack(t *testing.T) {
	uc := DefaultUserConfig()
	uc.Speech.Mode = "telepathy"
	uc.Timeouts.ChatTimeoutMs = -5

	cfg := FromUserConfig(uc)
	assert.Equal(t, SpeechModeRecord, cfg.SpeechMode)
	assert.Equal(t, 30*time.Second, cfg.ChatTimeout)
}

func TestGetConfigDir_EnvOverride(t *testing.T) {
	t.Setenv("JARVIS_CONFIG_DIR", "/tmp/jarvis-test")
	assert.Equal(t, "/tmp/jarvis-test", GetConfigDir())
	assert.Equal(t, "/tmp/jarvis-test/settings.toml", GetSettingsFilePath())
}

func TestWatcher_PublishesReload(t *testing.T) {
	t.Setenv("JARVIS_API_URL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`api_url = "http://one"`), 0600))

	w, err := NewWatcher(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(path, []byte(`api_url = "http://two"`), 0600))

	select {
	case cfg := <-w.Updates():
		require.NotNil(t, cfg)
		assert.Equal(t, "http://two", cfg.APIURL)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}
}

func TestWatcher_ReappliesOverrides(t *testing.T) {
	t.Setenv("JARVIS_API_URL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`api_url = "http://file"`), 0600))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	w.Override(func(cfg *Config) { cfg.APIURL = "http://flag-override:9000" })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Any reload, even of keybindings.toml alone, must keep the override.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keybindings.toml"), []byte(GenerateKeybindingsTemplate()), 0600))

	select {
	case cfg := <-w.Updates():
		require.NotNil(t, cfg)
		assert.Equal(t, "http://flag-override:9000", cfg.APIURL)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")

	w, err := NewWatcher(path)
	require.NoError(t, err)

	calls := 0
	w.load = func(string) (*Config, error) {
		calls++
		return &Config{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	time.Sleep(3 * reloadDebounce)
	cancel()
	<-done

	assert.Equal(t, 0, calls)
}
