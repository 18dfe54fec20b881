package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAPIURL is the hosted Jarvis backend used when nothing overrides it.
const DefaultAPIURL = "https://mark-iii-server.onrender.com"

const (
	SpeechModeRecord = "record"
	SpeechModeLive   = "live"
)

type TimeoutsConfig struct {
	ChatTimeoutMs   int `toml:"chat_timeout_ms"`
	HealthTimeoutMs int `toml:"health_timeout_ms"`
	UploadTimeoutMs int `toml:"upload_timeout_ms"`
}

type MonitorConfig struct {
	Enabled             bool `toml:"enabled"`
	ProbeIntervalMs     int  `toml:"probe_interval_ms"`
	MaxChatProbeRetries int  `toml:"max_chat_probe_retries"`
	ProbeRetryDelayMs   int  `toml:"probe_retry_delay_ms"`
}

type SpeechConfig struct {
	Mode                string   `toml:"mode"`
	CaptureCommand      []string `toml:"capture_command"`
	MinAudioBytes       int      `toml:"min_audio_bytes"`
	PollIntervalMs      int      `toml:"poll_interval_ms"`
	TranscribeTimeoutMs int      `toml:"transcribe_timeout_ms"`
	SilenceThresholdMs  int      `toml:"silence_threshold_ms"`
	SilenceTickMs       int      `toml:"silence_tick_ms"`
}

// UserConfig mirrors settings.toml.
type UserConfig struct {
	APIURL   string         `toml:"api_url"`
	Timeouts TimeoutsConfig `toml:"timeouts"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Speech   SpeechConfig   `toml:"speech"`
}

// Config is the resolved runtime configuration: settings.toml, then .env and
// environment, then command line flags.
type Config struct {
	APIURL string

	ChatTimeout   time.Duration
	HealthTimeout time.Duration
	UploadTimeout time.Duration

	MonitorEnabled      bool
	ProbeInterval       time.Duration
	MaxChatProbeRetries int
	ProbeRetryDelay     time.Duration

	SpeechMode        string
	CaptureCommand    []string
	MinAudioBytes     int
	PollInterval      time.Duration
	TranscribeTimeout time.Duration
	SilenceThreshold  time.Duration
	SilenceTick       time.Duration

	Keybindings *KeyBindingsConfig

	// SettingsPath is the file the config was loaded from (watched for changes).
	SettingsPath string
}

var DebugLog *log.Logger

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// FromUserConfig resolves durations and fills zero values with defaults.
func FromUserConfig(uc *UserConfig) *Config {
	def := DefaultUserConfig()

	pick := func(v, fallback int) int {
		if v <= 0 {
			return fallback
		}
		return v
	}

	cfg := &Config{
		APIURL:              strings.TrimSpace(uc.APIURL),
		ChatTimeout:         millis(pick(uc.Timeouts.ChatTimeoutMs, def.Timeouts.ChatTimeoutMs)),
		HealthTimeout:       millis(pick(uc.Timeouts.HealthTimeoutMs, def.Timeouts.HealthTimeoutMs)),
		UploadTimeout:       millis(pick(uc.Timeouts.UploadTimeoutMs, def.Timeouts.UploadTimeoutMs)),
		MonitorEnabled:      uc.Monitor.Enabled,
		ProbeInterval:       millis(pick(uc.Monitor.ProbeIntervalMs, def.Monitor.ProbeIntervalMs)),
		MaxChatProbeRetries: pick(uc.Monitor.MaxChatProbeRetries, def.Monitor.MaxChatProbeRetries),
		ProbeRetryDelay:     millis(pick(uc.Monitor.ProbeRetryDelayMs, def.Monitor.ProbeRetryDelayMs)),
		SpeechMode:          uc.Speech.Mode,
		CaptureCommand:      uc.Speech.CaptureCommand,
		MinAudioBytes:       pick(uc.Speech.MinAudioBytes, def.Speech.MinAudioBytes),
		PollInterval:        millis(pick(uc.Speech.PollIntervalMs, def.Speech.PollIntervalMs)),
		TranscribeTimeout:   millis(pick(uc.Speech.TranscribeTimeoutMs, def.Speech.TranscribeTimeoutMs)),
		SilenceThreshold:    millis(pick(uc.Speech.SilenceThresholdMs, def.Speech.SilenceThresholdMs)),
		SilenceTick:         millis(pick(uc.Speech.SilenceTickMs, def.Speech.SilenceTickMs)),
	}

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.SpeechMode != SpeechModeLive {
		cfg.SpeechMode = SpeechModeRecord
	}
	if len(cfg.CaptureCommand) == 0 {
		cfg.CaptureCommand = def.Speech.CaptureCommand
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if url := strings.TrimSpace(os.Getenv("JARVIS_API_URL")); url != "" {
		c.APIURL = url
	}
	if mode := strings.TrimSpace(os.Getenv("JARVIS_SPEECH_MODE")); mode == SpeechModeLive || mode == SpeechModeRecord {
		c.SpeechMode = mode
	}
}

func CheckDebug() bool {
	debug := os.Getenv("JARVIS_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog opens <dir>/debug.log when debugging is enabled by flag or env.
func InitDebugLog(dir string, force bool) {
	if !force && !CheckDebug() {
		return
	}

	if err := EnsureDir(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not create log directory %s: %v\n", dir, err)
		return
	}
	logPath := filepath.Join(dir, "debug.log")

	// 0600: the log holds conversation text
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (JARVIS_DEBUG=%s) ===", os.Getenv("JARVIS_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// LoadDotEnv loads .env from the working directory if present. Variables that
// are already set in the environment win.
func LoadDotEnv() {
	if !FileExists(".env") {
		return
	}
	if err := godotenv.Load(); err != nil && DebugLog != nil {
		DebugLog.Printf("[Config] failed to load .env: %v", err)
	}
}

// Load reads settings.toml (creating it on first run), applies .env and
// environment overrides and loads keybindings.
func Load() (*Config, error) {
	return LoadFrom(GetSettingsFilePath())
}

// LoadFrom is Load with an explicit settings path.
func LoadFrom(settingsPath string) (*Config, error) {
	LoadDotEnv()

	uc, err := LoadUserConfig(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	cfg := FromUserConfig(uc)
	cfg.SettingsPath = settingsPath
	cfg.applyEnvOverrides()

	kb, err := LoadKeybindings(filepath.Dir(settingsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load keybindings: %w", err)
	}
	cfg.Keybindings = kb

	return cfg, nil
}
