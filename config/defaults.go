package config

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		APIURL: DefaultAPIURL,
		Timeouts: TimeoutsConfig{
			ChatTimeoutMs:   30000,
			HealthTimeoutMs: 5000,
			UploadTimeoutMs: 60000,
		},
		Monitor: MonitorConfig{
			Enabled:             true,
			ProbeIntervalMs:     30000,
			MaxChatProbeRetries: 3,
			ProbeRetryDelayMs:   2000,
		},
		Speech: SpeechConfig{
			Mode:                SpeechModeRecord,
			CaptureCommand:      DefaultCaptureCommand(),
			MinAudioBytes:       1024,
			PollIntervalMs:      1000,
			TranscribeTimeoutMs: 60000,
			SilenceThresholdMs:  500,
			SilenceTickMs:       100,
		},
	}
}

// DefaultCaptureCommand records the default input device as webm/opus on stdout.
func DefaultCaptureCommand() []string {
	return []string{
		"ffmpeg", "-loglevel", "quiet",
		"-f", "pulse", "-i", "default",
		"-ac", "1", "-c:a", "libopus",
		"-f", "webm", "-",
	}
}

func GenerateUserConfigTemplate() string {
	return `# Jarvis Configuration
# Location: ~/.config/jarvis/settings.toml
# This file uses TOML format: https://toml.io
# Changes are picked up while Jarvis is running.

# Jarvis backend. JARVIS_API_URL (environment or .env) and --api-url override this.
api_url = "https://mark-iii-server.onrender.com"

[timeouts]
# Chat requests give up after this long
chat_timeout_ms = 30000
# Health checks used by the status monitor
health_timeout_ms = 5000
# Audio uploads
upload_timeout_ms = 60000

[monitor]
# Periodically check whether the backend is online
enabled = true
probe_interval_ms = 30000
# Test chat calls made after a successful health check
max_chat_probe_retries = 3
probe_retry_delay_ms = 2000

[speech]
# "record" uploads a finished recording, "live" streams and stops on silence
mode = "record"
# Command that writes encoded microphone audio to stdout
capture_command = ["ffmpeg", "-loglevel", "quiet", "-f", "pulse", "-i", "default", "-ac", "1", "-c:a", "libopus", "-f", "webm", "-"]
# Recordings smaller than this are rejected without uploading
min_audio_bytes = 1024
poll_interval_ms = 1000
transcribe_timeout_ms = 60000
# Live mode only
silence_threshold_ms = 500
silence_tick_ms = 100
`
}
