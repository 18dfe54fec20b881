package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"jarvis/config"
	"jarvis/model"
	"jarvis/monitor"
	"jarvis/speech"
	"jarvis/transport"
	"jarvis/ui"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	apiURL  string
	debug   bool
	version string
}

// NewRootCmd builds the jarvis command tree. Running it without a subcommand
// starts the chat interface.
func NewRootCmd(version string) *cobra.Command {
	opts := &globalOptions{version: version}

	rootCmd := &cobra.Command{
		Use:   "jarvis",
		Short: "Jarvis is a terminal chat client for the Jarvis assistant",
		Long: `Jarvis is a terminal chat client for the Jarvis AI assistant.
It keeps a conversation with the remote assistant, watches whether the
server is reachable and can fill the input box from your microphone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "Jarvis server URL (overrides settings.toml and JARVIS_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Write a debug log to the config directory")

	rootCmd.AddCommand(newAskCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newTranscribeCmd(opts))
	rootCmd.AddCommand(newContactCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))

	return rootCmd
}

// Execute runs the command tree with os.Args.
func Execute(version string) error {
	return NewRootCmd(version).ExecuteContext(context.Background())
}

// loadConfig resolves settings.toml, .env, the environment and flags, in that
// order of precedence from lowest to highest.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	config.InitDebugLog(config.GetConfigDir(), opts.debug)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	opts.applyFlags(cfg)

	if config.DebugLog != nil {
		config.DebugLog.Printf("[CLI] config loaded from %s, api %s", cfg.SettingsPath, cfg.APIURL)
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags given on the command line. It runs
// on the startup config and on every hot reload.
func (opts *globalOptions) applyFlags(cfg *config.Config) {
	if opts.apiURL != "" {
		cfg.APIURL = opts.apiURL
	}
}

func newClient(cfg *config.Config) (*transport.Client, error) {
	return transport.NewClient(cfg.APIURL, transport.OptionsFromConfig(cfg))
}

func newSpeechDeps(cfg *config.Config, client *transport.Client) *model.SpeechDeps {
	return &model.SpeechDeps{
		Mode:        cfg.SpeechMode,
		Source:      speech.NewCommandSource(cfg.CaptureCommand),
		Transcriber: speech.NewTranscriber(client, speech.TranscriberOptionsFromConfig(cfg)),
		Dial:        speech.StreamDialer(client),
		Live:        speech.LiveOptionsFromConfig(cfg),
	}
}

func clientFactory(baseURL string, opts transport.Options) (model.Backend, error) {
	c, err := transport.NewClient(baseURL, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func runChat(parent context.Context, opts *globalOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return showStartupError("Configuration Error", fmt.Errorf("failed to load config: %w", err))
	}

	client, err := newClient(cfg)
	if err != nil {
		return showStartupError("Configuration Error", err)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var status ui.StatusSource
	var prober model.Prober
	if cfg.MonitorEnabled {
		mon := monitor.New(client, monitor.OptionsFromConfig(cfg))
		mon.Start(ctx)
		status = mon
		prober = mon
	}

	m := model.NewModel(cfg, client, prober, opts.version)
	m.Speech = newSpeechDeps(cfg, client)
	m.Factory = clientFactory

	var configUpdates <-chan *config.Config
	if watcher, err := config.NewWatcher(cfg.SettingsPath); err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[CLI] settings reload disabled: %v", err)
		}
	} else {
		watcher.Override(opts.applyFlags)
		go watcher.Run(ctx)
		configUpdates = watcher.Updates()
	}

	p := tea.NewProgram(
		ui.NewAppView(m, status, configUpdates),
		tea.WithAltScreen(),
	)

	finalModel, err := p.Run()

	// Quit already tears down; this covers the program ending any other way.
	if view, ok := finalModel.(ui.AppView); ok {
		view.Teardown()
	} else {
		m.Teardown()
		if status != nil {
			status.Stop()
		}
	}

	if err != nil {
		return fmt.Errorf("error running chat: %w", err)
	}
	return nil
}

// showStartupError reports a fatal startup problem in a modal, then returns
// err so the process exits non-zero.
func showStartupError(title string, err error) error {
	p := tea.NewProgram(
		ui.NewErrorModal(title, err.Error()),
		tea.WithAltScreen(),
	)
	if _, runErr := p.Run(); runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
	}
	return err
}
