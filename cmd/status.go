package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"jarvis/monitor"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the Jarvis server is online",
		Long: `Run one status check against the Jarvis server: a health check
followed by a test chat message. Exits non-zero when the server is offline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			mon := monitor.New(client, monitor.OptionsFromConfig(cfg))
			defer mon.Stop()

			s := mon.Probe(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", s.State, s.Message)
			fmt.Fprintf(cmd.OutOrStdout(), "Server: %s\n", client.BaseURL())

			if s.State == monitor.Offline {
				return fmt.Errorf("server %s is offline", client.BaseURL())
			}
			return nil
		},
	}
}
