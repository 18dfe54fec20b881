package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jarvis/config"
	"jarvis/transport"
)

func newAskCmd(opts *globalOptions) *cobra.Command {
	var sessionID string

	askCmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message to Jarvis and print the reply",
		Long: `Send a single message to the Jarvis assistant and print its reply.
The session ID of the conversation is printed to stderr so the next call
can continue it with --session.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("message is empty")
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			reply, err := client.SendChat(cmd.Context(), text, sessionID)
			if err != nil {
				// The server may still have a reply for the user.
				if fallback, ok := transport.FallbackMessage(err); ok {
					fmt.Fprintln(cmd.OutOrStdout(), fallback)
				}
				return err
			}

			if config.DebugLog != nil {
				config.DebugLog.Printf("[CLI] ask answered, session %q", reply.SessionID)
			}

			fmt.Fprintln(cmd.OutOrStdout(), reply.Response)
			if reply.SessionID != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", reply.SessionID)
			}
			return nil
		},
	}

	askCmd.Flags().StringVarP(&sessionID, "session", "s", "", "Continue an existing session")
	return askCmd
}
