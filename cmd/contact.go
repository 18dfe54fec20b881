package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"jarvis/model"
	"jarvis/transport"
)

func newContactCmd(opts *globalOptions) *cobra.Command {
	var form transport.ContactForm

	contactCmd := &cobra.Command{
		Use:   "contact",
		Short: "Send a message to the Jarvis team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := model.ValidateContact(form); err != nil {
				return err
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			if err := client.SendContact(cmd.Context(), form); err != nil {
				return fmt.Errorf("failed to send message: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Thank you for your message! We'll get back to you soon.")
			return nil
		},
	}

	contactCmd.Flags().StringVar(&form.Name, "name", "", "Your name")
	contactCmd.Flags().StringVar(&form.Email, "email", "", "Your email address")
	contactCmd.Flags().StringVar(&form.Subject, "subject", "", "Subject line")
	contactCmd.Flags().StringVar(&form.Message, "message", "", "Message body")

	return contactCmd
}
