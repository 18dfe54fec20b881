package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jarvis/speech"
)

func newTranscribeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe an audio file with the Jarvis server",
		Long: `Upload a recorded audio file (webm or mp4) and print its transcript.
Files smaller than the configured minimum are rejected without a network call.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read audio file: %w", err)
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			tr := speech.NewTranscriber(client, speech.TranscriberOptionsFromConfig(cfg))
			text, err := tr.Transcribe(cmd.Context(), audio)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), speech.UserMessage(err))
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
