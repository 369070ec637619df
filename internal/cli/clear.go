package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the current project's stored conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dbClient == nil {
			return fmt.Errorf("transcript persistence unavailable")
		}
		identity := identityDetector().CurrentIdentity()
		if err := dbClient.DeleteTranscript(cmd.Context(), identity); err != nil {
			return fmt.Errorf("delete transcript: %w", err)
		}
		fmt.Printf("Cleared conversation %q.\n", identity)
		return nil
	},
}
