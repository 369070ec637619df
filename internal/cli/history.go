package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the stored transcript for the current project",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	if dbClient == nil {
		return fmt.Errorf("transcript persistence unavailable")
	}

	identity := identityDetector().CurrentIdentity()
	msgs, err := dbClient.LoadTranscript(cmd.Context(), identity)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	if len(msgs) == 0 {
		fmt.Printf("No stored conversation for %q.\n", identity)
		return nil
	}

	fmt.Printf("Conversation %q (%d messages):\n\n", identity, len(msgs))
	for _, m := range msgs {
		fmt.Printf("%s  %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Role)
		fmt.Printf("  %s\n", m.DisplayText)
		if refs := contextRefs(m.Context); refs != "" {
			fmt.Printf("  context: %s\n", refs)
		}
		fmt.Println()
	}
	return nil
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects with stored conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dbClient == nil {
			return fmt.Errorf("transcript persistence unavailable")
		}
		identities, err := dbClient.ListTranscripts(cmd.Context())
		if err != nil {
			return fmt.Errorf("list transcripts: %w", err)
		}
		if len(identities) == 0 {
			fmt.Println("No stored conversations.")
			return nil
		}
		current := identityDetector().CurrentIdentity()
		for _, identity := range identities {
			marker := "  "
			if identity == current {
				marker = "* "
			}
			fmt.Printf("%s%s\n", marker, identity)
		}
		return nil
	},
}
