package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/converse-go/internal/client"
	"github.com/raphaelgruber/converse-go/internal/models"
)

var (
	observeEndpoint string
	observePlain    bool
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Watch a running converse server's conversation live",
	Long: `Connect to a converse server (started with "converse serve") and render
its conversation as it changes, including streamed assistant output.

On a terminal an interactive view is shown; with --plain or redirected output
each snapshot is printed as text.`,
	Args: cobra.NoArgs,
	RunE: runObserve,
}

func init() {
	observeCmd.Flags().StringVar(&observeEndpoint, "endpoint", "", "server endpoint (default: CONVERSE_SERVER_URL or http://localhost:8585)")
	observeCmd.Flags().BoolVar(&observePlain, "plain", false, "print snapshots instead of the interactive view")
}

func runObserve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	c := client.New(observeEndpoint)
	if err := c.Health(ctx); err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}

	if observePlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return observePlainLoop(ctx, c)
	}
	return runObserveTUI(ctx, c)
}

// observePlainLoop prints every settled snapshot. Streaming snapshots arrive
// at fragment rate, so only status transitions are worth printing here.
func observePlainLoop(ctx context.Context, c *client.Client) error {
	var lastLen int
	var lastStreaming bool

	err := c.Observe(ctx, func(s client.Snapshot) error {
		streaming := false
		for _, m := range s.Messages {
			if m.Status == models.StatusStreaming || m.Status == models.StatusPending {
				streaming = true
			}
		}
		if streaming {
			lastStreaming = true
			return nil
		}
		if len(s.Messages) == lastLen && !lastStreaming {
			return nil
		}
		lastLen = len(s.Messages)
		lastStreaming = false

		fmt.Printf("--- %s (%d messages) ---\n", s.Identity, len(s.Messages))
		printHistory(os.Stdout, s.Messages)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
