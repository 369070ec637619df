package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/converse-go/internal/client"
)

var statsEndpoint string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a running converse server's runtime statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(statsEndpoint)
		snap, err := c.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Uptime: %.0fs\n", snap.UptimeSeconds)
		if len(snap.Operations) == 0 {
			fmt.Println("No operations recorded yet.")
			return nil
		}

		ops := make([]string, 0, len(snap.Operations))
		for op := range snap.Operations {
			ops = append(ops, op)
		}
		sort.Strings(ops)

		fmt.Printf("\n%-18s %8s %10s %10s %10s\n", "operation", "count", "avg ms", "min ms", "max ms")
		for _, op := range ops {
			s := snap.Operations[op]
			fmt.Printf("%-18s %8d %10.1f %10d %10d\n", op, s.Count, s.AvgTimeMs, s.MinTimeMs, s.MaxTimeMs)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsEndpoint, "endpoint", "", "server endpoint (default: CONVERSE_SERVER_URL or http://localhost:8585)")
}
