package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/converse-go/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversation with a websocket observer server",
	Long: `Serve the current project's conversation for live observers.

Connected websocket clients ("converse observe") receive a full display
snapshot after every change, including each streamed fragment. When run from
a terminal an interactive session starts alongside the server; otherwise the
server runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	o, err := newOrchestrator(ctx)
	if err != nil {
		return err
	}
	o.SwitchTo("")
	if err := o.Rehydrate(ctx); err != nil {
		logger.Warn("could not rehydrate transcript", "error", err)
	}

	srv := server.New(o, collector, logger)

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		// Headless: run until interrupted.
		serveCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(serveCtx, cfg.ServerPort)
	}

	// Interactive: server in the background, session in the foreground.
	serverErr := make(chan error, 1)
	serverCtx, cancelServer := context.WithCancel(context.Background())
	defer cancelServer()
	go func() {
		serverErr <- srv.Run(serverCtx, cfg.ServerPort)
	}()

	printer := newStreamPrinter(o, os.Stdout)
	defer printer.Close()

	replErr := runREPL(ctx, o)
	cancelServer()
	if err := <-serverErr; err != nil && replErr == nil {
		return err
	}
	return replErr
}
