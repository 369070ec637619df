// Package cli provides the command-line interface for converse.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/converse-go/internal/chat"
	"github.com/raphaelgruber/converse-go/internal/config"
	"github.com/raphaelgruber/converse-go/internal/db"
	"github.com/raphaelgruber/converse-go/internal/llm"
	"github.com/raphaelgruber/converse-go/internal/metrics"
	"github.com/raphaelgruber/converse-go/internal/resolver"
	"github.com/raphaelgruber/converse-go/internal/vault"
	"github.com/raphaelgruber/converse-go/internal/web"
	"github.com/raphaelgruber/converse-go/internal/workspace"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	project string

	// Global config, logging and metrics
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	collector  *metrics.Collector

	// Transcript store; nil when SurrealDB is unreachable
	dbClient *db.Client
)

// pageFetchTimeout bounds context URL resolution during a send.
const pageFetchTimeout = 15 * time.Second

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "converse",
	Short: "Project-scoped LLM conversations with live context",
	Long: `Converse keeps one LLM conversation per project, detected from the
directory you run it in. Messages can carry context references (notes, URLs,
folders, tags, text selections) that are re-read from their sources on every
model call, so the model always sees current content while the transcript
stays clean.

Transcripts persist in SurrealDB per project; running without a reachable
database keeps everything working in memory only.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Observe and stats talk to a running server, not the local stack
		switch cmd.Name() {
		case "version", "help", "observe", "stats":
			return nil
		}

		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)

		collector = metrics.NewCollector()

		// Connect transcript store; the conversation works without it
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		var err error
		dbClient, err = db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			logger.Warn("transcript persistence unavailable, running in memory", "error", err)
			dbClient = nil
			return nil
		}
		if err := dbClient.InitSchema(ctx); err != nil {
			logger.Warn("transcript schema init failed, running in memory", "error", err)
			_ = dbClient.Close(ctx)
			dbClient = nil
			return nil
		}
		dbClient.WithMetrics(collector)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// identityDetector builds the project identity detector from flags and config.
func identityDetector() workspace.Detector {
	explicit := project
	if explicit == "" {
		explicit = cfg.DefaultProject
	}
	return workspace.Detector{Explicit: explicit, FromCWD: cfg.ProjectFromCWD}
}

// newOrchestrator wires the full conversation stack: vault and web resolver,
// LLM engine, transcript archive and subscription bus.
func newOrchestrator(ctx context.Context) (*chat.Orchestrator, error) {
	model, err := llm.NewModel(ctx, cfg, collector)
	if err != nil {
		return nil, fmt.Errorf("init model: %w", err)
	}

	notes := vault.New(cfg.VaultDir, logger)
	fetcher := web.NewFetcher(pageFetchTimeout)
	res := resolver.New(notes, fetcher, notes, logger)

	var archive chat.Archive
	if dbClient != nil {
		archive = dbClient
	}

	return chat.NewOrchestrator(
		chat.NewRegistry(res),
		model,
		identityDetector(),
		archive,
		chat.NewBus(),
		logger,
	), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&project, "project", "p", "", "conversation identity (default: detected from cwd)")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(statsCmd)
}
