// Package cmd implements the courtsense command line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/courtsense/courtsense/internal/log"
)

var (
	flagVerbose  bool
	flagJSONLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "courtsense",
	Short: "Courtsense - racket sport coaching knowledge base",
	Long: `Courtsense manages a retrieval-augmented knowledge base for racket
sport coaching material. It ingests PDF documents, splits them into
classified chunks, embeds them, and serves filtered similarity search
over the result.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "write logs as JSON")

	rootCmd.AddCommand(
		newIngestCmd(),
		newProcessCmd(),
		newDocumentsCmd(),
		newSearchCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
}

// newLogger builds the process logger from the global flags.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: flagJSONLogs})
}
