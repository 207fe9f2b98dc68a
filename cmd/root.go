// Package cmd is the vidcompress command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vidcompress/config"
	"vidcompress/logger"
)

// Execute runs the root command with cfg injected into every subcommand.
func Execute(cfg config.Config) {
	rootCmd := NewRootCmd(cfg)
	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func NewRootCmd(cfg config.Config) *cobra.Command {
	a := newApp(cfg)

	rootCmd := &cobra.Command{
		Use:           "vidcompress",
		Short:         "Video compression pipeline: completion handling and metadata logging",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.Close()
		},
	}

	rootCmd.AddCommand(ServeCmd(a))
	rootCmd.AddCommand(LambdaCmd(a))
	rootCmd.AddCommand(ConsumeCmd(a))
	rootCmd.AddCommand(RecordsCmd(a))
	rootCmd.AddCommand(HistoryCmd(a))
	rootCmd.AddCommand(IngestCmd(a))

	return rootCmd
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
