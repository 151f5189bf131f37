// Package cli implements the invindex command line: build, query and serve.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd creates the invindex command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "invindex",
		Short: "Build and query an inverted index over a text corpus",
		Long: `invindex builds an inverted index from a tab-separated corpus
("<id>\t<content>" per line), stores it as JSON or a compact binary file,
and answers conjunctive word queries against it.

Results go to stdout; diagnostics go to stderr.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newQueryCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

// Execute runs the root command; SIGINT and SIGTERM cancel its context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// stringFlag returns the flag value if the user set it, else fallback.
func stringFlag(cmd *cobra.Command, name, value, fallback string) string {
	if cmd.Flags().Changed(name) || fallback == "" {
		return value
	}
	return fallback
}
