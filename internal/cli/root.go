// Package cli implements the voicebot-cli command tree.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keshon/voicebot/internal/config"
	"github.com/keshon/voicebot/internal/logging"
	"github.com/keshon/voicebot/internal/version"
)

type options struct {
	output  string
	verbose bool
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &options{output: "text"}

	root := &cobra.Command{
		Use:     "voicebot-cli",
		Short:   "Inspect and register the bot's slash commands",
		Version: version.Version,
		Long: `voicebot-cli works with the same configuration as the bot (.env files and
environment variables) to list the bot's commands and register them with Discord
without starting the bot.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", opts.output, "Output format: text, json")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", opts.verbose, "Verbose logging")

	root.AddCommand(newCommandsCmd(opts))
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds a logger writing to stderr.
func loadConfig(opts *options) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := cfg.LogLevel
	if opts.verbose {
		level = "debug"
	}
	log, _, err := logging.New(logging.Options{Level: level, JSON: cfg.LogJSON, Out: os.Stderr})
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}
