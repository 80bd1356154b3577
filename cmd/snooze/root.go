package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/snooze/internal/config"
	"github.com/yairfalse/snooze/internal/telemetry"
)

var (
	version = "0.1.0"

	configPath  string
	logLevel    string
	logFormat   string
	journalPath string

	// cfg is loaded once per invocation by the root pre-run hook.
	cfg = config.Default()

	rootCmd = newRootCmd()
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snooze",
		Short: "Start and stop tagged cloud resources",
		Long: `Snooze - tag-driven start/stop for cloud resources

Snooze finds resources by tag and starts or stops them: CloudWatch alarm
actions, RDS and DocumentDB clusters, RDS instances, ECS services,
Redshift clusters and EC2 instances. Point a scheduler at it to put
non-production environments to sleep at night.

A failure on one resource is logged and the rest of the batch carries on.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
	cmd.SetVersionTemplate(`Snooze {{.Version}} - tag-driven start/stop
`)

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to TOML config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console, json (overrides config)")
	cmd.PersistentFlags().StringVar(&journalPath, "journal", "", "Path to the run journal (overrides config)")

	cmd.AddCommand(newStartCmd(), newStopCmd(), newKindsCmd(), newHistoryCmd(), newStatusCmd())
	return cmd
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the optional config file, applies flag overrides and
// installs the global logger.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded := config.Default()
	if configPath != "" {
		var err error
		if loaded, err = config.Load(configPath); err != nil {
			return err
		}
	}

	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if logFormat != "" {
		loaded.Log.Format = logFormat
	}
	if journalPath != "" {
		loaded.Journal.Path = journalPath
	}

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := telemetry.NewLogger(cmd.ErrOrStderr(), loaded.Log)
	if err != nil {
		return err
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = logger

	cfg = loaded
	return nil
}
