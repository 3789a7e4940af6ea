// =============================================================================
// DFR Chargeback Bundler - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (dfr-bundler)
//   ├── runCmd      (dfr-bundler run)
//   ├── serveCmd    (dfr-bundler serve)
//   ├── validateCmd (dfr-bundler validate)
//   └── versionCmd  (dfr-bundler version)
//
// The root command owns the global flags and sets up logging before any
// subcommand runs.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/bundler"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/logger"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/runlock"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/store"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// logLevel is the minimum level of the process log.
var logLevel string

// verbose enables debug logging. It overrides logLevel.
var verbose bool

// useEnv overlays .env and DFR_* environment variables on the config file.
var useEnv bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "dfr-bundler",
	Short: "DFR Chargeback Bundler - package dispute reports into processor submissions",
	Long: `DFR Chargeback Bundler reads daily chargeback dispute reports (DFR extracts),
keeps the RTM disputes with negative issuer amounts, and packages them into the
submission bundle the processor expects: a submission header, a fixed-width
index file and one placeholder document per dispute, zipped behind the header.

Only extracts that arrived since the last successful run are processed. Every
extract gets an audit log, and each bundle is delivered to all configured sinks.

Example Usage:
  dfr-bundler run                      # Process new extracts
  dfr-bundler run --dry-run --keep     # Build bundles locally without delivering
  dfr-bundler serve                    # Expose GET /run for a scheduler
  dfr-bundler validate --env           # Check config.yaml plus DFR_* overrides`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if verbose {
			level = logger.DEBUG
		}
		logger.SetLevel(level)
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&logLevel,
		"log-level",
		"info",
		"Minimum log level: debug, info, warn or error",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().BoolVar(
		&useEnv,
		"env",
		false,
		"Apply .env and DFR_* environment variable overrides",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig loads the configuration selected by the global flags.
func loadConfig() (*config.Config, error) {
	if useEnv {
		return config.LoadFromEnv(cfgFile)
	}
	return config.Load(cfgFile)
}

// newProcessor opens every store and the run lock and wires the batch
// processor. The returned lock must be closed by the caller.
func newProcessor(ctx context.Context, cfg *config.Config) (*bundler.Processor, runlock.Lock, error) {
	stores, err := store.OpenAll(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	lock, err := runlock.New(cfg.Lock)
	if err != nil {
		return nil, nil, err
	}

	p, err := bundler.New(cfg, stores, lock, logger.Default())
	if err != nil {
		lock.Close()
		return nil, nil, err
	}
	return p, lock, nil
}
