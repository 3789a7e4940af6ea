// =============================================================================
// DFR Chargeback Bundler - Run Command
// =============================================================================
//
// This file defines the 'run' command, which executes one batch and prints
// its outcome as JSON:
//
//   {"processed_files":2,"status":"success"}
//   {"message":"...","status":"error"}
//
// COMMAND USAGE:
//   dfr-bundler run [flags]
//
// FLAGS:
//   --dry-run : Build bundles but skip uploads, audit logs and the cursor
//   --file    : Process one named source object, ignoring the cursor
//   --keep    : Copy every artifact to processing.keep_artifacts_dir
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/bundler"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	runDryRun bool
	runFile   string
	runKeep   bool
)

// =============================================================================
// RUN COMMAND DEFINITION
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one bundling batch",
	Long: `The run command selects the DFR extracts that arrived since the last
successful run, bundles each one and delivers the bundles to every sink.
The run cursor only advances when the whole batch succeeds.`,
	RunE: runBatch,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Build bundles without delivering them or advancing the cursor")
	runCmd.Flags().StringVar(&runFile, "file", "", "Process one source object by name, ignoring the cursor")
	runCmd.Flags().BoolVar(&runKeep, "keep", false, "Copy artifacts to processing.keep_artifacts_dir")

	rootCmd.AddCommand(runCmd)
}

// runBatch is the execution function for the run command.
func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := bundler.Options{DryRun: runDryRun, File: runFile}
	if runKeep {
		if cfg.Processing.KeepArtifactsDir == "" {
			return fmt.Errorf("--keep needs processing.keep_artifacts_dir")
		}
		opts.KeepDir = cfg.Processing.KeepArtifactsDir
	}

	p, lock, err := newProcessor(ctx, cfg)
	if err != nil {
		return err
	}
	defer lock.Close()

	result, runErr := p.Run(ctx, opts)

	out, err := json.Marshal(result.Payload())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	return runErr
}
