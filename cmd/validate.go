// =============================================================================
// DFR Chargeback Bundler - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which loads the configuration,
// checks that the submission identity fits the fixed-width layouts and
// prints a summary. Nothing is read from or written to any store.
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration without processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if result := validation.ValidateSubmission(cfg.Submission); !result.IsValid() {
			fmt.Fprint(cmd.OutOrStdout(), validation.FormatErrors(result.Errors))
			return result.Err()
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration OK: %s\n", cfgFile)
		fmt.Fprintf(out, "  Source:     %s %s/%s (files containing %q)\n", cfg.Source.Backend, cfg.Source.Bucket, cfg.Source.Prefix, cfg.Source.NameFilter)
		fmt.Fprintf(out, "  State:      %s %s\n", cfg.State.Backend, cfg.State.Bucket)
		for _, s := range cfg.Sinks {
			fmt.Fprintf(out, "  Sink:       %s (%s %s/%s)\n", s.Name, s.Backend, s.Bucket, s.Prefix)
		}
		fmt.Fprintf(out, "  Company:    %s %s\n", cfg.Submission.CompanyID, cfg.Submission.CompanyName)
		fmt.Fprintf(out, "  Filter:     %s %s <= %s, %d reason codes\n", cfg.Filter.Category, cfg.Filter.Currency, cfg.Filter.AmountThreshold, len(cfg.Filter.ReasonCodes))
		fmt.Fprintf(out, "  Processing: malformed=%s audit=%s timezone=%s\n", cfg.Processing.MalformedLines, cfg.Processing.AuditMode, cfg.Processing.Timezone)
		fmt.Fprintf(out, "  Lock:       %s\n", strings.TrimSpace(cfg.Lock.Backend+" "+cfg.Lock.Key))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
