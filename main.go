// =============================================================================
// DFR Chargeback Bundler - Main Entry Point
// =============================================================================
//
// USAGE:
//   dfr-bundler run        - Bundle the DFR extracts that arrived since the last run
//   dfr-bundler serve      - Serve the HTTP batch trigger
//   dfr-bundler validate   - Validate the configuration without processing
//   dfr-bundler version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Parsing, encoding, archiving, stores and the batch pipeline
//   - pkg/       : Shared utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/dfr-chargeback-bundler/cmd"
)

func main() {
	cmd.Execute()
}
