// =============================================================================
// DFR Chargeback Bundler - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which exposes batches over HTTP
// for schedulers that trigger with a request:
//
//   GET /run     -> 200 {"status":"success","processed_files":N}
//                   500 {"status":"error","message":"..."}
//                   409 when another batch is running
//   GET /health  -> 200
//
// =============================================================================

package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/api"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/logger"
)

// serveAddr overrides server.host/server.port.
var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP batch trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, lock, err := newProcessor(ctx, cfg)
		if err != nil {
			return err
		}
		defer lock.Close()

		addr := cfg.Server.Addr()
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := api.NewServer(addr, api.NewHandlers(p, logger.Default()))
		return srv.ListenAndServe(ctx, 5*time.Minute)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.host and server.port)")
	rootCmd.AddCommand(serveCmd)
}
