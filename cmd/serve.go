package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/tradescope/internal/monitoring"
	"github.com/sells-group/tradescope/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if cfg.Monitor.WebhookURL != "" {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(pool),
				monitoring.NewAlerter(cfg.Monitor),
				cfg.Monitor,
			)
			go checker.Run(ctx)
		}

		return server.New(pool, cfg.Server, cfg.Hunter).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
