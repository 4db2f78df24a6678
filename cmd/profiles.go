package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/tradescope/internal/profile"
	"github.com/sells-group/tradescope/internal/trade"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Rebuild buyer and exporter rollup profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		return runStage(ctx, pool, "profiles", func(ctx context.Context) (*trade.RunResult, error) {
			res, err := profile.NewBuilder(pool, cfg.Profile).Run(ctx)
			if err != nil {
				return nil, err
			}
			return &trade.RunResult{
				Processed: res.Buyers + res.Exporters,
				Updated:   res.Buyers + res.Exporters,
				Metadata:  map[string]any{"buyers": res.Buyers, "exporters": res.Exporters},
			}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
